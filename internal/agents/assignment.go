package agents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
)

// AssignOrder atomically assigns a pending order to an eligible agent. The
// order row, the shopping list, and the agent's busy status all change in a
// single transaction; any failure rolls everything back.
//
// Concurrent assignment of the same order is resolved by the guarded status
// update: whichever transaction flips pending to accepted first wins, and the
// loser gets a state-conflict error.
func (s *Service) AssignOrder(ctx context.Context, orderID, agentID uuid.UUID) (*models.Order, error) {
	var (
		order *models.Order
		agent *models.User
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var innerErr error
		order, innerErr = repo.FindOrder(ctx, orderID)
		if innerErr != nil {
			if errors.Is(innerErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be assigned").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		agent, innerErr = repo.FindEligibleAgent(ctx, agentID)
		if innerErr != nil {
			if errors.Is(innerErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "agent not found or inactive")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "load agent")
		}

		now := s.now()
		rows, innerErr := repo.AcceptPendingOrder(ctx, orderID, agentID, now)
		if innerErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "accept order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was already assigned")
		}

		if innerErr = repo.UpdateShoppingListAssignment(ctx, order.ShoppingListID, agentID); innerErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "update shopping list")
		}

		if _, innerErr = s.markBusy(ctx, repo, agentID, orderID, now); innerErr != nil {
			return innerErr
		}

		order.AgentID = &agent.ID
		order.Status = enums.OrderStatusAccepted
		order.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, order)
	return order, nil
}

// notifyAssigned publishes the assignment event after commit. Delivery is
// best effort: failures are logged and never surface to the caller.
func (s *Service) notifyAssigned(ctx context.Context, order *models.Order) {
	if s.notifier == nil || order == nil || order.AgentID == nil || order.AcceptedAt == nil {
		return
	}

	event := OrderAssignedEvent{
		OrderID:        order.ID,
		ShoppingListID: order.ShoppingListID,
		AgentID:        *order.AgentID,
		AssignedAt:     *order.AcceptedAt,
	}
	if err := s.notifier.OrderAssigned(ctx, event); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "publish order assigned", err)
	}
}
