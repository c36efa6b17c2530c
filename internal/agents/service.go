package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/pagination"
)

// Service owns agent operational state: preferred locations, availability
// status, verification documents, and the order-assignment workflow.
type Service struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	notifier AssignmentNotifier
	now      func() time.Time
}

// ServiceParams collects the service dependencies. Notifier is optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Logger   *logger.Logger
	Notifier AssignmentNotifier
}

// NewService builds the agent service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		logg:     params.Logger,
		notifier: params.Notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// AddLocation registers a new preferred location for the agent, applying the
// platform defaults for omitted fields.
func (s *Service) AddLocation(ctx context.Context, agentID uuid.UUID, input LocationInput) (*models.AgentLocation, error) {
	agent, err := s.loadAgent(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}

	location := &models.AgentLocation{
		AgentID:  agent.ID,
		Name:     input.Name,
		Address:  input.Address,
		RadiusKm: models.DefaultLocationRadiusKm,
		IsActive: true,
	}
	if input.Latitude != nil {
		location.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		location.Longitude = *input.Longitude
	}
	if input.RadiusKm != nil {
		location.RadiusKm = *input.RadiusKm
	}
	if input.IsActive != nil {
		location.IsActive = *input.IsActive
	}

	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent location")
	}
	return location, nil
}

// UpdateLocation applies a partial update to one of the agent's locations.
func (s *Service) UpdateLocation(ctx context.Context, agentID, locationID uuid.UUID, patch LocationPatch) (*models.AgentLocation, error) {
	if _, err := s.findLocation(ctx, agentID, locationID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLocation(ctx, locationID, patch.Updates()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent location")
	}
	return s.findLocation(ctx, agentID, locationID)
}

// DeleteLocation permanently removes one of the agent's locations.
func (s *Service) DeleteLocation(ctx context.Context, agentID, locationID uuid.UUID) error {
	rows, err := s.repo.DeleteLocation(ctx, agentID, locationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete agent location")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
	}
	return nil
}

// ListLocations returns every location for the agent, active or not. Callers
// must not rely on ordering.
func (s *Service) ListLocations(ctx context.Context, agentID uuid.UUID) ([]models.AgentLocation, error) {
	locations, err := s.repo.ListLocations(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agent locations")
	}
	return locations, nil
}

// GetStatus reports the agent's current availability, falling back to the
// offline defaults when no status was ever recorded.
func (s *Service) GetStatus(ctx context.Context, agentID uuid.UUID) (StatusView, error) {
	user, err := s.repo.FindUserWithSettings(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StatusView{}, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return StatusView{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if !user.IsAgent() {
		return StatusView{}, pkgerrors.New(pkgerrors.CodeValidation, "user is not an agent")
	}

	now := s.now()
	view := StatusView{
		Status:            enums.AgentStatusOffline,
		IsAcceptingOrders: false,
		LastStatusUpdate:  now,
	}
	if user.Settings != nil {
		meta := &user.Settings.AgentMeta
		view.Status = meta.EffectiveStatus()
		view.IsAcceptingOrders = meta.AcceptingOrders
		view.LastStatusUpdate = meta.LastStatusUpdate(now)
	}
	return view, nil
}

// SetStatus changes the agent's availability and always refreshes the
// status-updated timestamp.
func (s *Service) SetStatus(ctx context.Context, agentID uuid.UUID, status enums.AgentStatus, acceptingOrders bool) (*models.User, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid agent status %q", status))
	}

	user, err := s.loadUserSettings(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}

	user.Settings.AgentMeta.SetStatus(status, acceptingOrders, s.now())
	if err := s.repo.SaveSettings(ctx, user.Settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save agent status")
	}
	return user, nil
}

// SetAcceptingOrders flips only the accepting flag, leaving status untouched.
func (s *Service) SetAcceptingOrders(ctx context.Context, agentID uuid.UUID, acceptingOrders bool) (*models.User, error) {
	user, err := s.loadUserSettings(ctx, s.repo, agentID)
	if err != nil {
		return nil, err
	}

	user.Settings.AgentMeta.SetAcceptingOrders(acceptingOrders, s.now())
	if err := s.repo.SaveSettings(ctx, user.Settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save accepting-orders flag")
	}
	return user, nil
}

// SetBusy forces the agent busy for an order in its own transaction. The
// assignment workflow uses the repository-rebound variant instead so the
// write joins the ambient transaction.
func (s *Service) SetBusy(ctx context.Context, agentID, orderID uuid.UUID) (*models.User, error) {
	var agent *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var innerErr error
		agent, innerErr = s.markBusy(ctx, s.repo.WithTx(tx), agentID, orderID, s.now())
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// markBusy loads the agent via the given repository binding (which may carry
// an ambient transaction) and persists the busy state.
func (s *Service) markBusy(ctx context.Context, repo Repository, agentID, orderID uuid.UUID, at time.Time) (*models.User, error) {
	agent, err := repo.FindAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user settings not found")
	}

	agent.Settings.AgentMeta.SetBusy(at)
	if err := repo.SaveSettings(ctx, agent.Settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save agent status")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"agent_id": agentID.String(),
			"order_id": orderID.String(),
		}), "agent marked busy")
	}
	return agent, nil
}

// ListAvailable returns every agent currently available and accepting orders.
func (s *Service) ListAvailable(ctx context.Context) ([]models.User, error) {
	agents, err := s.repo.ListAvailableAgents(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available agents")
	}
	return agents, nil
}

// UpdateDocuments stores the agent's national ID and appends any newly
// uploaded verification images.
func (s *Service) UpdateDocuments(ctx context.Context, agentID uuid.UUID, docs DocumentsInput) (*models.User, error) {
	var agent *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var innerErr error
		agent, innerErr = repo.FindAgent(ctx, agentID)
		if innerErr != nil {
			if errors.Is(innerErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "load agent")
		}
		if agent.Settings == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user settings not found")
		}

		meta := &agent.Settings.AgentMeta
		if docs.NIN != nil {
			meta.NIN = *docs.NIN
		}
		meta.AppendImages(docs.Images)

		if innerErr := repo.SaveSettings(ctx, agent.Settings); innerErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, innerErr, "save agent documents")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgents lists agents with optional search and pagination.
func (s *Service) GetAgents(ctx context.Context, query AgentQuery) (*AgentList, error) {
	agents, count, err := s.repo.ListAgents(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}

	list := &AgentList{Agents: agents, Count: count}
	if query.Page.Enabled() {
		size, _ := query.Page.LimitOffset()
		list.TotalPages = pagination.TotalPages(count, size)
	}
	return list, nil
}

// GetAgent loads one agent by id.
func (s *Service) GetAgent(ctx context.Context, agentID uuid.UUID) (*models.User, error) {
	agent, err := s.repo.FindAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return agent, nil
}

// GetAgentStats aggregates the agent's order history counters.
func (s *Service) GetAgentStats(ctx context.Context, agentID uuid.UUID) (*AgentStats, error) {
	stats := &AgentStats{}

	var err error
	if stats.TotalOrders, err = s.repo.CountOrdersByAgent(ctx, agentID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	if stats.CompletedOrders, err = s.repo.CountOrdersByAgent(ctx, agentID, []string{string(enums.OrderStatusCompleted)}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed orders")
	}
	if stats.CancelledOrders, err = s.repo.CountOrdersByAgent(ctx, agentID, []string{string(enums.OrderStatusCancelled)}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cancelled orders")
	}
	open := []string{
		string(enums.OrderStatusPending),
		string(enums.OrderStatusAccepted),
		string(enums.OrderStatusInProgress),
	}
	if stats.PendingOrders, err = s.repo.CountOrdersByAgent(ctx, agentID, open); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
	}
	if stats.UniqueMarkets, err = s.repo.CountDistinctMarketsByAgent(ctx, agentID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count markets")
	}
	return stats, nil
}

func (s *Service) loadAgent(ctx context.Context, repo Repository, agentID uuid.UUID) (*models.User, error) {
	user, err := repo.FindUserWithSettings(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if !user.IsAgent() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not an agent")
	}
	return user, nil
}

func (s *Service) loadUserSettings(ctx context.Context, repo Repository, userID uuid.UUID) (*models.User, error) {
	user, err := repo.FindUserWithSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user settings not found")
	}
	return user, nil
}

func (s *Service) findLocation(ctx context.Context, agentID, locationID uuid.UUID) (*models.AgentLocation, error) {
	location, err := s.repo.FindLocation(ctx, agentID, locationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load location")
	}
	return location, nil
}
