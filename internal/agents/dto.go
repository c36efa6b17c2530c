package agents

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	"github.com/marketrun/backend/pkg/pagination"
)

// LocationInput carries the fields accepted when registering a new agent
// location. Omitted coordinates default to 0/0, the radius to 5 km, and the
// active flag to true.
type LocationInput struct {
	Name      *string
	Address   *string
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	IsActive  *bool
}

// LocationPatch holds a partial update; only non-nil fields are written.
type LocationPatch struct {
	Name      *string
	Address   *string
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	IsActive  *bool
}

// Updates converts the patch into a gorm updates map.
func (p LocationPatch) Updates() map[string]any {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Address != nil {
		updates["address"] = *p.Address
	}
	if p.Latitude != nil {
		updates["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		updates["longitude"] = *p.Longitude
	}
	if p.RadiusKm != nil {
		updates["radius_km"] = *p.RadiusKm
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	return updates
}

// StatusView is the agent's reported availability snapshot.
type StatusView struct {
	Status            enums.AgentStatus `json:"status"`
	IsAcceptingOrders bool              `json:"is_accepting_orders"`
	LastStatusUpdate  time.Time         `json:"last_status_update"`
}

// DocumentsInput updates an agent's verification documents. Images are
// appended to whatever is already stored.
type DocumentsInput struct {
	NIN    *string
	Images []string
}

// AgentQuery filters the agent listing.
type AgentQuery struct {
	Q        string
	IsActive *bool
	Page     pagination.Params
}

// AgentList is a page of agents plus total bookkeeping.
type AgentList struct {
	Agents     []models.User `json:"agents"`
	Count      int64         `json:"count"`
	TotalPages int           `json:"total_pages,omitempty"`
}

// AgentStats aggregates an agent's order history.
type AgentStats struct {
	TotalOrders     int64 `json:"total_orders"`
	CompletedOrders int64 `json:"completed_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
	PendingOrders   int64 `json:"pending_orders"`
	UniqueMarkets   int64 `json:"unique_markets"`
}

// Candidate pairs an agent with the distance of their closest active location
// to the search target.
type Candidate struct {
	Agent      models.User `json:"agent"`
	DistanceKm float64     `json:"distance_km"`
}

// SearchParams tunes the expanding-radius proximity search. Zero values fall
// back to the platform defaults (5/20/5 km, 10 results).
type SearchParams struct {
	InitialRadiusKm float64
	MaxRadiusKm     float64
	StepKm          float64
	Limit           int
}

// DefaultSearchParams are the dispatch defaults used for order matching.
var DefaultSearchParams = SearchParams{
	InitialRadiusKm: 5,
	MaxRadiusKm:     20,
	StepKm:          5,
	Limit:           10,
}

func (p SearchParams) normalized() SearchParams {
	if p.InitialRadiusKm <= 0 {
		p.InitialRadiusKm = DefaultSearchParams.InitialRadiusKm
	}
	if p.MaxRadiusKm <= 0 {
		p.MaxRadiusKm = DefaultSearchParams.MaxRadiusKm
	}
	if p.StepKm <= 0 {
		p.StepKm = DefaultSearchParams.StepKm
	}
	if p.Limit <= 0 {
		p.Limit = DefaultSearchParams.Limit
	}
	return p
}

// OrderAssignedEvent is published after an assignment transaction commits.
type OrderAssignedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	ShoppingListID uuid.UUID `json:"shopping_list_id"`
	AgentID        uuid.UUID `json:"agent_id"`
	AssignedAt     time.Time `json:"assigned_at"`
}
