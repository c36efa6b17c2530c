package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marketrun/backend/pkg/enums"
)

// UserSettings carries per-account flags plus the agent operational state.
// Blocked/deactivated are owned here rather than on the user row.
type UserSettings struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	JoinDate      *string   `gorm:"column:join_date"`
	IsBlocked     bool      `gorm:"column:is_blocked;not null;default:false"`
	IsDeactivated bool      `gorm:"column:is_deactivated;not null;default:false"`
	AgentMeta     AgentMeta `gorm:"embedded"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AgentMeta is the agent-only state embedded in a settings row. Status and
// accepting-orders are plain typed columns so matching can use equality
// predicates. Every mutation goes through the methods below so the
// status-updated timestamp can never go stale.
type AgentMeta struct {
	NIN                string            `gorm:"column:agent_nin;not null;default:''"`
	VerificationImages pq.StringArray    `gorm:"column:agent_verification_images;type:text[]"`
	Status             enums.AgentStatus `gorm:"column:agent_status;type:text;not null;default:'offline'"`
	AcceptingOrders    bool              `gorm:"column:agent_accepting_orders;not null;default:false"`
	StatusUpdatedAt    *time.Time        `gorm:"column:agent_status_updated_at"`
}

// SetStatus changes the agent's availability and refreshes the timestamp.
func (m *AgentMeta) SetStatus(status enums.AgentStatus, acceptingOrders bool, at time.Time) {
	m.Status = status
	m.AcceptingOrders = acceptingOrders
	m.StatusUpdatedAt = &at
}

// SetAcceptingOrders flips only the accepting flag, timestamp included.
func (m *AgentMeta) SetAcceptingOrders(acceptingOrders bool, at time.Time) {
	m.AcceptingOrders = acceptingOrders
	m.StatusUpdatedAt = &at
}

// SetBusy marks the agent busy and closed to new orders.
func (m *AgentMeta) SetBusy(at time.Time) {
	m.SetStatus(enums.AgentStatusBusy, false, at)
}

// AppendImages grows the verification image list. Existing references are
// never replaced, uploads only concatenate.
func (m *AgentMeta) AppendImages(images []string) {
	if len(images) == 0 {
		return
	}
	m.VerificationImages = append(m.VerificationImages, images...)
}

// EffectiveStatus returns the stored status or the offline default when the
// agent has never reported one.
func (m *AgentMeta) EffectiveStatus() enums.AgentStatus {
	if m == nil || !m.Status.IsValid() {
		return enums.AgentStatusOffline
	}
	return m.Status
}

// LastStatusUpdate returns the stored timestamp or the provided fallback.
func (m *AgentMeta) LastStatusUpdate(fallback time.Time) time.Time {
	if m == nil || m.StatusUpdatedAt == nil {
		return fallback
	}
	return *m.StatusUpdatedAt
}
