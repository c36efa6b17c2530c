package agents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/pagination"
)

func setupAgentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  display_image TEXT,
  google_id TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  activated INTEGER NOT NULL DEFAULT 0,
  email_verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	settings := `
CREATE TABLE IF NOT EXISTS user_settings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  join_date TEXT,
  is_blocked INTEGER NOT NULL DEFAULT 0,
  is_deactivated INTEGER NOT NULL DEFAULT 0,
  agent_nin TEXT NOT NULL DEFAULT '',
  agent_verification_images TEXT,
  agent_status TEXT NOT NULL DEFAULT 'offline',
  agent_accepting_orders INTEGER NOT NULL DEFAULT 0,
  agent_status_updated_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	locations := `
CREATE TABLE IF NOT EXISTS agent_locations (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  name TEXT,
  address TEXT,
  latitude REAL NOT NULL DEFAULT 0,
  longitude REAL NOT NULL DEFAULT 0,
  radius_km REAL NOT NULL DEFAULT 5,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  shopping_list_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  agent_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  accepted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	lists := `
CREATE TABLE IF NOT EXISTS shopping_lists (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  market_id TEXT NOT NULL,
  agent_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(settings).Error)
	require.NoError(t, db.Exec(locations).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(lists).Error)
	return db
}

type seededAgent struct {
	user     *models.User
	settings *models.UserSettings
}

func seedAgent(t *testing.T, db *gorm.DB, name string, status enums.AgentStatus, accepting bool) seededAgent {
	t.Helper()

	user := &models.User{
		ID:            uuid.New(),
		Email:         name + "@example.test",
		FirstName:     name,
		LastName:      "Agent",
		Role:          enums.UserRoleAgent,
		Activated:     true,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)

	settings := &models.UserSettings{ID: uuid.New(), UserID: user.ID}
	settings.AgentMeta.SetStatus(status, accepting, time.Now().UTC())
	require.NoError(t, db.Create(settings).Error)
	return seededAgent{user: user, settings: settings}
}

func seedLocation(t *testing.T, db *gorm.DB, agentID uuid.UUID, lat, lng float64, active bool) *models.AgentLocation {
	t.Helper()

	location := &models.AgentLocation{
		ID:        uuid.New(),
		AgentID:   agentID,
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  models.DefaultLocationRadiusKm,
		IsActive:  active,
	}
	require.NoError(t, db.Create(location).Error)
	return location
}

func seedOrder(t *testing.T, db *gorm.DB, marketID uuid.UUID, status enums.OrderStatus, agentID *uuid.UUID) (*models.Order, *models.ShoppingList) {
	t.Helper()

	list := &models.ShoppingList{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		MarketID:   marketID,
		Status:     status,
	}
	require.NoError(t, db.Create(list).Error)

	order := &models.Order{
		ID:             uuid.New(),
		ShoppingListID: list.ID,
		CustomerID:     list.CustomerID,
		AgentID:        agentID,
		Status:         status,
	}
	require.NoError(t, db.Create(order).Error)
	return order, list
}

func TestRepoFindEligibleAgent(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	eligible := seedAgent(t, db, "eligible", enums.AgentStatusAvailable, true)

	blocked := seedAgent(t, db, "blocked", enums.AgentStatusAvailable, true)
	blocked.settings.IsBlocked = true
	require.NoError(t, db.Save(blocked.settings).Error)

	got, err := repo.FindEligibleAgent(ctx, eligible.user.ID)
	require.NoError(t, err)
	assert.Equal(t, eligible.user.ID, got.ID)
	require.NotNil(t, got.Settings)

	_, err = repo.FindEligibleAgent(ctx, blocked.user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindEligibleAgent(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoListMatchableAgents(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	matchable := seedAgent(t, db, "matchable", enums.AgentStatusAvailable, true)
	seedLocation(t, db, matchable.user.ID, 6.52, 3.37, true)
	seedLocation(t, db, matchable.user.ID, 6.60, 3.35, false)

	noLocation := seedAgent(t, db, "nolocation", enums.AgentStatusAvailable, true)
	seedLocation(t, db, noLocation.user.ID, 6.52, 3.37, false)

	busy := seedAgent(t, db, "busy", enums.AgentStatusBusy, false)
	seedLocation(t, db, busy.user.ID, 6.52, 3.37, true)

	agents, err := repo.ListMatchableAgents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, matchable.user.ID, agents[0].ID)
	require.Len(t, agents[0].Locations, 1, "inactive locations must not preload")
	assert.True(t, agents[0].Locations[0].IsActive)

	agents, err = repo.ListMatchableAgents(ctx, []uuid.UUID{matchable.user.ID})
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestRepoListAvailableAgents(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	available := seedAgent(t, db, "available", enums.AgentStatusAvailable, true)
	seedAgent(t, db, "closed", enums.AgentStatusAvailable, false)
	seedAgent(t, db, "away", enums.AgentStatusAway, true)

	agents, err := repo.ListAvailableAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, available.user.ID, agents[0].ID)
}

func TestRepoListAgentsSearch(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ade := seedAgent(t, db, "Adewale", enums.AgentStatusOffline, false)
	seedAgent(t, db, "Chioma", enums.AgentStatusOffline, false)

	agents, count, err := repo.ListAgents(ctx, AgentQuery{Q: "adew"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, agents, 1)
	assert.Equal(t, ade.user.ID, agents[0].ID)

	deactivated := seedAgent(t, db, "Dormant", enums.AgentStatusOffline, false)
	deactivated.settings.IsDeactivated = true
	require.NoError(t, db.Save(deactivated.settings).Error)

	active := true
	agents, count, err = repo.ListAgents(ctx, AgentQuery{IsActive: &active})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	for _, agent := range agents {
		assert.NotEqual(t, deactivated.user.ID, agent.ID)
	}

	_, count, err = repo.ListAgents(ctx, AgentQuery{Page: pagination.Params{Page: 1, Size: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestRepoAcceptPendingOrderGuard(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order, _ := seedOrder(t, db, uuid.New(), enums.OrderStatusPending, nil)
	first := uuid.New()
	second := uuid.New()
	now := time.Now().UTC()

	rows, err := repo.AcceptPendingOrder(ctx, order.ID, first, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = repo.AcceptPendingOrder(ctx, order.ID, second, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows, "second accept must lose the race")

	stored, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, first, *stored.AgentID)
	assert.NotNil(t, stored.AcceptedAt)
}

func TestRepoDeleteLocationScopedToAgent(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agentID := uuid.New()
	location := seedLocation(t, db, agentID, 0, 0, true)

	rows, err := repo.DeleteLocation(ctx, uuid.New(), location.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	remaining, err := repo.ListLocations(ctx, agentID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "foreign delete must not touch the row")

	rows, err = repo.DeleteLocation(ctx, agentID, location.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)
}

func TestRepoUpdateLocationPartial(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agentID := uuid.New()
	location := seedLocation(t, db, agentID, 1, 1, true)

	radius := 12.5
	require.NoError(t, repo.UpdateLocation(ctx, location.ID, LocationPatch{RadiusKm: &radius}.Updates()))

	stored, err := repo.FindLocation(ctx, agentID, location.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, stored.RadiusKm)
	assert.Equal(t, 1.0, stored.Latitude, "untouched fields must survive")
}

func TestRepoCountDistinctMarketsByAgent(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agentID := uuid.New()
	marketA := uuid.New()
	marketB := uuid.New()
	seedOrder(t, db, marketA, enums.OrderStatusCompleted, &agentID)
	seedOrder(t, db, marketA, enums.OrderStatusCompleted, &agentID)
	seedOrder(t, db, marketB, enums.OrderStatusCancelled, &agentID)
	seedOrder(t, db, marketB, enums.OrderStatusPending, nil)

	count, err := repo.CountDistinctMarketsByAgent(ctx, agentID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	total, err := repo.CountOrdersByAgent(ctx, agentID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	completed, err := repo.CountOrdersByAgent(ctx, agentID, []string{string(enums.OrderStatusCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, completed)
}

func TestRepoUpdateShoppingListAssignment(t *testing.T) {
	db := setupAgentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, list := seedOrder(t, db, uuid.New(), enums.OrderStatusPending, nil)
	agentID := uuid.New()

	require.NoError(t, repo.UpdateShoppingListAssignment(ctx, list.ID, agentID))

	var stored models.ShoppingList
	require.NoError(t, db.First(&stored, "id = ?", list.ID).Error)
	require.NotNil(t, stored.AgentID)
	assert.Equal(t, agentID, *stored.AgentID)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
}

type failingSettingsRepo struct {
	Repository
}

func (r failingSettingsRepo) WithTx(tx *gorm.DB) Repository {
	return failingSettingsRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingSettingsRepo) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	return errStubFailure
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func TestAssignOrderRollsBackAllRows(t *testing.T) {
	db := setupAgentsTestDB(t)
	ctx := context.Background()

	agent := seedAgent(t, db, "runner", enums.AgentStatusAvailable, true)
	order, list := seedOrder(t, db, uuid.New(), enums.OrderStatusPending, nil)

	svc, err := NewService(ServiceParams{
		Repo: failingSettingsRepo{Repository: NewRepository(db)},
		Tx:   gormTxRunner{db: db},
	})
	require.NoError(t, err)

	_, err = svc.AssignOrder(ctx, order.ID, agent.user.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	var storedOrder models.Order
	require.NoError(t, db.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, storedOrder.Status)
	assert.Nil(t, storedOrder.AgentID)
	assert.Nil(t, storedOrder.AcceptedAt)

	var storedList models.ShoppingList
	require.NoError(t, db.First(&storedList, "id = ?", list.ID).Error)
	assert.Nil(t, storedList.AgentID)
	assert.Equal(t, enums.OrderStatusPending, storedList.Status)

	var storedSettings models.UserSettings
	require.NoError(t, db.First(&storedSettings, "user_id = ?", agent.user.ID).Error)
	assert.Equal(t, enums.AgentStatusAvailable, storedSettings.AgentMeta.Status)
	assert.True(t, storedSettings.AgentMeta.AcceptingOrders)
}
