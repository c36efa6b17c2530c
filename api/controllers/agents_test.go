package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
)

type stubStatusRepo struct {
	agents.Repository

	user  *models.User
	saved *models.UserSettings
}

func (s *stubStatusRepo) FindUserWithSettings(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, nil
}

func (s *stubStatusRepo) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	s.saved = settings
	return nil
}

type stubHandlerTx struct{}

func (stubHandlerTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newStatusTestService(t *testing.T, repo *stubStatusRepo) *agents.Service {
	t.Helper()
	svc, err := agents.NewService(agents.ServiceParams{Repo: repo, Tx: stubHandlerTx{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func newStatusAgent() *models.User {
	id := uuid.New()
	return &models.User{
		ID:        id,
		Email:     "agent@marketrun.test",
		FirstName: "Folake",
		LastName:  "Adewale",
		Role:      enums.UserRoleAgent,
		Activated: true,
		Settings: &models.UserSettings{UserID: id},
	}
}

func withAgentID(req *http.Request, agentID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("agentID", agentID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestAgentStatusSetDefaultsAcceptingOrders(t *testing.T) {
	agent := newStatusAgent()
	repo := &stubStatusRepo{user: agent}
	handler := AgentStatusSet(newStatusTestService(t, repo), nil)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"available"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withAgentID(req, agent.ID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if repo.saved == nil {
		t.Fatal("expected settings to be saved")
	}
	if repo.saved.AgentMeta.Status != enums.AgentStatusAvailable {
		t.Fatalf("unexpected status %q", repo.saved.AgentMeta.Status)
	}
	if !repo.saved.AgentMeta.AcceptingOrders {
		t.Fatal("omitted is_accepting_orders should default to accepting")
	}
}

func TestAgentStatusSetExplicitAcceptingFalse(t *testing.T) {
	agent := newStatusAgent()
	repo := &stubStatusRepo{user: agent}
	handler := AgentStatusSet(newStatusTestService(t, repo), nil)

	body := `{"status":"available","is_accepting_orders":false}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withAgentID(req, agent.ID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if repo.saved == nil {
		t.Fatal("expected settings to be saved")
	}
	if repo.saved.AgentMeta.AcceptingOrders {
		t.Fatal("explicit false should be stored as false")
	}
}

func TestAgentStatusSetRejectsUnknownValue(t *testing.T) {
	agent := newStatusAgent()
	repo := &stubStatusRepo{user: agent}
	handler := AgentStatusSet(newStatusTestService(t, repo), nil)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"sleeping"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withAgentID(req, agent.ID))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if repo.saved != nil {
		t.Fatal("invalid status must not be saved")
	}
}
