package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marketrun/backend/api/controllers"
	"github.com/marketrun/backend/api/middleware"
	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/internal/markets"
	"github.com/marketrun/backend/internal/users"
	"github.com/marketrun/backend/pkg/config"
	"github.com/marketrun/backend/pkg/db"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Users   *users.Service
	Agents  *agents.Service
	Matcher *agents.Matcher
	Markets markets.Repository
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", controllers.UserCreate(deps.Users, logg))
		r.Get("/", controllers.UserList(deps.Users, logg))
		r.Get("/email-available", controllers.UserEmailAvailable(deps.Users, logg))
		r.Post("/google-sync", controllers.UserGoogleSync(deps.Users, logg))
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", controllers.UserGet(deps.Users, logg))
			r.Patch("/", controllers.UserUpdate(deps.Users, logg))
			r.Delete("/", controllers.UserDelete(deps.Users, logg))
			r.Patch("/settings", controllers.UserUpdateSettings(deps.Users, logg))
		})
	})

	r.Route("/api/v1/agents", func(r chi.Router) {
		r.Get("/", controllers.AgentList(deps.Agents, logg))
		r.Get("/available", controllers.AgentAvailable(deps.Agents, logg))
		r.Get("/nearby", controllers.AgentsNearby(deps.Matcher, deps.Config.Matching, logg))
		r.Route("/{agentID}", func(r chi.Router) {
			r.Get("/", controllers.AgentGet(deps.Agents, logg))
			r.Get("/stats", controllers.AgentStats(deps.Agents, logg))
			r.Get("/status", controllers.AgentStatusGet(deps.Agents, logg))
			r.Put("/status", controllers.AgentStatusSet(deps.Agents, logg))
			r.Put("/accepting-orders", controllers.AgentAcceptingSet(deps.Agents, logg))
			r.Put("/documents", controllers.AgentDocumentsUpdate(deps.Agents, logg))
			r.Route("/locations", func(r chi.Router) {
				r.Post("/", controllers.AgentLocationCreate(deps.Agents, logg))
				r.Get("/", controllers.AgentLocationList(deps.Agents, logg))
				r.Patch("/{locationID}", controllers.AgentLocationUpdate(deps.Agents, logg))
				r.Delete("/{locationID}", controllers.AgentLocationDelete(deps.Agents, logg))
			})
		})
	})

	r.Route("/api/v1/markets", func(r chi.Router) {
		r.Post("/", controllers.MarketCreate(deps.Markets, logg))
		r.Get("/", controllers.MarketList(deps.Markets, logg))
		r.Get("/{marketID}", controllers.MarketGet(deps.Markets, logg))
		r.Get("/{marketID}/agents", controllers.AgentsForMarket(deps.Matcher, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/{orderID}/assign", controllers.OrderAssign(deps.Agents, logg))
	})

	return r
}
