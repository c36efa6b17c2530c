package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marketrun/backend/api/responses"
	"github.com/marketrun/backend/api/validators"
	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/pkg/config"
	"github.com/marketrun/backend/pkg/logger"
)

// AgentsNearby finds agents around a raw coordinate using the configured
// search policy.
func AgentsNearby(matcher *agents.Matcher, cfg config.MatchingConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := validators.ParseQueryFloat(r, "lat", -90, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng", -180, 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", cfg.Limit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		candidates, err := matcher.FindNearby(r.Context(), lat, lng, agents.SearchParams{
			InitialRadiusKm: cfg.InitialRadiusKm,
			MaxRadiusKm:     cfg.MaxRadiusKm,
			StepKm:          cfg.StepKm,
			Limit:           limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, candidates)
	}
}

// AgentsForMarket shortlists agents for an order placed at a market.
func AgentsForMarket(matcher *agents.Matcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := validators.ParseURLUUID(chi.URLParam(r, "marketID"), "marketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var exclude []uuid.UUID
		for _, raw := range r.URL.Query()["exclude"] {
			id, parseErr := validators.ParseURLUUID(raw, "exclude")
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			exclude = append(exclude, id)
		}

		candidates, err := matcher.AvailableForOrder(r.Context(), marketID, exclude)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, candidates)
	}
}

type assignOrderRequest struct {
	AgentID string `json:"agent_id" validate:"required,uuid4"`
}

// OrderAssign binds a pending order to an agent.
func OrderAssign(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseURLUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agentID, err := validators.ParseURLUUID(payload.AgentID, "agent_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AssignOrder(r.Context(), orderID, agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
