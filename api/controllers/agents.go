package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marketrun/backend/api/responses"
	"github.com/marketrun/backend/api/validators"
	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/internal/users"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
)

// AgentList returns agents matching the optional search/filters.
func AgentList(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := agents.AgentQuery{
			Q:    strings.TrimSpace(r.URL.Query().Get("q")),
			Page: page,
		}
		if query.IsActive, err = validators.ParseQueryBool(r, "is_active"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.GetAgents(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]*users.UserDTO, 0, len(list.Agents))
		for i := range list.Agents {
			dtos = append(dtos, users.FromModel(&list.Agents[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"agents":      dtos,
			"count":       list.Count,
			"total_pages": list.TotalPages,
		})
	}
}

// AgentGet loads one agent by id.
func AgentGet(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.GetAgent(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(agent))
	}
}

// AgentStats aggregates the agent's order history counters.
func AgentStats(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.GetAgentStats(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// AgentAvailable lists every agent currently open for orders.
func AgentAvailable(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		available, err := svc.ListAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]*users.UserDTO, 0, len(available))
		for i := range available {
			dtos = append(dtos, users.FromModel(&available[i]))
		}
		responses.WriteSuccess(w, dtos)
	}
}

// AgentStatusGet reports the agent's availability snapshot.
func AgentStatusGet(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetStatus(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

type setStatusRequest struct {
	Status            string `json:"status" validate:"required,oneof=available busy away offline"`
	IsAcceptingOrders *bool  `json:"is_accepting_orders"`
}

// AgentStatusSet changes the agent's availability.
func AgentStatusSet(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseAgentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		// Omitting the flag means the agent is taking work.
		accepting := true
		if payload.IsAcceptingOrders != nil {
			accepting = *payload.IsAcceptingOrders
		}

		agent, err := svc.SetStatus(r.Context(), id, status, accepting)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(agent))
	}
}

type setAcceptingRequest struct {
	IsAcceptingOrders *bool `json:"is_accepting_orders" validate:"required"`
}

// AgentAcceptingSet flips only the accepting-orders flag.
func AgentAcceptingSet(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setAcceptingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.SetAcceptingOrders(r.Context(), id, *payload.IsAcceptingOrders)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(agent))
	}
}

type documentsRequest struct {
	NIN    *string  `json:"nin,omitempty" validate:"omitempty,min=1"`
	Images []string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// AgentDocumentsUpdate stores the agent's verification documents.
func AgentDocumentsUpdate(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload documentsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.UpdateDocuments(r.Context(), id, agents.DocumentsInput{
			NIN:    payload.NIN,
			Images: payload.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(agent))
	}
}

type locationRequest struct {
	Name      *string  `json:"name,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	RadiusKm  *float64 `json:"radius_km,omitempty" validate:"omitempty,gt=0"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// AgentLocationCreate registers a new preferred location.
func AgentLocationCreate(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload locationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.AddLocation(r.Context(), id, agents.LocationInput{
			Name:      payload.Name,
			Address:   payload.Address,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			RadiusKm:  payload.RadiusKm,
			IsActive:  payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, location)
	}
}

// AgentLocationList returns every location for the agent.
func AgentLocationList(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		locations, err := svc.ListLocations(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, locations)
	}
}

// AgentLocationUpdate applies a partial update to one location.
func AgentLocationUpdate(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := validators.ParseURLUUID(chi.URLParam(r, "locationID"), "locationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload locationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.UpdateLocation(r.Context(), agentID, locationID, agents.LocationPatch{
			Name:      payload.Name,
			Address:   payload.Address,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			RadiusKm:  payload.RadiusKm,
			IsActive:  payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, location)
	}
}

// AgentLocationDelete removes one location.
func AgentLocationDelete(svc *agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := validators.ParseURLUUID(chi.URLParam(r, "agentID"), "agentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := validators.ParseURLUUID(chi.URLParam(r, "locationID"), "locationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteLocation(r.Context(), agentID, locationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
