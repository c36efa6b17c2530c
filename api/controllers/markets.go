package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/marketrun/backend/api/responses"
	"github.com/marketrun/backend/api/validators"
	"github.com/marketrun/backend/internal/markets"
	"github.com/marketrun/backend/pkg/db/models"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/types"
)

type createMarketRequest struct {
	Name       string   `json:"name" validate:"required,min=1"`
	Address    *string  `json:"address,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Categories []string `json:"categories,omitempty"`
}

// MarketCreate registers a marketplace.
func MarketCreate(repo markets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createMarketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if (payload.Latitude == nil) != (payload.Longitude == nil) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together"))
			return
		}

		market := &models.Market{
			Name:       payload.Name,
			Address:    payload.Address,
			Categories: payload.Categories,
		}
		if payload.Latitude != nil {
			market.Location = &types.GeographyPoint{Lat: *payload.Latitude, Lng: *payload.Longitude}
		}

		if err := repo.Create(r.Context(), market); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create market"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, market)
	}
}

// MarketGet loads one market by id.
func MarketGet(repo markets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "marketID"), "marketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		market, err := repo.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
			} else {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, market)
	}
}

// MarketList returns every registered market.
func MarketList(repo markets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list markets"))
			return
		}

		responses.WriteSuccess(w, all)
	}
}
