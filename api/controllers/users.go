package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marketrun/backend/api/responses"
	"github.com/marketrun/backend/api/validators"
	"github.com/marketrun/backend/internal/users"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/pagination"
)

type createUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required,min=1"`
	LastName  string  `json:"last_name" validate:"required,min=1"`
	Phone     *string `json:"phone,omitempty"`
	Role      string  `json:"role,omitempty" validate:"omitempty,oneof=customer agent admin"`
}

// UserCreate registers a new account.
func UserCreate(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Create(r.Context(), users.CreateUserInput{
			Email:     payload.Email,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Phone:     payload.Phone,
			Role:      enums.UserRole(payload.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, users.FromModel(user))
	}
}

// UserGet loads one account by id.
func UserGet(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// UserList returns accounts matching the optional search/filters.
func UserList(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := users.UserQuery{
			Q:    strings.TrimSpace(r.URL.Query().Get("q")),
			Page: page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			role, parseErr := enums.ParseUserRole(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid role filter"))
				return
			}
			query.Role = &role
		}
		if query.IsBlocked, err = validators.ParseQueryBool(r, "is_blocked"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.IsDeactivated, err = validators.ParseQueryBool(r, "is_deactivated"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]*users.UserDTO, 0, len(list.Users))
		for i := range list.Users {
			dtos = append(dtos, users.FromModel(&list.Users[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"users":       dtos,
			"count":       list.Count,
			"total_pages": list.TotalPages,
		})
	}
}

type updateUserRequest struct {
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,min=1"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,min=1"`
	Phone        *string `json:"phone,omitempty"`
	DisplayImage *string `json:"display_image,omitempty"`
	Activated    *bool   `json:"activated,omitempty"`
}

// UserUpdate applies a partial account update.
func UserUpdate(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Update(r.Context(), id, users.UserPatch{
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Phone:        payload.Phone,
			DisplayImage: payload.DisplayImage,
			Activated:    payload.Activated,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}

type updateSettingsRequest struct {
	JoinDate      *string `json:"join_date,omitempty"`
	IsBlocked     *bool   `json:"is_blocked,omitempty"`
	IsDeactivated *bool   `json:"is_deactivated,omitempty"`
}

// UserUpdateSettings applies a partial settings update.
func UserUpdateSettings(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateSettings(r.Context(), id, users.SettingsPatch{
			JoinDate:      payload.JoinDate,
			IsBlocked:     payload.IsBlocked,
			IsDeactivated: payload.IsDeactivated,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// UserDelete permanently removes the account.
func UserDelete(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseURLUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// UserEmailAvailable reports whether an address is free to register.
func UserEmailAvailable(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.URL.Query().Get("email"))

		available, err := svc.EmailAvailable(r.Context(), email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"available": available})
	}
}

type googleSyncRequest struct {
	GoogleID  string  `json:"google_id" validate:"required,min=1"`
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Picture   *string `json:"picture,omitempty"`
}

// UserGoogleSync finds or creates the account behind a Google profile.
func UserGoogleSync(svc *users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload googleSyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.FindOrCreateByGoogleProfile(r.Context(), users.GoogleProfile{
			GoogleID:  payload.GoogleID,
			Email:     payload.Email,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Picture:   payload.Picture,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, users.FromModel(user))
	}
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 0, 0, 1<<20)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "size", 0, 0, pagination.MaxSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Size: size}, nil
}
