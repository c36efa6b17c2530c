package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns account lifecycle: registration, lookup, partial updates,
// settings, and Google profile sync.
type Service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
}

// NewService builds the users service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{repo: params.Repo, tx: params.Tx, logg: params.Logger}, nil
}

// Create registers a new account. The user row and its settings row commit
// together or not at all.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	exists, err := s.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	user := input.ToModel()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		settings := &models.UserSettings{UserID: user.ID}
		if err := repo.CreateSettings(ctx, settings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user settings")
		}
		user.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "user created")
	}
	return user, nil
}

// EmailAvailable reports whether the address is free to register.
func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	return !exists, nil
}

// FindByEmail loads one account by address.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

// GetByID loads one account with its settings.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

// List returns accounts matching the query with optional pagination.
func (s *Service) List(ctx context.Context, query UserQuery) (*UserList, error) {
	all, count, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	list := &UserList{Users: all, Count: count}
	if query.Page.Enabled() {
		size, _ := query.Page.LimitOffset()
		list.TotalPages = pagination.TotalPages(count, size)
	}
	return list, nil
}

// Update applies a partial account update and returns the fresh row.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, patch.Updates()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return s.GetByID(ctx, id)
}

// UpdateSettings applies a partial settings update and returns the fresh row.
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, patch SettingsPatch) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user settings not found")
	}

	if patch.JoinDate != nil {
		user.Settings.JoinDate = patch.JoinDate
	}
	if patch.IsBlocked != nil {
		user.Settings.IsBlocked = *patch.IsBlocked
	}
	if patch.IsDeactivated != nil {
		user.Settings.IsDeactivated = *patch.IsDeactivated
	}

	if err := s.repo.SaveSettings(ctx, user.Settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user settings")
	}
	return user, nil
}

// Delete permanently removes the account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// FindOrCreateByGoogleProfile syncs a Google sign-in onto an account.
// An account already linked to the Google id is returned untouched; an
// account matched by email gets linked and its address marked verified;
// otherwise a fresh verified customer account is created.
func (s *Service) FindOrCreateByGoogleProfile(ctx context.Context, profile GoogleProfile) (*models.User, error) {
	if profile.GoogleID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "google id is required")
	}
	profile.Email = normalizeEmail(profile.Email)
	if profile.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.repo.FindByGoogleID(ctx, profile.GoogleID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	user, err = s.repo.FindByEmail(ctx, profile.Email)
	if err == nil {
		user.GoogleID = &profile.GoogleID
		user.EmailVerified = true
		if user.DisplayImage == nil {
			user.DisplayImage = profile.Picture
		}
		if err := s.repo.Save(ctx, user); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link google account")
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	created := &models.User{
		Email:         profile.Email,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		DisplayImage:  profile.Picture,
		GoogleID:      &profile.GoogleID,
		Role:          enums.UserRoleCustomer,
		Activated:     true,
		EmailVerified: true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		settings := &models.UserSettings{UserID: created.ID}
		if err := repo.CreateSettings(ctx, settings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user settings")
		}
		created.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
