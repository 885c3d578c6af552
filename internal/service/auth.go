package service

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

// Register creates a user account. Public signup always yields a student;
// a teacher account requires an authenticated teacher caller.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest, actor *auth.Identity) (model.User, error) {
	role := req.Role
	if role == "" {
		role = auth.RoleStudent
	}
	if role == auth.RoleTeacher {
		if actor == nil {
			return model.User{}, errors.Wrap(errs.ErrForbidden, "authentication required to create teacher accounts")
		}
		if !actor.IsTeacher() {
			return model.User{}, errors.Wrap(errs.ErrForbidden, "only teachers can create teacher accounts")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	return s.repo.CreateUser(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     req.FullName,
	})
}

// Login verifies credentials and rejects inactive accounts. Unknown username
// and bad password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return model.User{}, errs.ErrInvalidCredentials
	}
	if !user.Active {
		return model.User{}, errors.Wrap(errs.ErrInvalidCredentials, "user account is inactive")
	}
	return user, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID int) (model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// SetupAdmin bootstraps the first teacher account, gated by SETUP_KEY.
func (s *Service) SetupAdmin(ctx context.Context, req model.SetupAdminRequest) (model.User, error) {
	if s.cfg.SetupKey == "" || req.SetupKey != s.cfg.SetupKey {
		return model.User{}, errors.Wrap(errs.ErrForbidden, "setup not enabled")
	}
	hasTeacher, err := s.repo.HasTeacher(ctx)
	if err != nil {
		return model.User{}, err
	}
	if hasTeacher {
		return model.User{}, errors.Wrap(errs.ErrDuplicate, "a teacher account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	return s.repo.CreateUser(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         auth.RoleTeacher,
		FullName:     req.FullName,
	})
}
