package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hardcoverhq/bookstore-backend/internal/balance"
	"github.com/hardcoverhq/bookstore-backend/internal/users"
	pkgauth "github.com/hardcoverhq/bookstore-backend/pkg/auth"
	"github.com/hardcoverhq/bookstore-backend/pkg/config"
	"github.com/hardcoverhq/bookstore-backend/pkg/db"
	"github.com/hardcoverhq/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/hardcoverhq/bookstore-backend/pkg/errors"
	"github.com/hardcoverhq/bookstore-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionRegistry interface {
	Put(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

// Service exposes identity operations: register, login, logout.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, accessID string) error
}

type service struct {
	users    users.Repository
	balances balance.Repository
	tx       txRunner
	sessions sessionRegistry
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	now      func() time.Time
}

// NewService builds an auth service backed by the provided stack.
func NewService(
	userRepo users.Repository,
	balanceRepo balance.Repository,
	tx txRunner,
	sessions sessionRegistry,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
) (Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if balanceRepo == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	return &service{
		users:    userRepo,
		balances: balanceRepo,
		tx:       tx,
		sessions: sessions,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// RegisterInput captures the payload required to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates the user together with their zero balance row, so every
// account can be checked for funds without a missing-row special case.
func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Role:         models.RoleCustomer,
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if err := s.balances.WithTx(tx).Create(ctx, &models.Balance{
			UserID: user.ID,
			Amount: decimal.Zero,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a JWT whose jti is registered as a
// live session.
func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	jti := uuid.NewString()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
	})
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	if err := s.sessions.Put(ctx, jti); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register session")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "touch last login")
	}

	return token, user, nil
}

// Logout revokes the session tied to the token's jti. The JWT itself stays
// valid until expiry; the session registry is what the auth middleware
// consults.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}
