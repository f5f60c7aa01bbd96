package service

import (
	"context"
	"strings"
	"time"

	"pilotopos/internal/metrics"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"
	"pilotopos/pkg/jwt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoginResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, tenant database.Tenant, username, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, tenant database.Tenant, token string) (*model.User, error)
	User(ctx context.Context, tenant database.Tenant, id uint) (*model.User, error)
	EnsureAdmin(ctx context.Context, tenant database.Tenant, username, password string) (bool, error)
}

type authService struct {
	db       *database.DB
	userRepo repository.UserRepository
	issuer   *jwt.Issuer
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewAuthService(db *database.DB, userRepo repository.UserRepository, issuer *jwt.Issuer, m *metrics.Metrics, log *zap.Logger) AuthService {
	return &authService{db: db, userRepo: userRepo, issuer: issuer, metrics: m, log: log.Named("auth")}
}

// Login checks the credentials, records the access and rotates the token
// version so older bearer tokens stop working. Unknown user, wrong password
// and inactive account all answer ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, tenant database.Tenant, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.RecordLogin("rejected")
		return nil, ErrInvalidCredentials
	}

	var user *model.User
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.FindByUsername(tx, username)
		if err != nil {
			return notFound(err, ErrInvalidCredentials)
		}
		if !user.Active || !user.CheckPassword(password) {
			return ErrInvalidCredentials
		}

		now := time.Now()
		user.LastAccess = &now
		user.TokenVersion = uuid.NewString()
		if err := s.userRepo.TouchLastAccess(tx, user.ID, now); err != nil {
			return errors.Wrap(err, "record access")
		}
		return errors.Wrap(s.userRepo.UpdateTokenVersion(tx, user.ID, user.TokenVersion), "rotate token version")
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordLogin("rejected")
			s.log.Info("login rejected", zap.String("username", username))
		}
		return nil, err
	}

	result := &LoginResult{User: user}
	if s.issuer != nil {
		token, err := s.issuer.GenerateToken(user.ID, user.Username, string(tenant), user.TokenVersion)
		if err != nil {
			return nil, errors.Wrap(err, "generate token")
		}
		result.Token = token
	}

	s.metrics.RecordLogin("ok")
	s.log.Info("login", zap.String("username", username))
	return result, nil
}

// Authenticate resolves a bearer token to its active user.
func (s *authService) Authenticate(ctx context.Context, tenant database.Tenant, token string) (*model.User, error) {
	if s.issuer == nil {
		return nil, jwt.ErrInvalidToken
	}
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Tenant != string(tenant) {
		return nil, jwt.ErrInvalidToken
	}

	user, err := s.User(ctx, tenant, claims.UserID)
	if err != nil {
		return nil, jwt.ErrInvalidToken
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, jwt.ErrInvalidToken
	}
	return user, nil
}

// User returns the active user with id. Deactivated accounts read as missing.
func (s *authService) User(ctx context.Context, tenant database.Tenant, id uint) (*model.User, error) {
	var user *model.User
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.FindByID(tx, id)
		return notFound(err, ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsureAdmin creates the user or resets its password and reactivates it.
// It reports whether the user was created.
func (s *authService) EnsureAdmin(ctx context.Context, tenant database.Tenant, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, invalid("username and password are required")
	}

	created := false
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByUsername(tx, username)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "load user")
		}
		if user == nil {
			user = &model.User{Username: username}
			created = true
		}
		if err := user.SetPassword(password); err != nil {
			return errors.Wrap(err, "hash password")
		}
		user.Active = true
		user.TokenVersion = uuid.NewString()
		if created {
			return s.userRepo.Create(tx, user)
		}
		return s.userRepo.Update(tx, user)
	})
	if err != nil {
		return false, err
	}

	s.log.Info("admin user ensured", zap.String("username", username), zap.Bool("created", created))
	return created, nil
}
