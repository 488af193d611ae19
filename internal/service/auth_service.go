package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/Dave-code-creater/chiropractor-sub000/pkg/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore is the persistence surface the auth service depends on.
type UserStore interface {
	Create(user *model.User) error
	FindByEmail(email string) (*model.User, error)
	FindByID(id int64) (*model.User, error)
}

// AuthService handles registration, login and logout. Token verification
// itself lives in the middleware; this service only issues and revokes.
type AuthService struct {
	users      UserStore
	jwtManager *auth.JWTManager
	rdb        *redis.Client
	logger     *zap.Logger
}

func NewAuthService(users UserStore, jwtManager *auth.JWTManager, rdb *redis.Client, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, jwtManager: jwtManager, rdb: rdb, logger: logger}
}

// Register creates a user account. Profile rows (patient/doctor) are
// provisioned separately; a freshly registered patient without a profile is
// a supported state.
func (s *AuthService) Register(req model.RegisterRequest) (*model.LoginResponse, error) {
	if _, err := s.users.FindByEmail(req.Email); err == nil {
		return nil, apierr.Conflict(0, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Internal("failed to check existing user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal("failed to hash password", err)
	}

	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(user); err != nil {
		return nil, apierr.Internal("failed to create user", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return s.issue(user)
}

// Login verifies credentials and issues a token carrying {user_id, role}.
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Unauthorized("invalid email or password")
		}
		return nil, apierr.Internal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, apierr.Unauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierr.Unauthorized("invalid email or password")
	}
	return s.issue(user)
}

// Logout blacklists the presented token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return apierr.Unauthorized("invalid token")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, "blacklist:"+tokenString, "1", ttl).Err(); err != nil {
		return apierr.Internal("failed to blacklist token", err)
	}
	return nil
}

// Profile returns the caller's directory record.
func (s *AuthService) Profile(userID int64) (*model.UserResponse, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(0, "user not found")
		}
		return nil, apierr.Internal("failed to load user", err)
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *AuthService) issue(user *model.User) (*model.LoginResponse, error) {
	token, err := s.jwtManager.GenerateToken(user.ID, user.Role, user.Email)
	if err != nil {
		return nil, apierr.Internal("failed to sign token", err)
	}
	return &model.LoginResponse{Token: token, User: user.ToResponse()}, nil
}
