// internal/domain/user/service.go
package user

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/database"
	"gorm.io/gorm"
)

// Directory resolves customers and addresses referenced by orders.
type Directory interface {
	WithTx(tx *gorm.DB) Directory
	FindUser(ctx context.Context, id uint) (*User, error)
	// FindAddress returns the address only if it belongs to userID.
	FindAddress(ctx context.Context, id, userID uint) (*Address, error)
}

// Service handles user lookups and login
type Service struct {
	db              *gorm.DB
	jwtManager      *auth.JWTManager
	passwordManager *auth.PasswordManager
	logger          logrus.FieldLogger
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	User        *User     `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewService creates a new user service
func NewService(db *gorm.DB, jwtManager *auth.JWTManager, passwordManager *auth.PasswordManager, logger logrus.FieldLogger) *Service {
	return &Service{
		db:              db,
		jwtManager:      jwtManager,
		passwordManager: passwordManager,
		logger:          logger,
	}
}

// WithTx returns a directory bound to tx
func (s *Service) WithTx(tx *gorm.DB) Directory {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	return &clone
}

// FindUser loads an active user
func (s *Service) FindUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "user %d not found", id)
		}
		return nil, apperrors.Internal(err, "loading user")
	}
	return &u, nil
}

// FindAddress loads an address owned by userID. Someone else's address is
// reported as not found.
func (s *Service) FindAddress(ctx context.Context, id, userID uint) (*Address, error) {
	if userID == 0 {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "address %d not found", id)
	}
	var a Address
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "address %d not found", id)
		}
		return nil, apperrors.Internal(err, "loading address")
	}
	return &a, nil
}

// Login verifies credentials and issues an access token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var u User
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(req.Email), true).
		First(&u).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, apperrors.Internal(err, "loading user")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, u.Password); err != nil {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid email or password")
	}

	token, expiresAt, err := s.jwtManager.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperrors.Internal(err, "signing access token")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&u).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Warn("failed to record last login")
	}

	return &AuthResponse{User: &u, AccessToken: token, ExpiresAt: expiresAt}, nil
}
