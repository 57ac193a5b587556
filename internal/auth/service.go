package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// ServiceAPI is what the HTTP layer needs from the auth service.
type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error)
	Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	Authenticate(ctx context.Context, token string) (*coreuser.User, *Claims, error)
	ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error
	Logout(ctx context.Context, claims *Claims) error
	Me(ctx context.Context, userID int64) (*coreuser.User, error)
}

var errInactiveSession = apperrors.NewUnauthorizedError("User account is inactive", apperrors.ErrCodeUserInactive)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	revocations    RevocationStore
	bcryptCost     int
	logger         *slog.Logger
	now            func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, tokenGen TokenGenerator, revocations RevocationStore, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		revocations:    revocations,
		bcryptCost:     bcryptCost,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	record := &userDatamodel.User{
		Email:        dto.Email,
		EmployeeID:   dto.EmployeeID,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Department:   dto.Department,
		Position:     dto.Position,
		Phone:        dto.Phone,
		Role:         string(coreuser.RoleStaff),
		IsActive:     true,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, record); err != nil {
		s.logger.Warn("registration failed", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", record.ID, "employee_id", record.EmployeeID)
	return s.issue(coreuser.FromDataModel(record))
}

// Login answers unknown email and wrong password identically, and spends a
// bcrypt comparison on both paths.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	dto.Email = coreuser.NormalizeEmail(dto.Email)
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.NewInternalError("failed to load user", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(dto.Password))
		s.logger.Info("login failed", "reason", "unknown_email")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login failed", "reason", "wrong_password", "user_id", record.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !record.IsActive {
		s.logger.Warn("login refused for inactive user", "user_id", record.ID)
		return nil, apperrors.ErrUserInactive
	}

	now := s.now()
	if err := s.userRepo.TouchLastLogin(ctx, record.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "error", err, "user_id", record.ID)
	} else {
		record.LastLoginAt = &now
	}

	s.logger.Info("user logged in", "user_id", record.ID, "role", record.Role)
	return s.issue(coreuser.FromDataModel(record))
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*coreuser.User, *Claims, error) {
	if token == "" {
		return nil, nil, apperrors.ErrMissingToken
	}

	claims, err := s.tokenGenerator.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to check token revocation", err)
	}
	if revoked {
		return nil, nil, apperrors.ErrTokenRevoked
	}

	record, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidToken
		}
		return nil, nil, apperrors.NewInternalError("failed to load user", err)
	}
	if !record.IsActive {
		return nil, nil, errInactiveSession
	}

	return coreuser.FromDataModel(record), claims, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	record, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return apperrors.NewValidationFieldError("current_password", "current password is incorrect", apperrors.ErrCodeWrongPassword)
	}

	hash, err := s.HashPassword(dto.NewPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// Logout revokes the token's jti until it expires.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.ErrInvalidToken
	}

	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return apperrors.NewInternalError("failed to revoke token", err)
	}

	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *Service) Me(ctx context.Context, userID int64) (*coreuser.User, error) {
	record, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return coreuser.FromDataModel(record), nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issue(u *coreuser.User) (*AuthResponse, error) {
	token, claims, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign token", err)
	}
	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        u,
	}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), s.bcryptCost)
	})
	return s.dummyHash
}
