package services

import (
	"context"
	"fmt"
	"time"

	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// TokenPair is the credential set issued on register, login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService provides business logic for registration and authentication
type AuthService struct {
	userRepo repositories.UserRepository
	jwt      *auth.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, jwt *auth.JWTManager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwt:      jwt,
	}
}

// Register creates a new account and issues its first token pair
func (s *AuthService) Register(ctx context.Context, email, password, fullName string, age *int, gender *string) (*entities.User, *TokenPair, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check if user exists: %w", err)
	}
	if exists {
		return nil, nil, repositories.ErrEmailTaken
	}

	now := time.Now()
	user := &entities.User{
		ID:        idgen.GenerateID(),
		Email:     email,
		FullName:  fullName,
		Age:       age,
		Gender:    gender,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}
	metrics.RegisteredUsers.Inc()

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login authenticates an account by email and password. Lookup and password
// failures return the same error so the response does not reveal which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if IsUserInactive(err) {
			return nil, nil, repositories.ErrUserInactive
		}
		return nil, nil, fmt.Errorf("invalid credentials")
	}

	if !user.VerifyPassword(password) {
		return nil, nil, fmt.Errorf("invalid credentials")
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a rotated token pair. The user
// must still exist and be active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entities.User, *TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, repositories.ErrUserInactive
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GetUser retrieves an account by ID
func (s *AuthService) GetUser(ctx context.Context, userID string) (*entities.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields to the user's profile
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, fullName *string, age *int, gender *string) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := false
	if fullName != nil && *fullName != user.FullName {
		user.FullName = *fullName
		updated = true
	}
	if age != nil {
		user.Age = age
		updated = true
	}
	if gender != nil {
		user.Gender = gender
		updated = true
	}
	if !updated {
		return user, nil
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueTokens(user *entities.User) (*TokenPair, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, _, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
