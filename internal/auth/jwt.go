package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrWrongTokenUse = errors.New("token presented for the wrong use")
)

// Token roles. Access tokens authenticate API calls; refresh tokens are only
// accepted by the refresh endpoint. The two are never interchangeable.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims represents the JWT claims for authentication
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secretKey       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

// NewJWTManager creates a new JWT manager. Refresh tokens outlive access
// tokens so that an expired session can be renewed without re-entering a
// password.
func NewJWTManager(secretKey string, accessDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secretKey),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// GenerateAccessToken creates a short-lived token for API authentication
func (m *JWTManager) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	return m.generate(userID, email, UseAccess, m.accessDuration)
}

// GenerateRefreshToken creates a long-lived token accepted only for refresh
func (m *JWTManager) GenerateRefreshToken(userID, email string) (string, time.Time, error) {
	return m.generate(userID, email, UseRefresh, m.refreshDuration)
}

func (m *JWTManager) generate(userID, email, use string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:   userID,
		Email:    email,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "preventix-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates a token presented on an API call. A refresh
// token is rejected here even when otherwise valid.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, UseAccess)
}

// ValidateRefreshToken validates a token presented to the refresh endpoint.
// An access token is rejected here even when otherwise valid.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, UseRefresh)
}

func (m *JWTManager) validate(tokenString, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenUse != use {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}
