package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gabay/core/internal/infrastructure/config"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

// RoleAdmin is the only role issued; it unlocks candidate mutations.
const RoleAdmin = "admin"

var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles admin authentication against the configured credentials
type AuthService struct {
	authConfig config.AuthConfig
	logger     *logger.Logger
	now        func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new auth service
func NewAuthService(authConfig config.AuthConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		authConfig: authConfig,
		logger:     logger.WithComponent("auth_service"),
		now:        time.Now,
	}
}

// HashPassword returns the bcrypt hash stored as the admin password hash
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Login authenticates the admin and returns an access token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.authConfig.AdminUsername)) == 1

	// bcrypt runs even when the username is wrong
	err := bcrypt.CompareHashAndPassword([]byte(s.authConfig.AdminPasswordHash), []byte(req.Password))
	if !usernameOK || err != nil {
		s.logger.Warnw("Login attempt with invalid credentials", "username", req.Username)
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Infow("Admin logged in successfully", "username", req.Username)

	return &ports.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.authConfig.TokenTTL.Seconds()),
	}, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, jwt.WithIssuer(s.authConfig.Issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &ports.Claims{
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *AuthService) generateAccessToken(username string) (string, error) {
	now := s.now()
	claims := &Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.authConfig.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.authConfig.Issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.authConfig.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
