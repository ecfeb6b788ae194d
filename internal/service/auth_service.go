package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// TokenTypeAccess marks access JWTs. Refresh tokens are opaque and never JWTs.
const TokenTypeAccess = "access"

const refreshTokenBytes = 32

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string     `json:"token_type"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// AuthService handles registration, login, JWT issuing and refresh rotation.
type AuthService struct {
	cfg   *config.Config
	users UserStore
	now   Clock
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users UserStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		users: users,
		now:   time.Now,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperror.ErrInvalidCredentials
	}
	return nil
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	return s.createUser(ctx, req, model.RoleUser)
}

// CreateAdmin creates an admin account. It is only reachable from the
// operations CLI.
func (s *AuthService) CreateAdmin(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	return s.createUser(ctx, req, model.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, req model.RegisterRequest, role model.Role) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, apperror.ErrUserAlreadyExists
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        email,
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	switch err := s.users.Create(ctx, u); {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperror.ErrUserAlreadyExists
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", u.ID.String()).Str("role", string(role)).Msg("User registered")
	return u, nil
}

// Login checks credentials and issues a token pair. Unknown users, inactive
// users and wrong passwords all read as invalid credentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenPair, *model.User, error) {
	u, err := s.users.GetByLogin(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return nil, nil, apperror.ErrInvalidCredentials
	}
	if err := s.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	t, err := s.users.ConsumeRefreshToken(ctx, HashToken(refreshToken), s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	u, err := s.users.GetByID(ctx, t.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return nil, apperror.ErrInvalidToken
	}
	return s.issuePair(ctx, u)
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	n, err := s.users.RevokeAllRefreshTokens(ctx, userID)
	if err != nil {
		return err
	}
	s.log.Debug().Str("user_id", userID.String()).Int64("revoked", n).Msg("Refresh tokens revoked")
	return nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *AuthService) issuePair(ctx context.Context, u *model.User) (*model.TokenPair, error) {
	access, err := s.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	rt := &model.RefreshToken{
		UserID:    u.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: s.now().UTC().Add(s.cfg.RefreshExpiry),
	}
	if err := s.users.CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "bearer",
		ExpiresIn:    int(s.cfg.AccessExpiry.Seconds()),
	}, nil
}

// GenerateAccessToken signs an HS256 access token for u.
func (s *AuthService) GenerateAccessToken(u *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessExpiry)),
		},
		TokenType: TokenTypeAccess,
		UserID:    u.ID,
		Role:      u.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates an access JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

// HashToken is the stored form of an opaque refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newOpaqueToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
