package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/apperror"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(users UserStore) *AuthService {
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	return NewAuthService(cfg, users, zerolog.New(io.Discard))
}

func registerReq() model.RegisterRequest {
	return model.RegisterRequest{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "Secret123",
		FullName: "Alice",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUserStore()
	svc := newAuthService(users)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerReq())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != model.RoleUser || u.Email != "alice@example.com" {
		t.Fatalf("user = %+v", u)
	}

	for _, login := range []string{"alice", "alice@example.com"} {
		pair, got, err := svc.Login(ctx, model.LoginRequest{Username: login, Password: "Secret123"})
		if err != nil {
			t.Fatalf("Login(%s): %v", login, err)
		}
		if got.ID != u.ID || pair.TokenType != "bearer" || pair.ExpiresIn != 900 {
			t.Fatalf("pair = %+v", pair)
		}

		claims, err := svc.ValidateToken(pair.AccessToken)
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}
		if claims.UserID != u.ID || claims.Role != model.RoleUser || claims.IsAdmin() {
			t.Fatalf("claims = %+v", claims)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newAuthService(newFakeUserStore())
	ctx := context.Background()
	_, _ = svc.Register(ctx, registerReq())

	req := registerReq()
	req.Email = "other@example.com"
	if _, err := svc.Register(ctx, req); !errors.Is(err, apperror.ErrUserAlreadyExists) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoginFailuresLookAlike(t *testing.T) {
	users := newFakeUserStore()
	svc := newAuthService(users)
	ctx := context.Background()
	u, _ := svc.Register(ctx, registerReq())

	cases := []model.LoginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "Secret123"},
	}
	for _, c := range cases {
		if _, _, err := svc.Login(ctx, c); !errors.Is(err, apperror.ErrInvalidCredentials) {
			t.Fatalf("Login(%s) err = %v", c.Username, err)
		}
	}

	users.users[u.ID].IsActive = false
	if _, _, err := svc.Login(ctx, model.LoginRequest{Username: "alice", Password: "Secret123"}); !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Fatalf("inactive login err = %v", err)
	}
}

func TestRefreshRotatesOnce(t *testing.T) {
	svc := newAuthService(newFakeUserStore())
	ctx := context.Background()
	_, _ = svc.Register(ctx, registerReq())
	pair, _, _ := svc.Login(ctx, model.LoginRequest{Username: "alice", Password: "Secret123"})

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token must rotate")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("reuse err = %v", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	svc := newAuthService(newFakeUserStore())
	ctx := context.Background()
	u, _ := svc.Register(ctx, registerReq())
	pair, _, _ := svc.Login(ctx, model.LoginRequest{Username: "alice", Password: "Secret123"})

	if err := svc.Logout(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(newFakeUserStore())
	u := &model.User{Role: model.RoleAdmin}
	tok, err := svc.GenerateAccessToken(u)
	if err != nil {
		t.Fatal(err)
	}

	other := newAuthService(newFakeUserStore())
	other.cfg.JWTSecret = "another-secret"
	if _, err := other.ValidateToken(tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := svc.ValidateToken(tok); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestCreateAdmin(t *testing.T) {
	svc := newAuthService(newFakeUserStore())
	u, err := svc.CreateAdmin(context.Background(), registerReq())
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleAdmin {
		t.Fatalf("role = %s", u.Role)
	}
}
