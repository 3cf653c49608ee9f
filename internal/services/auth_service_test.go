package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/realprep/exam-service/internal/validator"
)

func newTestAuthService(repo *fakeRepository) AuthService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, logger, validator.New(), "test-secret", time.Hour)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := newTestAuthService(repo)

	t.Run("signup issues a token", func(t *testing.T) {
		resp, err := svc.Signup(ctx, SignupRequest{Email: "Alice@Example.com", Password: "correcthorse"})
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		if resp.Token == "" {
			t.Error("Expected a token")
		}
		if resp.Email != "alice@example.com" {
			t.Errorf("Expected normalized email, got %s", resp.Email)
		}

		user, err := repo.User().GetByEmail(ctx, nil, "alice@example.com")
		if err != nil {
			t.Fatalf("User not persisted: %v", err)
		}
		if user.PasswordHash == "correcthorse" {
			t.Error("Password must not be stored in plain text")
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com", Password: "differentpass"})
		if !errors.Is(err, ErrEmailAlreadyTaken) {
			t.Errorf("Expected ErrEmailAlreadyTaken, got %v", err)
		}
	})

	t.Run("login with the right password", func(t *testing.T) {
		resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correcthorse"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if resp.Token == "" {
			t.Error("Expected a token")
		}
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		_, wrongPass := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrongwrong"})
		_, unknown := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correcthorse"})

		if !errors.Is(wrongPass, ErrInvalidCredentials) {
			t.Errorf("Wrong password: expected ErrInvalidCredentials, got %v", wrongPass)
		}
		if !errors.Is(unknown, ErrInvalidCredentials) {
			t.Errorf("Unknown email: expected ErrInvalidCredentials, got %v", unknown)
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		_, err := svc.Signup(ctx, SignupRequest{Email: "bob@example.com", Password: "short"})
		if err == nil {
			t.Fatal("Expected a validation error")
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := newTestAuthService(repo)

	resp, err := svc.Signup(ctx, SignupRequest{Email: "carol@example.com", Password: "correcthorse"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		userID, err := svc.ValidateToken(resp.Token)
		if err != nil {
			t.Fatalf("ValidateToken failed: %v", err)
		}
		if userID != resp.UserID {
			t.Errorf("Expected user %d, got %d", resp.UserID, userID)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.ValidateToken("not.a.jwt"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		other := NewAuthService(repo, logger, validator.New(), "other-secret", time.Hour)
		foreign, err := other.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "correcthorse"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if _, err := svc.ValidateToken(foreign.Token); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for foreign signature, got %v", err)
		}
	})
}
