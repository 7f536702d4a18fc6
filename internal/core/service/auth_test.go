package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/storage"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

func newAuth() *Auth {
	a := NewAuth(storage.NewMemoryStore(), "test-secret", time.Hour)
	a.cost = bcrypt.MinCost
	return a
}

func TestAuth_SignupAndLogin(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	user, token, err := a.Signup(ctx, "Ann", " Ann@Example.com ", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != domain.RoleEmployee {
		t.Errorf("expected employee, got %s", user.Role)
	}
	if user.Email != "ann@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "hunter22" {
		t.Error("expected password to be hashed")
	}
	if token == "" {
		t.Error("expected a token")
	}

	if _, _, err := a.Signup(ctx, "Ann", "ann@example.com", "another1"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, _, err := a.Login(ctx, "ANN@example.com", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
	if _, _, err := a.Login(ctx, "ann@example.com", "wrong-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := a.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_SignupValidation(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	tests := []struct {
		name, user, email, password string
	}{
		{"empty name", "", "a@b.c", "secret1"},
		{"empty email", "Ann", "", "secret1"},
		{"bad email", "Ann", "not-an-email", "secret1"},
		{"short password", "Ann", "a@b.c", "123"},
		{"long password", "Ann", "a@b.c", strings.Repeat("x", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := a.Signup(ctx, tt.user, tt.email, tt.password); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAuth_Authenticate(t *testing.T) {
	a := newAuth()
	ctx := context.Background()
	user, token, err := a.Signup(ctx, "Ann", "ann@example.com", "hunter22")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	got, err := a.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected %s, got %s", user.ID, got.ID)
	}

	if _, err := a.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := a.Authenticate(ctx, token+"x"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("tampered token: expected ErrUnauthorized, got %v", err)
	}

	other := NewAuth(storage.NewMemoryStore(), "other-secret", time.Hour)
	foreign, _ := other.IssueToken(*user)
	if _, err := a.Authenticate(ctx, foreign); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign secret: expected ErrUnauthorized, got %v", err)
	}

	if err := a.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := a.Authenticate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("deleted user: expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	a := newAuth()
	ctx := context.Background()
	user, _, err := a.Signup(ctx, "Ann", "ann@example.com", "hunter22")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := a.IssueToken(*user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := a.Authenticate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_RejectsUnsignedToken(t *testing.T) {
	a := newAuth()
	ctx := context.Background()
	user, _, _ := a.Signup(ctx, "Ann", "ann@example.com", "hunter22")

	claims := Claims{UserID: user.ID, Role: domain.RoleAdmin, StandardClaims: jwt.StandardClaims{
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Authenticate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_UpdateUser(t *testing.T) {
	a := newAuth()
	ctx := context.Background()
	ann, _, _ := a.Signup(ctx, "Ann", "ann@example.com", "hunter22")
	a.Signup(ctx, "Bob", "bob@example.com", "hunter22")

	role := domain.RoleManager
	updated, err := a.UpdateUser(ctx, ann.ID, UserPatch{Role: &role, Password: ptr("newpass1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Role != domain.RoleManager {
		t.Errorf("expected manager, got %s", updated.Role)
	}
	if _, _, err := a.Login(ctx, "ann@example.com", "newpass1"); err != nil {
		t.Errorf("login with new password: %v", err)
	}

	bad := domain.Role("owner")
	if _, err := a.UpdateUser(ctx, ann.ID, UserPatch{Role: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := a.UpdateUser(ctx, ann.ID, UserPatch{Password: ptr(strings.Repeat("x", 73))}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for long password, got %v", err)
	}
	if _, err := a.UpdateUser(ctx, ann.ID, UserPatch{Email: ptr("BOB@example.com")}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := a.UpdateUser(ctx, "missing", UserPatch{Name: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	users, _ := a.ListUsers(ctx)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestAuth_EnsureAdmin(t *testing.T) {
	a := newAuth()
	ctx := context.Background()

	created, err := a.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got %v %v", created, err)
	}
	created, err = a.EnsureAdmin(ctx, "Root", "ROOT@example.com", "rootpass")
	if err != nil || created {
		t.Errorf("expected no-op on second call, got %v %v", created, err)
	}

	user, token, err := a.Login(ctx, "root@example.com", "rootpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Errorf("expected admin, got %s", user.Role)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected a JWT, got %q", token)
	}
}
