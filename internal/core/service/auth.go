package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

const (
	minPasswordLen = 6
	// bcrypt only looks at the first 72 bytes
	maxPasswordLen = 72
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.StandardClaims
}

type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// Auth issues and checks session tokens and manages user accounts.
type Auth struct {
	users  port.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	newID  func() string
}

func NewAuth(users port.UserRepository, secret string, ttl time.Duration) *Auth {
	return &Auth{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Signup registers a new employee account and returns a session token for it.
// Elevated roles are granted by an admin afterwards.
func (a *Auth) Signup(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	user, err := a.createUser(ctx, name, email, password, domain.RoleEmployee)
	if err != nil {
		return nil, "", err
	}
	token, err := a.IssueToken(*user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := a.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, "", fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	token, err := a.IssueToken(*user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (a *Auth) IssueToken(user domain.User) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(a.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a token and reloads its user, so deleted accounts
// and role changes take effect before the token expires.
func (a *Auth) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token", ErrUnauthorized)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: token failed: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: token failed", ErrUnauthorized)
	}

	user, err := a.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	return user, nil
}

func (a *Auth) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (a *Auth) UpdateUser(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	user, err := a.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", id)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if !strings.Contains(email, "@") {
			return nil, invalid("email is invalid")
		}
		user.Email = email
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, invalid("unknown role %q", *patch.Role)
		}
		user.Role = *patch.Role
	}
	if patch.Password != nil {
		hash, err := a.hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = a.now()

	if err := a.users.UpdateUser(ctx, *user); err != nil {
		switch {
		case errors.Is(err, port.ErrDuplicateKey):
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		case errors.Is(err, port.ErrRecordNotFound):
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (a *Auth) DeleteUser(ctx context.Context, id string) error {
	if err := a.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, port.ErrRecordNotFound) {
			return notFound("user", id)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// EnsureAdmin creates an admin account for email unless one already exists.
// It reports whether an account was created.
func (a *Auth) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := a.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	if _, err := a.createUser(ctx, name, email, password, domain.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Auth) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, invalid("name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("email is invalid")
	}

	hash, err := a.hash(password)
	if err != nil {
		return nil, err
	}

	now := a.now()
	user := domain.User{
		ID:           a.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, port.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (a *Auth) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", invalid("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return "", invalid("password must be at most %d bytes", maxPasswordLen)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
