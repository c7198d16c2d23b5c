package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bakery-storefront/internal/remote"
)

const (
	DefaultRole   = "cliente"
	DefaultStatus = "activo"
)

// ErrUserNotFound is returned when the remote has no account with the given id
var ErrUserNotFound = errors.New("user not found")

// Remote is the remote account collection
type Remote interface {
	ListUsers(ctx context.Context) ([]remote.User, error)
	GetUser(ctx context.Context, id int64) (*remote.User, error)
	CreateUser(ctx context.Context, p remote.UserPayload) (*remote.User, error)
	UpdateUser(ctx context.Context, id int64, p remote.UserPayload) (*remote.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Filter narrows an account listing. Empty fields match everything.
type Filter struct {
	Search string
	Status string
	Role   string
}

// Matches reports whether u passes the filter. Search looks at name and email
// without regard to case.
func (f Filter) Matches(u remote.User) bool {
	if f.Status != "" && !strings.EqualFold(u.Status, f.Status) {
		return false
	}
	if f.Role != "" && !strings.EqualFold(u.Role, f.Role) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q)
}

// Draft is an account as an admin edits it
type Draft struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	Status   string
}

func (d Draft) payload() remote.UserPayload {
	role := strings.ToLower(strings.TrimSpace(d.Role))
	if role == "" {
		role = DefaultRole
	}
	status := strings.ToLower(strings.TrimSpace(d.Status))
	if status == "" {
		status = DefaultStatus
	}
	email := strings.TrimSpace(d.Email)
	return remote.UserPayload{
		Username: email,
		Password: strings.TrimSpace(d.Password),
		Name:     strings.TrimSpace(d.Name),
		Email:    email,
		Phone:    strings.TrimSpace(d.Phone),
		Role:     role,
		Status:   status,
	}
}

// Directory exposes the remote account collection to admin views
type Directory struct {
	remote Remote
	logger *zap.Logger
}

// NewDirectory creates a new account directory
func NewDirectory(r Remote, logger *zap.Logger) *Directory {
	return &Directory{remote: r, logger: logger}
}

// List returns the accounts that pass f
func (d *Directory) List(ctx context.Context, f Filter) ([]remote.User, error) {
	users, err := d.remote.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]remote.User, 0, len(users))
	for _, u := range users {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Get returns one account
func (d *Directory) Get(ctx context.Context, id int64) (*remote.User, error) {
	u, err := d.remote.GetUser(ctx, id)
	if err != nil {
		if remote.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Create registers an account. The email doubles as the username.
func (d *Directory) Create(ctx context.Context, draft Draft) (*remote.User, error) {
	p := draft.payload()
	u, err := d.remote.CreateUser(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	d.logger.Info("User created", zap.String("email", p.Email), zap.String("role", p.Role))
	return u, nil
}

// Update replaces an account. A blank password keeps the stored one.
func (d *Directory) Update(ctx context.Context, id int64, draft Draft) (*remote.User, error) {
	u, err := d.remote.UpdateUser(ctx, id, draft.payload())
	if err != nil {
		if remote.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	d.logger.Info("User updated", zap.Int64("user_id", id))
	return u, nil
}

// Delete removes an account
func (d *Directory) Delete(ctx context.Context, id int64) error {
	if err := d.remote.DeleteUser(ctx, id); err != nil {
		if remote.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	d.logger.Info("User deleted", zap.Int64("user_id", id))
	return nil
}
