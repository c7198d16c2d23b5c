package user

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"bakery-storefront/internal/remote"
)

type mockRemote struct {
	users   map[int64]remote.User
	sent    []remote.UserPayload
	err     error
	deleted []int64
}

func newMockRemote(users ...remote.User) *mockRemote {
	m := &mockRemote{users: make(map[int64]remote.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockRemote) ListUsers(ctx context.Context) ([]remote.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]remote.User, 0, len(m.users))
	for id := int64(1); id <= int64(len(m.users)); id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockRemote) GetUser(ctx context.Context, id int64) (*remote.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *mockRemote) CreateUser(ctx context.Context, p remote.UserPayload) (*remote.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, p)
	u := remote.User{ID: int64(len(m.users) + 1), Username: p.Username, Name: p.Name, Email: p.Email, Role: p.Role, Status: p.Status}
	m.users[u.ID] = u
	return &u, nil
}

func (m *mockRemote) UpdateUser(ctx context.Context, id int64, p remote.UserPayload) (*remote.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, p)
	u := remote.User{ID: id, Username: p.Username, Name: p.Name, Email: p.Email, Role: p.Role, Status: p.Status}
	m.users[id] = u
	return &u, nil
}

func (m *mockRemote) DeleteUser(ctx context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func TestDirectory_ListFilters(t *testing.T) {
	r := newMockRemote(
		remote.User{ID: 1, Name: "Ana Pérez", Email: "ana@example.cl", Role: "admin", Status: "activo"},
		remote.User{ID: 2, Name: "Luis Soto", Email: "luis@example.cl", Role: "cliente", Status: "inactivo"},
		remote.User{ID: 3, Name: "Marta", Email: "marta.soto@example.cl", Role: "cliente", Status: "activo"},
	)
	d := NewDirectory(r, zap.NewNop())

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"no filter", Filter{}, []int64{1, 2, 3}},
		{"search name and email", Filter{Search: "SOTO"}, []int64{2, 3}},
		{"status", Filter{Status: "activo"}, []int64{1, 3}},
		{"role and status", Filter{Role: "cliente", Status: "activo"}, []int64{3}},
		{"no match", Filter{Search: "pedro"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := d.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []int64
			for _, u := range users {
				got = append(got, u.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDirectory_GetMissing(t *testing.T) {
	d := NewDirectory(newMockRemote(), zap.NewNop())

	if _, err := d.Get(context.Background(), 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}
}

func TestDirectory_RemoteNotFoundMapsToSentinel(t *testing.T) {
	r := newMockRemote()
	r.err = &remote.APIError{Status: 404, Message: "no existe"}
	d := NewDirectory(r, zap.NewNop())

	if _, err := d.Get(context.Background(), 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}
	if err := d.Delete(context.Background(), 5); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestDirectory_CreateDefaults(t *testing.T) {
	r := newMockRemote()
	d := NewDirectory(r, zap.NewNop())

	u, err := d.Create(context.Background(), Draft{Name: " Ana ", Email: " ana@example.cl ", Password: "secreta"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID != 1 {
		t.Errorf("ID = %d, want 1", u.ID)
	}
	p := r.sent[0]
	if p.Username != "ana@example.cl" || p.Email != "ana@example.cl" {
		t.Errorf("username/email = %q/%q, want trimmed email", p.Username, p.Email)
	}
	if p.Name != "Ana" {
		t.Errorf("Name = %q, want Ana", p.Name)
	}
	if p.Role != DefaultRole || p.Status != DefaultStatus {
		t.Errorf("role/status = %q/%q, want defaults", p.Role, p.Status)
	}
	if p.Password != "secreta" {
		t.Errorf("Password = %q, want secreta", p.Password)
	}
}

func TestDirectory_UpdateKeepsBlankPassword(t *testing.T) {
	r := newMockRemote(remote.User{ID: 1, Name: "Ana", Email: "ana@example.cl"})
	d := NewDirectory(r, zap.NewNop())

	_, err := d.Update(context.Background(), 1, Draft{Name: "Ana", Email: "ana@example.cl", Password: "   ", Role: "ADMIN", Status: "Inactivo"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	p := r.sent[0]
	if p.Password != "" {
		t.Errorf("Password = %q, want empty", p.Password)
	}
	if p.Role != "admin" || p.Status != "inactivo" {
		t.Errorf("role/status = %q/%q, want admin/inactivo", p.Role, p.Status)
	}
}

func TestDirectory_WrapsRemoteFailure(t *testing.T) {
	r := newMockRemote()
	r.err = remote.ErrUnavailable
	d := NewDirectory(r, zap.NewNop())

	_, err := d.List(context.Background(), Filter{})
	if !remote.IsUnavailable(err) {
		t.Errorf("List() error = %v, want unavailable", err)
	}
}
