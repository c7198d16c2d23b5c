package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	usersPath      = "/v1/auth/usuarios"
	adminUsersPath = "/v1/auth/admin/usuarios"
)

// User is the remote view of a storefront account
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPayload is the write shape the remote expects for account CRUD. An empty
// password leaves the stored one unchanged on update.
type UserPayload struct {
	Username string `json:"nombreUsuario"`
	Password string `json:"contrasena,omitempty"`
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Phone    string `json:"telefono"`
	Role     string `json:"rol,omitempty"`
	Status   string `json:"estado,omitempty"`
}

type rawUser struct {
	ID            flexNumber      `json:"id"`
	NombreUsuario string          `json:"nombreUsuario"`
	Username      string          `json:"username"`
	Nombre        string          `json:"nombre"`
	Email         string          `json:"email"`
	Correo        string          `json:"correo"`
	Telefono      string          `json:"telefono"`
	Rol           json.RawMessage `json:"rol"`
	Estado        string          `json:"estado"`
	FechaCreacion string          `json:"fechaCreacion"`
	CreatedAt     string          `json:"createdAt"`
}

// role accepts "ADMIN", "ROLE_ADMIN" or {"nombre": "admin"} and returns it in lower case
func (u rawUser) role() string {
	if isNull(u.Rol) {
		return ""
	}
	var name string
	if err := json.Unmarshal(u.Rol, &name); err != nil {
		var obj struct {
			Nombre string `json:"nombre"`
			Name   string `json:"name"`
		}
		if err := json.Unmarshal(u.Rol, &obj); err != nil {
			return ""
		}
		name = firstNonEmpty(obj.Nombre, obj.Name)
	}
	name = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "ROLE_")
	return strings.ToLower(name)
}

// NormalizeUser maps a remote account document. A null body yields nil.
func NormalizeUser(raw []byte) (*User, error) {
	if isNull(raw) {
		return nil, nil
	}
	var ru rawUser
	if err := json.Unmarshal(raw, &ru); err != nil {
		return nil, err
	}
	return &User{
		ID:        ru.ID.int64Or(0),
		Username:  firstNonEmpty(ru.NombreUsuario, ru.Username),
		Name:      ru.Nombre,
		Email:     firstNonEmpty(ru.Email, ru.Correo),
		Phone:     ru.Telefono,
		Role:      ru.role(),
		Status:    strings.ToLower(strings.TrimSpace(ru.Estado)),
		CreatedAt: parseTimestamp(firstNonEmpty(ru.FechaCreacion, ru.CreatedAt)),
	}, nil
}

// NormalizeUserList maps an account listing in any of the list shapes
func NormalizeUserList(raw []byte) ([]User, error) {
	items, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(items))
	for _, item := range items {
		u, err := NormalizeUser(item)
		if err != nil || u == nil {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

// ListUsers returns every storefront account
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	raw, err := c.request(ctx, "list_users", http.MethodGet, usersPath, nil, nil)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return []User{}, nil
	}
	return NormalizeUserList(raw)
}

// GetUser returns one account
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	raw, err := c.request(ctx, "get_user", http.MethodGet, usersPath+"/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeUser(raw)
}

// CreateUser creates an account through the admin endpoint
func (c *Client) CreateUser(ctx context.Context, p UserPayload) (*User, error) {
	raw, err := c.request(ctx, "create_user", http.MethodPost, adminUsersPath, nil, p)
	if err != nil {
		return nil, err
	}
	return NormalizeUser(raw)
}

// UpdateUser replaces an account through the admin endpoint
func (c *Client) UpdateUser(ctx context.Context, id int64, p UserPayload) (*User, error) {
	raw, err := c.request(ctx, "update_user", http.MethodPut, adminUsersPath+"/"+strconv.FormatInt(id, 10), nil, p)
	if err != nil {
		return nil, err
	}
	return NormalizeUser(raw)
}

// DeleteUser deletes an account through the admin endpoint
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.request(ctx, "delete_user", http.MethodDelete, adminUsersPath+"/"+strconv.FormatInt(id, 10), nil, nil)
	return err
}
