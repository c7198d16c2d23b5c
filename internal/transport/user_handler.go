package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/user"
)

// CreateUserRequest is the admin form for a new account
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=20"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=cliente admin vendedor"`
	Status   string `json:"status" validate:"omitempty,oneof=activo inactivo"`
}

// UpdateUserRequest is the admin form for an existing account. An empty
// password keeps the current one.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=20"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=cliente admin vendedor"`
	Status   string `json:"status" validate:"omitempty,oneof=activo inactivo"`
}

// UserHandler handles the admin account views
type UserHandler struct {
	directory *user.Directory
	logger    *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(directory *user.Directory, logger *zap.Logger) *UserHandler {
	return &UserHandler{directory: directory, logger: logger}
}

// RegisterRoutes registers admin account routes
func (h *UserHandler) RegisterRoutes(r chi.Router, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// ListUsers handles GET /api/admin/users?search=&status=&role=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.directory.List(r.Context(), user.Filter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Role:   q.Get("role"),
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list users")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// GetUser handles GET /api/admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.directory.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get user")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /api/admin/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	u, err := h.directory.Create(r.Context(), user.Draft{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create user")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /api/admin/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	u, err := h.directory.Update(r.Context(), id, user.Draft{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update user")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.directory.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "user id must be a positive integer")
		return 0, false
	}
	return id, true
}
