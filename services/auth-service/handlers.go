package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"campus-maintenance-system/pkg/apperror"
	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/middleware"
	"campus-maintenance-system/pkg/response"
	"campus-maintenance-system/pkg/users"
	"campus-maintenance-system/pkg/validation"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type authHandler struct {
	users  users.Repository
	tokens *auth.TokenManager
	db     pinger
}

func (h *authHandler) routes() http.Handler {
	mux := http.NewServeMux()
	authn := middleware.Authenticate(h.tokens)
	adminOnly := func(fn http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(auth.RoleAdmin)(fn))
	}

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.Handle("GET /api/auth/me", authn(http.HandlerFunc(h.me)))
	mux.Handle("PUT /api/auth/me", authn(http.HandlerFunc(h.updateProfile)))
	mux.Handle("DELETE /api/auth/users", adminOnly(h.deleteUser))

	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", middleware.GetMetricsHandler())

	return middleware.Chain(mux,
		middleware.TraceMiddleware,
		middleware.MetricsMiddleware,
		middleware.LoggerMiddleware,
	)
}

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=student staff"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileInput struct {
	Username     *string `json:"username" validate:"omitempty,min=3,max=50"`
	ProfileImage *string `json:"profileImage" validate:"omitempty,url"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		log.Printf("[WARN] Invalid registration request: %v", err)
		response.Fail(w, err)
		return
	}

	role := auth.Role(input.Role)
	if role == "" {
		role = auth.RoleStudent
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		response.Fail(w, apperror.Internal("Failed to process registration", err))
		return
	}

	user := &users.User{
		Username: strings.TrimSpace(input.Username),
		Email:    input.Email,
		Password: hashed,
		Role:     role,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			log.Printf("[WARN] Registration attempt with existing username or email")
			response.Error(w, http.StatusConflict, "Username or email already registered", "")
			return
		}
		response.Fail(w, apperror.Internal("Failed to save user", err))
		return
	}

	log.Printf("[OK] User registered - ID: %s", user.ID)
	h.respondWithToken(w, http.StatusCreated, "User registered successfully", user)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	user, err := h.users.FindByEmail(r.Context(), input.Email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			response.Fail(w, apperror.Internal("Failed to load user", err))
			return
		}
		log.Printf("[WARN] Failed login attempt")
		response.Error(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}

	if !auth.CheckPasswordHash(input.Password, user.Password) {
		log.Printf("[WARN] Invalid password attempt")
		response.Error(w, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}

	log.Printf("[OK] User logged in - ID: %s, Role: %s", user.ID, user.Role)
	h.respondWithToken(w, http.StatusOK, "Login successful", user)
}

func (h *authHandler) respondWithToken(w http.ResponseWriter, status int, message string, user *users.User) {
	token, err := h.tokens.Generate(user.Principal())
	if err != nil {
		log.Printf("[ERROR] Failed to generate JWT for user id: %s", user.ID)
		response.Fail(w, apperror.Internal("Failed to generate token", err))
		return
	}

	response.Success(w, status, message, map[string]interface{}{
		"id":       user.ID,
		"token":    token,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())

	user, err := h.users.FindByID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "User not found", "")
			return
		}
		response.Fail(w, apperror.Internal("Failed to load user", err))
		return
	}

	response.Success(w, http.StatusOK, "User profile fetched", user)
}

func (h *authHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFrom(r.Context())

	var input profileInput
	if err := validation.DecodeJSON(r.Body, &input); err != nil {
		response.Fail(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), principal.UserID, users.ProfileUpdate{
		Username:     input.Username,
		ProfileImage: input.ProfileImage,
	})
	switch {
	case errors.Is(err, users.ErrNotFound):
		response.Error(w, http.StatusNotFound, "User not found", "")
		return
	case errors.Is(err, users.ErrDuplicate):
		response.Error(w, http.StatusConflict, "Username already taken", "")
		return
	case err != nil:
		response.Fail(w, apperror.Internal("Failed to update profile", err))
		return
	}

	middleware.LogInfoCtx(r.Context(), "Profile updated for user "+user.ID)
	response.Success(w, http.StatusOK, "Profile updated", user)
}

// deleteUser is the admin-only hard delete used to clean up test accounts.
func (h *authHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		response.Error(w, http.StatusBadRequest, "email query parameter is required", "")
		return
	}

	if err := h.users.DeleteByEmail(r.Context(), email); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "User not found", "")
			return
		}
		response.Fail(w, apperror.Internal("Failed to delete user", err))
		return
	}

	middleware.LogWarnCtx(r.Context(), "User deleted by admin", nil)
	response.Success(w, http.StatusOK, "User deleted", nil)
}

func (h *authHandler) health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "UP",
		"service": "auth-service",
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			health["status"] = "DOWN"
			health["database"] = "disconnected"
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "connected"
		}
	}

	if counts, err := h.users.CountByRole(r.Context()); err == nil {
		health["users"] = counts
	}

	response.JSON(w, status, health)
}
