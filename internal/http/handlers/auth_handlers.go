package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"voltswap/internal/auth"
	"voltswap/internal/models"
	"voltswap/internal/repository"
)

// UserGetter resolves login credentials.
type UserGetter interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthHandlers serves staff/driver login.
type AuthHandlers struct {
	users  UserGetter
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewAuthHandlers builds handlers.
func NewAuthHandlers(users UserGetter, tokens *auth.TokenService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{users: users, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
