package api

import (
	"encoding/json"
	"net/http"

	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
)

type AuthHandler struct {
	AuthService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{AuthService: authService}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.AuthService.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RespondJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, user, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, err := h.AuthService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		middleware.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"access_token": accessToken})
}

// GetCurrentUser handles GET /auth/me
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	current, err := h.AuthService.GetUserByID(r.Context(), user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, current)
}
