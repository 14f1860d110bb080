package handlers

import (
	"log/slog"
	"net/http"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/services"
)

// toUserProfile converts a domain user to its API representation
func toUserProfile(u *entities.User) api.UserProfile {
	return api.UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Age:       u.Age,
		Gender:    u.Gender,
		CreatedAt: u.CreatedAt,
	}
}

func tokenResponse(user *entities.User, pair *services.TokenPair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		User:         toUserProfile(user),
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.FullName, req.Age, req.Gender)
	if err != nil {
		if services.IsEmailTaken(err) {
			h.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.log.Error("registration failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.log.Info("user registered", slog.String("user_id", user.ID))
	h.writeJSON(w, http.StatusCreated, tokenResponse(user, pair))
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if services.IsUserInactive(err) {
			h.writeError(w, http.StatusForbidden, "account is inactive")
			return
		}
		h.writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	h.log.Info("user logged in", slog.String("user_id", user.ID))
	h.writeJSON(w, http.StatusOK, tokenResponse(user, pair))
}

// Refresh handles POST /auth/refresh. It accepts only refresh tokens and
// rotates the full pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if services.IsUserInactive(err) {
			h.writeError(w, http.StatusForbidden, "account is inactive")
			return
		}
		h.writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.log.Debug("tokens refreshed", slog.String("user_id", user.ID))
	h.writeJSON(w, http.StatusOK, tokenResponse(user, pair))
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	user, err := h.authSvc.GetUser(r.Context(), userCtx.UserID)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	h.writeJSON(w, http.StatusOK, toUserProfile(user))
}

// UpdateMe handles PUT /auth/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var req api.UpdateProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.authSvc.UpdateProfile(r.Context(), userCtx.UserID, req.FullName, req.Age, req.Gender)
	if err != nil {
		h.log.Error("profile update failed",
			slog.String("user_id", userCtx.UserID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "profile update failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toUserProfile(user))
}
