package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dom/account-auth/internal/api/middleware"
	"github.com/dom/account-auth/internal/domain"
	"github.com/dom/account-auth/internal/service"
	"github.com/go-chi/chi/v5"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	authService   *service.AuthService
	clientURL     string
	refreshTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

type AuthHandlerConfig struct {
	ClientURL     string
	RefreshTTL    time.Duration
	SecureCookies bool
}

func NewAuthHandler(authService *service.AuthService, cfg AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		clientURL:     cfg.ClientURL,
		refreshTTL:    cfg.RefreshTTL,
		secureCookies: cfg.SecureCookies,
		logger:        logger,
	}
}

type RegistrationRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=30"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *RegistrationRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         domain.UserDto `json:"user"`
}

func (h *AuthHandler) Registration(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.Registration(r.Context(), service.RegistrationInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.writeAuthResult(w, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.writeAuthResult(w, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), refreshTokenFromRequest(r)); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.ActivateAccount(r.Context(), chi.URLParam(r, "link")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	http.Redirect(w, r, h.clientURL, http.StatusFound)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.RefreshTokens(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.writeAuthResult(w, result)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserClaims(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	user, err := h.authService.GetUser(r.Context(), claims.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) writeAuthResult(w http.ResponseWriter, result *service.AuthResult) {
	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
