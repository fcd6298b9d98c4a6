package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/services"
	"github.com/reelwork/marketplace/pkg/logger"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    services.AuthService
	cookie CookieConfig
}

func NewAuthHandler(svc services.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.RegisterResponse{Message: "Registration successful", User: u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, res.Session.ID, res.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, types.LoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(res.ExpiresIn / time.Second),
		User:        res.User,
	})
}

// Logout ends the cookie session, if any. Bearer tokens expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := ""
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		sid = c.Value
	}
	if err := h.svc.Logout(r.Context(), sid); err != nil {
		logger.Ctx(r.Context()).Warn("logout failed", zap.Error(err))
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Me(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookie.Secure,
		Expires:  expires,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookie.Secure,
		MaxAge:   -1,
	})
}
