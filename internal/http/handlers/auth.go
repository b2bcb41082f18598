package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-auth-service/internal/errors"
	"github.com/pribylovaa/go-auth-service/internal/http/middleware"
	"github.com/pribylovaa/go-auth-service/internal/service"
)

// RegisterUser регистрирует пользователя и возвращает пару токенов (201).
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	pair, userID, err := h.Service.RegisterUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse(pair, userID))
}

// LoginUser выполняет вход по email+пароль и возвращает пару токенов.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	pair, userID, err := h.Service.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(pair, userID))
}

// RefreshTokens обменивает refresh-токен на новую пару.
// Идентичность и сам предъявленный токен кладёт в контекст RefreshGuard;
// сверку с хранимым хэшем и ротацию выполняет сервис.
func (h *Handlers) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	token, ok := middleware.RefreshTokenFromContext(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	pair, err := h.Service.RefreshTokens(r.Context(), identity.UserID, token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(pair, identity.UserID))
}

// Logout закрывает сессию владельца access-токена. Идемпотентен.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	if err := h.Service.Logout(r.Context(), identity.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LogoutResponse{Ok: true})
}
