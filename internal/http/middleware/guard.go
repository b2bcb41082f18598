package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-auth-service/internal/errors"
	logctx "github.com/pribylovaa/go-auth-service/internal/pkg/log"
	"github.com/pribylovaa/go-auth-service/internal/service"
)

// Guard'ы — получающие запрос перехватчики вокруг защищённых операций.
// Операция считается публичной, если ни один guard на её группу маршрутов
// не навешан (регистрация, вход, сам refresh-эндпоинт); composition — явная,
// в router.go, без рефлексии по метаданным.
//
// AccessGuard доказывает, что предъявлен корректно подписанный и не истёкший
// access-токен, и кладёт идентичность владельца в контекст. RefreshGuard
// делает то же для refresh-токена (другой секрет), дополнительно сохраняя сам
// предъявленный токен: сверку с хранимым хэшем выполняет сервис, guard
// доказывает только подпись/срок/форму.

// TokenVerifier — контракт проверки токенов, который guard'ам даёт сервис.
type TokenVerifier interface {
	VerifyAccessToken(token string) (int64, string, error)
	VerifyRefreshToken(token string) (int64, string, error)
}

// Identity — идентичность, извлечённая guard'ом из токена.
type Identity struct {
	UserID int64
	Email  string
}

type identityKey struct{}
type refreshTokenKey struct{}

// IdentityFromContext возвращает идентичность, положенную guard'ом.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RefreshTokenFromContext возвращает «сырой» refresh-токен, положенный RefreshGuard.
func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(refreshTokenKey{}).(string)
	return token, ok
}

// AccessGuard отклоняет запрос 401-м до выполнения handler-логики, если
// bearer access-токен отсутствует или не проходит проверку.
func AccessGuard(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			uid, email, err := v.VerifyAccessToken(token)
			if err != nil {
				logctx.From(r.Context()).Warn("access_guard_rejected",
					slog.String("path", r.URL.Path),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{UserID: uid, Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RefreshGuard отклоняет запрос 401-м, если bearer refresh-токен отсутствует,
// подписан не тем секретом или истёк. Сам токен сохраняется в контексте:
// он ещё понадобится сервису для сверки с хранимым хэшем.
func RefreshGuard(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			uid, email, err := v.VerifyRefreshToken(token)
			if err != nil {
				logctx.From(r.Context()).Warn("refresh_guard_rejected",
					slog.String("path", r.URL.Path),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{UserID: uid, Email: email})
			ctx = context.WithValue(ctx, refreshTokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из Authorization: Bearer <token>.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) <= len(prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", false
	}

	return token, true
}
