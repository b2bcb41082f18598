package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-auth-service/internal/service"
)

// stubVerifier — минимальная реализация TokenVerifier для тестов guard'ов.
// Каждый метод признаёт ровно один «правильный» токен своего класса.
type stubVerifier struct {
	accessToken  string
	refreshToken string
	uid          int64
	email        string
	accessErr    error
	refreshErr   error
}

func (v *stubVerifier) VerifyAccessToken(token string) (int64, string, error) {
	if v.accessErr != nil {
		return 0, "", v.accessErr
	}
	if token != v.accessToken {
		return 0, "", service.ErrInvalidToken
	}
	return v.uid, v.email, nil
}

func (v *stubVerifier) VerifyRefreshToken(token string) (int64, string, error) {
	if v.refreshErr != nil {
		return 0, "", v.refreshErr
	}
	if token != v.refreshToken {
		return 0, "", service.ErrInvalidToken
	}
	return v.uid, v.email, nil
}

func guardedEcho(t *testing.T, guard Middleware) (http.Handler, *Identity, *string) {
	t.Helper()

	var ident Identity
	var refresh string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			ident = id
		}
		if tok, ok := RefreshTokenFromContext(r.Context()); ok {
			refresh = tok
		}
		w.WriteHeader(http.StatusOK)
	})

	return Chain(h, guard), &ident, &refresh
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errEnvelope {
	t.Helper()

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestAccessGuard_OK_AttachesIdentity(t *testing.T) {
	v := &stubVerifier{accessToken: "good-access", uid: 42, email: "user@example.com"}
	h, ident, _ := guardedEcho(t, AccessGuard(v))

	rr := httptest.NewRecorder()
	req := makeReq("/auth/logout")
	req.Header.Set("Authorization", "Bearer good-access")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(42), ident.UserID)
	require.Equal(t, "user@example.com", ident.Email)
}

func TestAccessGuard_MissingOrMalformedHeader_401(t *testing.T) {
	v := &stubVerifier{accessToken: "good-access", uid: 1, email: "a@b.c"}
	h, _, _ := guardedEcho(t, AccessGuard(v))

	tcs := []struct {
		name   string
		header string
	}{
		{"no_header", ""},
		{"basic_scheme", "Basic aaa"},
		{"bearer_no_token", "Bearer "},
		{"bearer_only_spaces", "Bearer    "},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := makeReq("/auth/logout")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
		})
	}
}

func TestAccessGuard_BadToken_401(t *testing.T) {
	v := &stubVerifier{accessToken: "good-access", uid: 1, email: "a@b.c"}
	h, _, _ := guardedEcho(t, AccessGuard(v))

	rr := httptest.NewRecorder()
	req := makeReq("/auth/logout")
	req.Header.Set("Authorization", "Bearer tampered")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
}

func TestAccessGuard_ExpiredToken_401(t *testing.T) {
	v := &stubVerifier{accessErr: service.ErrTokenExpired}
	h, _, _ := guardedEcho(t, AccessGuard(v))

	rr := httptest.NewRecorder()
	req := makeReq("/auth/logout")
	req.Header.Set("Authorization", "Bearer whatever")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
}

func TestRefreshGuard_OK_AttachesIdentityAndToken(t *testing.T) {
	v := &stubVerifier{refreshToken: "good-refresh", uid: 7, email: "r@e.f"}
	h, ident, refresh := guardedEcho(t, RefreshGuard(v))

	rr := httptest.NewRecorder()
	req := makeReq("/auth/refresh")
	req.Header.Set("Authorization", "Bearer good-refresh")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(7), ident.UserID)
	// Сервису нужен «сырой» токен для сверки с хранимым хэшем.
	require.Equal(t, "good-refresh", *refresh)
}

// Токен другого класса (access вместо refresh) отклоняется guard'ом.
func TestRefreshGuard_WrongClassToken_401(t *testing.T) {
	v := &stubVerifier{refreshToken: "good-refresh", uid: 7, email: "r@e.f"}
	h, _, _ := guardedEcho(t, RefreshGuard(v))

	rr := httptest.NewRecorder()
	req := makeReq("/auth/refresh")
	req.Header.Set("Authorization", "Bearer some-access-token")
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthenticated", decodeErr(t, rr).Error.Code)
}

func TestRefreshGuard_MissingHeader_401(t *testing.T) {
	v := &stubVerifier{refreshToken: "good-refresh"}
	h, _, _ := guardedEcho(t, RefreshGuard(v))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/auth/refresh"))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

// В незащищённом (без guard'ов) запросе идентичности в контексте нет.
func TestIdentityFromContext_AbsentByDefault(t *testing.T) {
	req := makeReq("/public")

	_, ok := IdentityFromContext(req.Context())
	require.False(t, ok)

	_, ok = RefreshTokenFromContext(req.Context())
	require.False(t, ok)
}
