package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-auth-service/internal/config"
	"github.com/pribylovaa/go-auth-service/internal/service"
	"github.com/pribylovaa/go-auth-service/internal/storage/memory"
)

// Сквозные тесты HTTP-слоя: реальный роутер + сервис поверх in-memory
// хранилища. Проверяются коды ответов, формат тел и полный жизненный цикл
// сессии (регистрация -> вход -> ротация -> выход).

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.AuthConfig{
		AccessSecret:    "http-access-secret",
		RefreshSecret:   "http-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
		Audience:        []string{"api-gateway"},
	}

	svc := service.New(memory.New(), cfg)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewRouter(svc, Options{
		Logger:  logger,
		Timeout: 5 * time.Second,
		Metrics: prometheus.NewRegistry(),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

type authBody struct {
	UserID          int64  `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"`
}

type errBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any, bearer string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	return resp
}

func decodeAuth(t *testing.T, resp *http.Response) authBody {
	t.Helper()
	defer resp.Body.Close()

	var out authBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, resp *http.Response) errBody {
	t.Helper()
	defer resp.Body.Close()

	var out errBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func register(t *testing.T, srv *httptest.Server, email, password string) authBody {
	t.Helper()

	resp := postJSON(t, srv, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeAuth(t, resp)
}

func TestRegister_Created(t *testing.T) {
	srv := newTestServer(t)

	body := register(t, srv, "alice@example.com", "Str0ng#pass")

	require.NotZero(t, body.UserID)
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)
	require.NotEqual(t, body.AccessToken, body.RefreshToken)
	require.Greater(t, body.AccessExpiresAt, time.Now().Unix())
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	srv := newTestServer(t)

	register(t, srv, "dup@example.com", "Str0ng#pass")

	resp := postJSON(t, srv, "/auth/register", map[string]string{
		"email":    "dup@example.com",
		"password": "An0ther#pass",
	}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_exists", decodeError(t, resp).Error.Code)
}

func TestRegister_InvalidInput_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	tcs := []struct {
		name string
		body map[string]string
	}{
		{"bad_email", map[string]string{"email": "not-an-email", "password": "Str0ng#pass"}},
		{"weak_password", map[string]string{"email": "ok@example.com", "password": "short"}},
		{"empty_password", map[string]string{"email": "ok@example.com", "password": ""}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv, "/auth/register", tc.body, "")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "invalid_argument", decodeError(t, resp).Error.Code)
		})
	}
}

func TestRegister_MalformedJSON_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/register",
		bytes.NewBufferString(`{"email": broken`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_argument", decodeError(t, resp).Error.Code)
}

// Неизвестные поля в теле запроса отклоняются строгим декодером.
func TestRegister_UnknownField_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/register", map[string]string{
		"email":    "x@example.com",
		"password": "Str0ng#pass",
		"extra":    "nope",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_OKAndAccessDenied(t *testing.T) {
	srv := newTestServer(t)

	reg := register(t, srv, "bob@example.com", "Str0ng#pass")

	// Успешный вход.
	resp := postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "bob@example.com",
		"password": "Str0ng#pass",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeAuth(t, resp)
	require.Equal(t, reg.UserID, body.UserID)
	require.NotEmpty(t, body.RefreshToken)

	// Неверный пароль и неизвестный email дают одинаковый ответ.
	wrongPass := postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "bob@example.com",
		"password": "Wr0ng#pass!",
	}, "")
	require.Equal(t, http.StatusForbidden, wrongPass.StatusCode)
	wrongPassBody := decodeError(t, wrongPass)

	unknown := postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "Wr0ng#pass!",
	}, "")
	require.Equal(t, http.StatusForbidden, unknown.StatusCode)
	unknownBody := decodeError(t, unknown)

	require.Equal(t, wrongPassBody.Error.Code, unknownBody.Error.Code)
	require.Equal(t, wrongPassBody.Error.Message, unknownBody.Error.Message)
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	srv := newTestServer(t)

	reg := register(t, srv, "carol@example.com", "Str0ng#pass")

	// Обмен refresh-токена на новую пару.
	resp := postJSON(t, srv, "/auth/refresh", nil, reg.RefreshToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decodeAuth(t, resp)
	require.Equal(t, reg.UserID, next.UserID)
	require.NotEmpty(t, next.RefreshToken)
	require.NotEqual(t, reg.RefreshToken, next.RefreshToken)

	// Повторное предъявление использованного токена — отказ в доступе.
	reuse := postJSON(t, srv, "/auth/refresh", nil, reg.RefreshToken)
	require.Equal(t, http.StatusForbidden, reuse.StatusCode)
	require.Equal(t, "access_denied", decodeError(t, reuse).Error.Code)

	// Новый токен остаётся рабочим.
	again := postJSON(t, srv, "/auth/refresh", nil, next.RefreshToken)
	require.Equal(t, http.StatusOK, again.StatusCode)
	_ = decodeAuth(t, again)
}

// Access-токен не проходит RefreshGuard (другой секрет подписи), и наоборот.
func TestRefresh_AccessTokenRejectedByGuard(t *testing.T) {
	srv := newTestServer(t)

	reg := register(t, srv, "dave@example.com", "Str0ng#pass")

	resp := postJSON(t, srv, "/auth/refresh", nil, reg.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthenticated", decodeError(t, resp).Error.Code)

	resp = postJSON(t, srv, "/auth/logout", nil, reg.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_MissingToken_Unauthorized(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/refresh", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_IdempotentAndInvalidatesRefresh(t *testing.T) {
	srv := newTestServer(t)

	reg := register(t, srv, "erin@example.com", "Str0ng#pass")

	resp := postJSON(t, srv, "/auth/logout", nil, reg.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Ok bool `json:"ok"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.True(t, out.Ok)

	// Повторный logout не ошибка: сессии уже нет.
	resp = postJSON(t, srv, "/auth/logout", nil, reg.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Refresh-токен закрытой сессии отклоняется.
	refresh := postJSON(t, srv, "/auth/refresh", nil, reg.RefreshToken)
	require.Equal(t, http.StatusForbidden, refresh.StatusCode)
	require.Equal(t, "access_denied", decodeError(t, refresh).Error.Code)
}

// Вход выдаёт новую пару и делает предыдущий refresh-токен недействительным.
func TestLogin_RotatesRefreshSlot(t *testing.T) {
	srv := newTestServer(t)

	reg := register(t, srv, "fred@example.com", "Str0ng#pass")

	login := postJSON(t, srv, "/auth/login", map[string]string{
		"email":    "fred@example.com",
		"password": "Str0ng#pass",
	}, "")
	require.Equal(t, http.StatusOK, login.StatusCode)
	fresh := decodeAuth(t, login)

	stale := postJSON(t, srv, "/auth/refresh", nil, reg.RefreshToken)
	require.Equal(t, http.StatusForbidden, stale.StatusCode)

	ok := postJSON(t, srv, "/auth/refresh", nil, fresh.RefreshToken)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	_ = decodeAuth(t, ok)
}

func TestResponses_CarryRequestID(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/login",
		bytes.NewBufferString(`{"email":"x@example.com","password":"Str0ng#pass"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "test-rid-1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	require.Equal(t, "test-rid-1", resp.Header.Get("X-Request-Id"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "test-rid-1", decodeError(t, resp).Error.RequestID)
}
