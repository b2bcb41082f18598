package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-auth-service/internal/http/handlers"
	"github.com/pribylovaa/go-auth-service/internal/http/middleware"
	"github.com/pribylovaa/go-auth-service/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Metrics prometheus.Registerer // nil — метрики не регистрируются.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
//
// Guard'ы навешиваются явной композицией по группам маршрутов:
//   - публичные операции (register/login) — без guard'ов;
//   - refresh — за RefreshGuard (вызывающий по определению ещё не
//     держит действующий access-токен);
//   - logout — за AccessGuard.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(middleware.Metrics(opts.Metrics))
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)

	// Публичные операции.
	root.Group(func(r chi.Router) {
		r.Post("/auth/register", h.RegisterUser)
		r.Post("/auth/login", h.LoginUser)
	})

	// Refresh-аутентифицированные операции.
	root.Group(func(r chi.Router) {
		r.Use(middleware.RefreshGuard(svc))
		r.Post("/auth/refresh", h.RefreshTokens)
	})

	// Access-аутентифицированные операции.
	root.Group(func(r chi.Router) {
		r.Use(middleware.AccessGuard(svc))
		r.Post("/auth/logout", h.Logout)
	})

	return root
}
