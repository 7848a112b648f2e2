package router

import (
	"log/slog"
	"net/http"
	"time"

	"blog_auth/internal/guard"
	"blog_auth/internal/http_server/handlers/edgesession"
	"blog_auth/internal/http_server/handlers/login"
	"blog_auth/internal/http_server/handlers/logout"
	"blog_auth/internal/http_server/handlers/profile"
	"blog_auth/internal/http_server/handlers/refresh"
	"blog_auth/internal/http_server/handlers/register"
	"blog_auth/internal/http_server/handlers/users"
	"blog_auth/internal/middleware/authn"
	"blog_auth/internal/middleware/ratelimit"
	"blog_auth/internal/middleware/routegate"
	"blog_auth/internal/observability"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

type AuthService interface {
	register.UserRegisterer
	login.UserLoginer
	refresh.TokenRefresher
	logout.SessionCloser
	profile.ProfileProvider
	users.UserLister
	users.UserDeleter
}

// * MaxBodyBytes предел тела запроса для эндпоинтов аутентификации
const MaxBodyBytes = 64 << 10

type RateLimit struct {
	Requests int
	Window   time.Duration
}

func NewAPI(
	log *slog.Logger,
	validate *validator.Validate,
	authService AuthService,
	tokens authn.AccessTokenParser,
	limit RateLimit,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(observability.Recoverer(log))
	r.Use(ratelimit.ByIP(limit.Requests, limit.Window))
	r.Use(limitBody(MaxBodyBytes))

	requireAuth := authn.New(log, tokens)

	r.Route("/auth", func(r chi.Router) {
		r.With(ratelimit.Register()).Post("/register", register.New(log, validate, authService))
		r.With(ratelimit.Login()).Post("/login", login.New(log, validate, authService))
		r.With(ratelimit.Refresh()).Post("/refresh", refresh.New(log, validate, authService))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.With(ratelimit.Logout(), authn.RequireOp(log, guard.OpLogout)).
				Post("/logout", logout.New(log, authService))
			r.With(authn.RequireOp(log, guard.OpGetProfile)).
				Get("/profile", profile.New(log, authService))
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)

		r.With(authn.RequireOp(log, guard.OpListUsers)).Get("/", users.List(log, authService))
		r.With(authn.RequireOp(log, guard.OpDeleteUser)).Delete("/{id}", users.Delete(log, authService))
	})

	return r
}

// * NewEdge: /session/* обрабатывает сам edge, остальное проходит через RouteGate в рендерер страниц
func NewEdge(
	log *slog.Logger,
	sessions *edgesession.Handlers,
	gate *routegate.Gate,
	pages http.Handler,
	limit RateLimit,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(observability.Recoverer(log))
	r.Use(ratelimit.ByIP(limit.Requests, limit.Window))

	r.Route("/session", func(r chi.Router) {
		r.Use(ratelimit.Session())
		r.Use(limitBody(MaxBodyBytes))

		r.Post("/login", sessions.Login)
		r.Post("/refresh", sessions.Refresh)
		r.Post("/logout", sessions.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)

		r.Handle("/*", pages)
	})

	return r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)

			next.ServeHTTP(w, r)
		})
	}
}
