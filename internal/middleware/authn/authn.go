package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"blog_auth/internal/guard"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AccessTokenParser interface {
	ParseAccess(tokenStr string) (models.Principal, error)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(models.Principal)
	return p, ok
}

// * New проверяет Bearer access токен и кладет Principal в контекст запроса
func New(log *slog.Logger, parser AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Info("missing bearer token")

				Unauthorized(w, r)

				return
			}

			principal, err := parser.ParseAccess(token)
			if err != nil {
				log.Info("access token rejected", sl.Err(err))

				Unauthorized(w, r)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// * RequireOp проверяет роль принципала по статической таблице guard.Policies
func RequireOp(log *slog.Logger, operation guard.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				Unauthorized(w, r)

				return
			}

			if err := guard.AuthorizeOp(principal.Role, operation); err != nil {
				log.Warn("operation forbidden",
					slog.String("operation", string(operation)),
					slog.Int64("uid", principal.UserID),
					slog.String("role", string(principal.Role)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)

				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("forbidden"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
