package observability

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	resp "blog_auth/internal/lib/api/response"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// * InitSentry без DSN ничего не делает; захват ошибок тогда становится no-op
func InitSentry(dsn, environment string, tracesSampleRate float64) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		TracesSampleRate: tracesSampleRate,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// * CaptureError отправляет внутреннюю ошибку запроса в Sentry
func CaptureError(r *http.Request, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", r.Method)
		scope.SetTag("path", r.URL.Path)
		scope.SetTag("request_id", middleware.GetReqID(r.Context()))
		sentry.CaptureException(err)
	})
}

// * Recoverer перехватывает панику, отправляет ее в Sentry и отвечает 500
func Recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())

				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetExtra("panic", rec)
					scope.SetExtra("stack", stack)
					scope.SetTag("path", r.URL.Path)
					sentry.CaptureMessage("panic in request")
				})

				log.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("internal error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
