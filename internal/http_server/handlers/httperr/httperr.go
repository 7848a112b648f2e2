package httperr

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"blog_auth/internal/auth"
	"blog_auth/internal/guard"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/observability"
	"blog_auth/internal/registry"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// * Write переводит ошибку сервиса в HTTP статус и плоский ответ; неизвестные ошибки уходят в Sentry
func Write(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var locked *auth.LoginLockedError

	switch {
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.RetryAfter.Seconds()))))
		write(w, r, http.StatusTooManyRequests, "too many failed login attempts")
	case errors.Is(err, auth.ErrUserExists):
		write(w, r, http.StatusConflict, "user already exists")
	case errors.Is(err, auth.ErrUserNotFound):
		write(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		write(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, registry.ErrSessionRevoked):
		write(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, guard.ErrForbidden):
		write(w, r, http.StatusForbidden, "forbidden")
	default:
		log.Error("internal error", sl.Err(err))
		observability.CaptureError(r, err)

		write(w, r, http.StatusInternalServerError, "internal error")
	}
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp.Error(msg))
}

// * Validation отвечает 400 с ошибками по каждому полю
func Validation(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)

	var validateErr validator.ValidationErrors
	if errors.As(err, &validateErr) {
		render.JSON(w, r, resp.ValidationError(validateErr))

		return
	}

	render.JSON(w, r, resp.Error("invalid request"))
}

func write(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, resp.Error(msg))
}
