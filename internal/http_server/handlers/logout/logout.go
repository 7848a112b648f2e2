package logout

import (
	"context"
	"log/slog"
	"net/http"

	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SessionCloser interface {
	Logout(ctx context.Context, userID int64) error
}

// New godoc
// @Summary      Выход из системы
// @Description  ## Описание
// @Description  Стирает хеш refresh токена пользователя из access токена.
// @Description
// @Description  ### Особенности:
// @Description  - После logout refresh токен больше нельзя обменять на новую пару
// @Description  - Access токен остается валидным до истечения TTL (~15 минут)
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  object{status=string}  "Успешный выход из системы"  example({"status": "OK"})
// @Failure      401  {object}  object{status=string,error=string}  "Нет или недействителен access токен"
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"
// @Router       /auth/logout [post]
// @x-order      4
func New(log *slog.Logger, closer SessionCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.PrincipalFrom(r.Context())
		if !ok {
			authn.Unauthorized(w, r)

			return
		}

		if err := closer.Logout(r.Context(), principal.UserID); err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		log.Info("user logged out", slog.Int64("uid", principal.UserID))

		render.JSON(w, r, resp.OK())
	}
}
