package profile

import (
	"context"
	"log/slog"
	"net/http"

	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/middleware/authn"
	"blog_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	models.PublicUser
}

type ProfileProvider interface {
	Profile(ctx context.Context, userID int64) (models.PublicUser, error)
}

// New godoc
// @Summary      Профиль текущего пользователя
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  object{status=string,id=integer,email=string,name=string,role=string}  "Профиль без хеша пароля"
// @Failure      401  {object}  object{status=string,error=string}  "Нет или недействителен access токен"
// @Router       /auth/profile [get]
// @x-order      5
func New(log *slog.Logger, provider ProfileProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		principal, ok := authn.PrincipalFrom(r.Context())
		if !ok {
			authn.Unauthorized(w, r)

			return
		}

		user, err := provider.Profile(r.Context(), principal.UserID)
		if err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		render.JSON(w, r, Response{
			Response:   resp.OK(),
			PublicUser: user,
		})
	}
}
