package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Response struct {
	resp.Response
	models.TokenPair
}

type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// New godoc
// @Summary      Обновление токенов
// @Description  Обменивает действующий refresh токен на новую пару. Предыдущий refresh токен после этого не принимается.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  body  object{refresh_token=string}  true  "Refresh токен"  example({"refresh_token": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."})
// @Success      200  {object}  object{status=string,access_token=string,refresh_token=string}  "Новая пара токенов"
// @Failure      400  {object}  object{status=string,error=string,fields=object}  "Токен не передан"
// @Failure      401  {object}  object{status=string,error=string}  "Токен недействителен или сессия отозвана"  example({"status": "Error", "error": "unauthorized"})
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"
// @Router       /auth/refresh [post]
// @x-order      3
func New(log *slog.Logger, validate *validator.Validate, refresher TokenRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			httperr.BadRequest(w, r, "failed to decode request")

			return
		}

		if err := validate.Struct(req); err != nil {
			log.Info("invalid request", sl.Err(err))

			httperr.Validation(w, r, err)

			return
		}

		pair, err := refresher.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		log.Info("tokens refreshed")

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			TokenPair: pair,
		})
	}
}
