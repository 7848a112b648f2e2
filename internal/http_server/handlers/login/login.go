package login

import (
	"context"
	"log/slog"
	"net/http"

	"blog_auth/internal/auth"
	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=100"`
}

type Response struct {
	resp.Response
	User models.PublicUser `json:"user"`
	models.TokenPair
}

type UserLoginer interface {
	Login(ctx context.Context, email, pass string) (auth.LoginResult, error)
}

// New godoc
// @Summary      Вход в систему
// @Description  ## Описание
// @Description  Проверяет email и пароль, выпускает пару access/refresh токенов и сохраняет хеш refresh токена.
// @Description
// @Description  ### Особенности:
// @Description  - Неизвестный email и неверный пароль дают одинаковый ответ 401
// @Description  - Новый вход отзывает refresh токен предыдущей сессии (одна активная сессия на аккаунт)
// @Description  - После серии неудачных попыток вход блокируется, ответ 429 с заголовком Retry-After
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  object{email=string,password=string}  true  "Учетные данные"  example({"email": "a@x.com", "password": "Passw0rd1"})
// @Success      200  {object}  object{status=string,user=object,access_token=string,refresh_token=string}  "Успешный вход"
// @Failure      400  {object}  object{status=string,error=string,fields=object}  "Ошибка валидации"
// @Failure      401  {object}  object{status=string,error=string}  "Неверные учетные данные"  example({"status": "Error", "error": "invalid credentials"})
// @Failure      429  {object}  object{status=string,error=string}  "Вход временно заблокирован"
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"
// @Router       /auth/login [post]
// @x-order      2
func New(log *slog.Logger, validate *validator.Validate, loginer UserLoginer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		res, err := loginer.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		log.Info("user logged in successfully", slog.Int64("uid", res.User.ID))

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			User:      res.User,
			TokenPair: res.Tokens,
		})
	}
}
