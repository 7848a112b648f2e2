package register

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
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100,password"`
	Name     string `json:"name" validate:"omitempty,min=2,max=50"`
}

type Response struct {
	resp.Response
	models.PublicUser
}

type UserRegisterer interface {
	Register(ctx context.Context, email, pass, name string) (models.PublicUser, error)
}

// New godoc
// @Summary      Регистрация пользователя
// @Description  ## Описание
// @Description  Создает учетную запись с ролью USER и возвращает ее без хеша пароля.
// @Description
// @Description  ### Требования к данным:
// @Description  - email должен быть корректным адресом и еще не занят
// @Description  - пароль от 8 до 100 символов, минимум одна строчная, одна заглавная буква и одна цифра
// @Description  - имя необязательно, от 2 до 50 символов
// @Description
// @Description  После успешной регистрации в очередь уходит событие user.registered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user  body  object{email=string,password=string,name=string}  true  "Данные нового пользователя"  example({"email": "a@x.com", "password": "Passw0rd1", "name": "Alice"})
// @Success      201  {object}  object{status=string,id=integer,email=string,name=string,role=string}  "Пользователь создан"  example({"status": "OK", "id": 1, "email": "a@x.com", "name": "Alice", "role": "USER"})
// @Failure      400  {object}  object{status=string,error=string,fields=object}  "Ошибка валидации по полям"  example({"status": "Error", "error": "field password must contain an uppercase letter, a lowercase letter and a digit", "fields": {"password": "field password must contain an uppercase letter, a lowercase letter and a digit"}})
// @Failure      409  {object}  object{status=string,error=string}  "Email уже зарегистрирован"  example({"status": "Error", "error": "user already exists"})
// @Failure      429  {object}  object{status=string,error=string}  "Слишком много запросов"
// @Failure      500  {object}  object{status=string,error=string}  "Внутренняя ошибка сервера"  example({"status": "Error", "error": "internal error"})
// @Router       /auth/register [post]
// @x-order      1
func New(log *slog.Logger, validate *validator.Validate, registerer UserRegisterer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		user, err := registerer.Register(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		log.Info("user registered", slog.Int64("uid", user.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:   resp.OK(),
			PublicUser: user,
		})
	}
}
