package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ListResponse struct {
	resp.Response
	Users []models.PublicUser `json:"users"`
}

type UserLister interface {
	ListUsers(ctx context.Context) ([]models.PublicUser, error)
}

type UserDeleter interface {
	DeleteUser(ctx context.Context, id int64) error
}

// List godoc
// @Summary      Список пользователей
// @Description  Доступно только роли ADMIN.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  object{status=string,users=[]object}  "Пользователи по возрастанию id"
// @Failure      401  {object}  object{status=string,error=string}  "Нет или недействителен access токен"
// @Failure      403  {object}  object{status=string,error=string}  "Недостаточно прав"  example({"status": "Error", "error": "forbidden"})
// @Router       /users [get]
// @x-order      6
func List(log *slog.Logger, lister UserLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		users, err := lister.ListUsers(r.Context())
		if err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Users:    users,
		})
	}
}

// Delete godoc
// @Summary      Удаление пользователя
// @Description  Доступно только роли ADMIN. После удаления в очередь уходит событие user.deleted.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  integer  true  "ID пользователя"
// @Success      200  {object}  object{status=string}  "Пользователь удален"
// @Failure      400  {object}  object{status=string,error=string}  "Некорректный id"
// @Failure      403  {object}  object{status=string,error=string}  "Недостаточно прав"
// @Failure      404  {object}  object{status=string,error=string}  "Пользователь не найден"
// @Router       /users/{id} [delete]
// @x-order      7
func Delete(log *slog.Logger, deleter UserDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.Delete"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httperr.BadRequest(w, r, "invalid user id")

			return
		}

		if err := deleter.DeleteUser(r.Context(), id); err != nil {
			httperr.Write(w, r, log, err)

			return
		}

		log.Info("user deleted", slog.Int64("uid", id))

		render.JSON(w, r, resp.OK())
	}
}
