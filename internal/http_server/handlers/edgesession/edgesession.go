package edgesession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"blog_auth/internal/edge/apiclient"
	"blog_auth/internal/http_server/handlers/httperr"
	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/lib/session"
	"blog_auth/internal/models"
	"blog_auth/internal/observability"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type APIClient interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type Codec interface {
	Encode(p session.Payload) (string, error)
	Decode(tokenStr string) (session.Envelope, error)
	TTL() time.Duration
}

type Config struct {
	CookieName  string
	Secure      bool
	LoginPath   string
	LandingPath string
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,max=100"`
}

type Handlers struct {
	log      *slog.Logger
	validate *validator.Validate
	api      APIClient
	codec    Codec
	cfg      Config
	now      func() time.Time
}

func New(log *slog.Logger, validate *validator.Validate, api APIClient, codec Codec, cfg Config) *Handlers {
	return &Handlers{
		log:      log,
		validate: validate,
		api:      api,
		codec:    codec,
		cfg:      cfg,
		now:      time.Now,
	}
}

// * Login логинит через API, кладет конверт в httpOnly cookie и отправляет на стартовую страницу
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.edgesession.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req LoginRequest

	if err := render.Decode(r, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))

		httperr.BadRequest(w, r, "failed to decode request")

		return
	}

	if err := h.validate.Struct(req); err != nil {
		httperr.Validation(w, r, err)

		return
	}

	res, err := h.api.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.apiError(w, r, log, err)

		return
	}

	payload := session.Payload{
		User: session.User{
			ID:    res.User.ID,
			Name:  res.User.Name,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}

	if err := h.setSession(w, payload); err != nil {
		httperr.Write(w, r, log, err)

		return
	}

	log.Info("session created", slog.Int64("uid", res.User.ID))

	http.Redirect(w, r, h.cfg.LandingPath, http.StatusSeeOther)
}

// * Refresh меняет пару токенов через API и перевыпускает конверт с тем же пользователем
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.edgesession.Refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	env, ok := h.envelope(r)
	if !ok {
		h.clearSession(w)
		unauthorized(w, r)

		return
	}

	pair, err := h.api.Refresh(r.Context(), env.RefreshToken)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			log.Info("refresh rejected by api", slog.Int64("uid", env.User.ID))

			h.clearSession(w)
			unauthorized(w, r)

			return
		}

		h.apiError(w, r, log, err)

		return
	}

	env.Payload.AccessToken = pair.AccessToken
	env.Payload.RefreshToken = pair.RefreshToken

	if err := h.setSession(w, env.Payload); err != nil {
		httperr.Write(w, r, log, err)

		return
	}

	log.Info("session refreshed", slog.Int64("uid", env.User.ID))

	render.JSON(w, r, resp.OK())
}

// * Logout отзывает сессию в API (ошибки не мешают выходу), очищает cookie и ведет на страницу входа
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.edgesession.Logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if env, ok := h.envelope(r); ok {
		if err := h.api.Logout(r.Context(), env.AccessToken); err != nil {
			log.Warn("api logout failed", slog.Int64("uid", env.User.ID), sl.Err(err))
		}
	}

	h.clearSession(w)

	http.Redirect(w, r, h.cfg.LoginPath, http.StatusSeeOther)
}

func (h *Handlers) envelope(r *http.Request) (session.Envelope, bool) {
	c, err := r.Cookie(h.cfg.CookieName)
	if err != nil || c.Value == "" {
		return session.Envelope{}, false
	}

	env, err := h.codec.Decode(c.Value)
	if err != nil {
		return session.Envelope{}, false
	}

	return env, true
}

func (h *Handlers) setSession(w http.ResponseWriter, p session.Payload) error {
	token, err := h.codec.Encode(p)
	if err != nil {
		return err
	}

	ttl := h.codec.TTL()

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  h.now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (h *Handlers) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) apiError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var apiErr *apiclient.APIError

	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, resp.Error("invalid credentials"))
	case errors.Is(err, apiclient.ErrInvalidInput) && errors.As(err, &apiErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Response{Status: resp.StatusError, Error: apiErr.Message, Fields: apiErr.Fields})
	case errors.Is(err, apiclient.ErrRateLimited):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, resp.Error("too many requests"))
	default:
		log.Error("api request failed", sl.Err(err))
		observability.CaptureError(r, err)

		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, resp.Error("upstream unavailable"))
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
