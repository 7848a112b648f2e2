package proxy

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/middleware/routegate"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// * New проксирует запросы в рендерер страниц; личность берется только из проверенного конверта
func New(log *slog.Logger, upstream *url.URL) http.Handler {
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()

			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del(HeaderUserID)
			pr.Out.Header.Del(HeaderUserEmail)
			pr.Out.Header.Del(HeaderUserRole)

			env, ok := routegate.EnvelopeFrom(pr.In.Context())
			if !ok {
				return
			}

			pr.Out.Header.Set("Authorization", "Bearer "+env.AccessToken)
			pr.Out.Header.Set(HeaderUserID, strconv.FormatInt(env.User.ID, 10))
			pr.Out.Header.Set(HeaderUserEmail, env.User.Email)
			pr.Out.Header.Set(HeaderUserRole, string(env.User.Role))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("upstream request failed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("path", r.URL.Path),
				sl.Err(err),
			)

			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, resp.Error("upstream unavailable"))
		},
	}

	return rp
}
