package routegate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"blog_auth/internal/lib/session"

	"github.com/go-chi/chi/middleware"
)

type PathClass int

const (
	ClassPublic PathClass = iota
	ClassAuthOnly
	ClassProtected
)

func (c PathClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassAuthOnly:
		return "auth_only"
	default:
		return "protected"
	}
}

type State int

const (
	StateNoEnvelope State = iota
	StateValid
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNoEnvelope:
		return "no_envelope"
	case StateValid:
		return "valid"
	default:
		return "invalid"
	}
}

type Action int

const (
	ActionAllow Action = iota
	ActionRedirectLogin
	ActionRedirectLanding
)

// * Rules классификация путей; префикс совпадает целым сегментом ("/api" и "/api/...", но не "/apix")
type Rules struct {
	PublicExact      []string
	PublicPrefixes   []string
	AuthOnlyPrefixes []string
}

func DefaultRules() Rules {
	return Rules{
		PublicExact:      []string{"/", "/favicon.ico"},
		PublicPrefixes:   []string{"/_next", "/api", "/static", "/session"},
		AuthOnlyPrefixes: []string{"/login", "/register"},
	}
}

func (r Rules) Classify(path string) PathClass {
	for _, p := range r.PublicExact {
		if path == p {
			return ClassPublic
		}
	}

	for _, p := range r.PublicPrefixes {
		if hasSegmentPrefix(path, p) {
			return ClassPublic
		}
	}

	for _, p := range r.AuthOnlyPrefixes {
		if hasSegmentPrefix(path, p) {
			return ClassAuthOnly
		}
	}

	return ClassProtected
}

func hasSegmentPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}

	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// * Decide таблица переходов; недействительный конверт ведет на вход с любого непубличного пути
func Decide(state State, class PathClass) Action {
	switch state {
	case StateValid:
		if class == ClassAuthOnly {
			return ActionRedirectLanding
		}

		return ActionAllow
	case StateInvalid:
		if class != ClassPublic {
			return ActionRedirectLogin
		}

		return ActionAllow
	default:
		if class == ClassProtected {
			return ActionRedirectLogin
		}

		return ActionAllow
	}
}

type EnvelopeDecoder interface {
	Decode(tokenStr string) (session.Envelope, error)
}

type Config struct {
	CookieName  string
	LoginPath   string
	LandingPath string
	Rules       Rules
}

type Gate struct {
	log     *slog.Logger
	decoder EnvelopeDecoder
	cfg     Config
}

func New(log *slog.Logger, decoder EnvelopeDecoder, cfg Config) *Gate {
	return &Gate{
		log:     log,
		decoder: decoder,
		cfg:     cfg,
	}
}

// * State только читает cookie и проверяет подпись, без обращения к API
func (g *Gate) State(r *http.Request) (State, session.Envelope) {
	c, err := r.Cookie(g.cfg.CookieName)
	if err != nil || c.Value == "" {
		return StateNoEnvelope, session.Envelope{}
	}

	env, err := g.decoder.Decode(c.Value)
	if err != nil {
		return StateInvalid, session.Envelope{}
	}

	return StateValid, env
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middleware.routegate"

		state, env := g.State(r)
		class := g.cfg.Rules.Classify(r.URL.Path)

		action := Decide(state, class)
		// страница входа уже открыта, повторный редирект зациклится
		if action == ActionRedirectLogin && r.URL.Path == g.cfg.LoginPath {
			action = ActionAllow
		}

		switch action {
		case ActionRedirectLogin:
			g.redirect(w, r, op, g.cfg.LoginPath, state, class)
		case ActionRedirectLanding:
			g.redirect(w, r, op, g.cfg.LandingPath, state, class)
		default:
			if state == StateValid {
				r = r.WithContext(WithEnvelope(r.Context(), env))
			}

			next.ServeHTTP(w, r)
		}
	})
}

func (g *Gate) redirect(w http.ResponseWriter, r *http.Request, op, to string, state State, class PathClass) {
	g.log.Debug("redirecting",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("state", state.String()),
		slog.String("class", class.String()),
		slog.String("to", to),
	)

	http.Redirect(w, r, to, http.StatusTemporaryRedirect)
}

type ctxKey struct{}

func WithEnvelope(ctx context.Context, env session.Envelope) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

func EnvelopeFrom(ctx context.Context) (session.Envelope, bool) {
	env, ok := ctx.Value(ctxKey{}).(session.Envelope)
	return env, ok
}
