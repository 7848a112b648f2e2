package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"blog_auth/internal/edge/apiclient"
	"blog_auth/internal/http_server/handlers/edgesession"
	"blog_auth/internal/lib/logger/handlers/slogdiscard"
	"blog_auth/internal/lib/session"
	"blog_auth/internal/lib/validation"
	"blog_auth/internal/middleware/routegate"
	"blog_auth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	refreshErr    error
	loggedOutWith string
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (apiclient.LoginResult, error) {
	if password != "Passw0rd1" {
		return apiclient.LoginResult{}, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}
	}

	return apiclient.LoginResult{
		User:   models.PublicUser{ID: 3, Email: email, Name: "Alice", Role: models.RoleUser},
		Tokens: models.TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"},
	}, nil
}

func (f *fakeAPI) Refresh(_ context.Context, refreshToken string) (models.TokenPair, error) {
	if f.refreshErr != nil {
		return models.TokenPair{}, f.refreshErr
	}

	return models.TokenPair{AccessToken: "at-2", RefreshToken: refreshToken + "-rotated"}, nil
}

func (f *fakeAPI) Logout(_ context.Context, accessToken string) error {
	f.loggedOutWith = accessToken
	return nil
}

type edgeFixture struct {
	handler http.Handler
	api     *fakeAPI
	codec   *session.Codec
}

const cookieName = "session"

func newEdge(t *testing.T) edgeFixture {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()

	codec, err := session.New("edge-session-key-0123456789abcdef")
	require.NoError(t, err)

	api := &fakeAPI{}

	sessions := edgesession.New(log, validation.New(), api, codec, edgesession.Config{
		CookieName:  cookieName,
		LoginPath:   "/login",
		LandingPath: "/dashboard",
	})

	gate := routegate.New(log, codec, routegate.Config{
		CookieName:  cookieName,
		LoginPath:   "/login",
		LandingPath: "/dashboard",
		Rules:       routegate.DefaultRules(),
	})

	pages := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env, ok := routegate.EnvelopeFrom(r.Context()); ok {
			w.Header().Set("X-Test-User", env.User.Email)
		}

		w.WriteHeader(http.StatusOK)
	})

	return edgeFixture{
		handler: NewEdge(log, sessions, gate, pages, RateLimit{}),
		api:     api,
		codec:   codec,
	}
}

func (f edgeFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rr.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}

	t.Fatalf("no %s cookie in response", cookieName)

	return nil
}

func (f edgeFixture) login(t *testing.T) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/session/login",
		strings.NewReader(`{"email":"a@x.com","password":"Passw0rd1"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := f.serve(req)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	return sessionCookie(t, rr)
}

func TestEdge_LoginSetsEnvelopeCookie(t *testing.T) {
	f := newEdge(t)
	c := f.login(t)

	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)

	env, err := f.codec.Decode(c.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.User.ID)
	assert.Equal(t, "at-1", env.AccessToken)
	assert.Equal(t, "rt-1", env.RefreshToken)
}

func TestEdge_LoginForm(t *testing.T) {
	f := newEdge(t)

	form := url.Values{"email": {"a@x.com"}, "password": {"Passw0rd1"}}
	req := httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := f.serve(req)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	sessionCookie(t, rr)
}

func TestEdge_LoginRejected(t *testing.T) {
	f := newEdge(t)

	req := httptest.NewRequest(http.MethodPost, "/session/login",
		strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := f.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestEdge_GateWithSession(t *testing.T) {
	f := newEdge(t)
	c := f.login(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(c)
	rr := f.serve(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@x.com", rr.Header().Get("X-Test-User"))

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(c)
	rr = f.serve(req)
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	rr = f.serve(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestEdge_Refresh(t *testing.T) {
	f := newEdge(t)
	c := f.login(t)

	req := httptest.NewRequest(http.MethodPost, "/session/refresh", nil)
	req.AddCookie(c)
	rr := f.serve(req)
	require.Equal(t, http.StatusOK, rr.Code)

	env, err := f.codec.Decode(sessionCookie(t, rr).Value)
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.User.ID)
	assert.Equal(t, "Alice", env.User.Name)
	assert.Equal(t, "at-2", env.AccessToken)
	assert.Equal(t, "rt-1-rotated", env.RefreshToken)
}

func TestEdge_RefreshRevoked(t *testing.T) {
	f := newEdge(t)
	c := f.login(t)

	f.api.refreshErr = &apiclient.APIError{StatusCode: http.StatusUnauthorized}

	req := httptest.NewRequest(http.MethodPost, "/session/refresh", nil)
	req.AddCookie(c)
	rr := f.serve(req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Less(t, sessionCookie(t, rr).MaxAge, 0)
}

func TestEdge_RefreshWithoutSession(t *testing.T) {
	f := newEdge(t)

	rr := f.serve(httptest.NewRequest(http.MethodPost, "/session/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEdge_Logout(t *testing.T) {
	f := newEdge(t)
	c := f.login(t)

	req := httptest.NewRequest(http.MethodPost, "/session/logout", nil)
	req.AddCookie(c)
	rr := f.serve(req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Less(t, sessionCookie(t, rr).MaxAge, 0)
	assert.Equal(t, "at-1", f.api.loggedOutWith)
}

func TestEdge_LoginRejectsOversizedBody(t *testing.T) {
	f := newEdge(t)

	form := url.Values{"email": {"a@x.com"}, "password": {strings.Repeat("p", MaxBodyBytes)}}
	req := httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := f.serve(req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}
