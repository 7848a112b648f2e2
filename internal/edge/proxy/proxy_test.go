package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"blog_auth/internal/lib/logger/handlers/slogdiscard"
	"blog_auth/internal/lib/session"
	"blog_auth/internal/middleware/routegate"
	"blog_auth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxy_ForwardsIdentityFromEnvelope(t *testing.T) {
	var got http.Header

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	h := New(slogdiscard.NewDiscardLogger(), u)

	env := session.Envelope{Payload: session.Payload{
		User:        session.User{ID: 9, Email: "a@x.com", Role: models.RoleAdmin},
		AccessToken: "at",
	}}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(routegate.WithEnvelope(req.Context(), env))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bearer at", got.Get("Authorization"))
	assert.Equal(t, "9", got.Get(HeaderUserID))
	assert.Equal(t, "ADMIN", got.Get(HeaderUserRole))
}

func TestProxy_StripsSpoofedHeaders(t *testing.T) {
	var got http.Header

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "1")
	req.Header.Set(HeaderUserRole, "ADMIN")
	req.Header.Set("Authorization", "Bearer forged")

	rr := httptest.NewRecorder()
	New(slogdiscard.NewDiscardLogger(), u).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, got.Get(HeaderUserID))
	assert.Empty(t, got.Get(HeaderUserRole))
	assert.Empty(t, got.Get("Authorization"))
}

func TestProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	upstream.Close()

	rr := httptest.NewRecorder()
	New(slogdiscard.NewDiscardLogger(), u).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
