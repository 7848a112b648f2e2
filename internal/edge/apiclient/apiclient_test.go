package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog_auth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.URL+"/", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestLogin(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body["email"])

		writeJSON(w, http.StatusOK, `{"status":"OK","user":{"id":1,"email":"a@x.com","name":"Alice","role":"USER"},"access_token":"at","refresh_token":"rt"}`)
	})

	res, err := c.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	assert.Equal(t, models.PublicUser{ID: 1, Email: "a@x.com", Name: "Alice", Role: models.RoleUser}, res.User)
	assert.Equal(t, models.TokenPair{AccessToken: "at", RefreshToken: "rt"}, res.Tokens)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"status":"Error","error":"invalid credentials"}`, wantErr: ErrUnauthorized},
		{name: "validation", status: http.StatusBadRequest, body: `{"status":"Error","error":"bad","fields":{"email":"invalid"}}`, wantErr: ErrInvalidInput},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"status":"Error","error":"too many requests"}`, wantErr: ErrRateLimited},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: ErrUpstream},
		{name: "incomplete body", status: http.StatusOK, body: `{"status":"OK"}`, wantErr: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.Login(context.Background(), "a@x.com", "x")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_ValidationFields(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":"Error","error":"field email is not a valid email","fields":{"email":"field email is not a valid email"}}`)
	})

	_, err := c.Login(context.Background(), "bad", "x")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "field email is not a valid email", apiErr.Fields["email"])
}

func TestRefresh(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-rt", body["refresh_token"])

		writeJSON(w, http.StatusOK, `{"status":"OK","access_token":"new-at","refresh_token":"new-rt"}`)
	})

	pair, err := c.Refresh(context.Background(), "old-rt")
	require.NoError(t, err)
	assert.Equal(t, models.TokenPair{AccessToken: "new-at", RefreshToken: "new-rt"}, pair)
}

func TestLogout(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, `{"status":"OK"}`)
	})

	require.NoError(t, c.Logout(context.Background(), "at"))
}

func TestUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, 200*time.Millisecond)

	_, err := c.Refresh(context.Background(), "rt")
	require.ErrorIs(t, err, ErrUpstream)
}
