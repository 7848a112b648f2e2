package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	resp "blog_auth/internal/lib/api/response"
	"blog_auth/internal/models"
)

var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrInvalidInput = errors.New("api: invalid input")
	ErrRateLimited  = errors.New("api: rate limited")
	ErrUpstream     = errors.New("api: upstream failure")
)

// * APIError ответ API с кодом не 2xx в плоском формате {"status":"Error",...}
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUpstream:
		return e.StatusCode >= http.StatusInternalServerError
	}

	return false
}

type LoginResult struct {
	User   models.PublicUser
	Tokens models.TokenPair
}

type apiResponse struct {
	resp.Response
	User *models.PublicUser `json:"user,omitempty"`
	models.TokenPair
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    hc,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "apiclient.Login"

	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var out apiResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.User == nil || out.AccessToken == "" || out.RefreshToken == "" {
		return LoginResult{}, fmt.Errorf("%s: %w: incomplete login response", op, ErrUpstream)
	}

	return LoginResult{
		User:   *out.User,
		Tokens: out.TokenPair,
	}, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "apiclient.Refresh"

	body := map[string]string{
		"refresh_token": refreshToken,
	}

	var out apiResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.AccessToken == "" || out.RefreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w: incomplete refresh response", op, ErrUpstream)
	}

	return out.TokenPair, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	const op = "apiclient.Logout"

	var out apiResponse
	if err := c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, &out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in any, out *apiResponse) error {
	var payload *bytes.Reader

	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}

		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	decodeErr := json.NewDecoder(res.Body).Decode(out)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{
			StatusCode: res.StatusCode,
			Message:    out.Error,
			Fields:     out.Fields,
		}
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, decodeErr)
	}

	return nil
}
