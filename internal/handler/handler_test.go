package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/handler/middleware"
	"github.com/KaiavN/Transac/internal/logutil"
	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/pkg/oauth/google"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = logutil.Discard()

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", domain.NewValidationError("email", "email is required"), fiber.StatusBadRequest, "validation failed"},
		{"rate limited", &domain.RateLimitError{RetryAfter: 1500 * time.Millisecond}, fiber.StatusTooManyRequests, "too many requests"},
		{"bad credentials", service.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid email or password"},
		{"expired session", domain.ErrSessionExpired, fiber.StatusUnauthorized, "authentication required"},
		{"forbidden", fmt.Errorf("not an admin: %w", domain.ErrForbidden), fiber.StatusForbidden, "forbidden"},
		{"not found", domain.ErrNotFound, fiber.StatusNotFound, "not found"},
		{"conflict", fmt.Errorf("email already registered: %w", domain.ErrConflict), fiber.StatusConflict, "email already registered"},
		{"upstream", fmt.Errorf("contract generation failed: %w", domain.ErrUpstream), fiber.StatusBadGateway, "upstream service failed"},
		{"internal", domain.ErrInternal, fiber.StatusInternalServerError, "internal server error"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return respondError(c, testLog, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, decode(t, resp)["error"])
		})
	}
}

func TestRespondError_ValidationFieldsAndRetryAfter(t *testing.T) {
	app := fiber.New()
	app.Get("/validation", func(c *fiber.Ctx) error {
		return respondError(c, testLog, domain.NewValidationError("cost", "cost must be greater than 0"))
	})
	app.Get("/limited", func(c *fiber.Ctx) error {
		return respondError(c, testLog, &domain.RateLimitError{RetryAfter: 1500 * time.Millisecond})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/validation", nil))
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, map[string]any{"cost": "cost must be greater than 0"}, body["fields"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.EqualValues(t, 2, decode(t, resp)["retry_after"])
}

func TestUUIDParam_RejectsMalformed(t *testing.T) {
	app := fiber.New()
	app.Get("/contracts/:id", func(c *fiber.Ctx) error {
		if _, err := uuidParam(c, "id"); err != nil {
			return respondError(c, testLog, err)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/contracts/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/contracts/3f1c2b9e-8a5d-4e61-9a0f-1d2c3b4a5e6f", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPageFromQuery(t *testing.T) {
	var got service.Page
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = pageFromQuery(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/?page=3&page_size=50", nil))
	require.NoError(t, err)
	assert.Equal(t, service.Page{Number: 3, Size: 50}, got)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Number)
	assert.Equal(t, 0, got.Size)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/?page=4611686018427387904", nil))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Normalize().Offset(), 0)
}

func TestCSRFToken_IssuesMatchingCookieAndBody(t *testing.T) {
	csrf := middleware.CSRFConfig{
		CookieName:  "csrf_token",
		HeaderName:  "X-CSRF-Token",
		SafeMethods: []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions},
	}
	h := NewAuthHandler(nil, nil, middleware.SessionCookieConfig{}, csrf, testLog)

	app := fiber.New()
	app.Use(middleware.CSRF(csrf))
	app.Get("/csrf", h.CSRFToken)
	app.Post("/mutate", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookie := findCookie(resp, "csrf_token")
	require.NotNil(t, cookie)
	token := decode(t, resp)["csrf_token"]
	assert.Equal(t, cookie.Value, token)
	assert.Equal(t, cookie.Value, resp.Header.Get("X-CSRF-Token"))

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: cookie.Value})
	req.Header.Set("X-CSRF-Token", cookie.Value)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealth_ReadyReportsFailingCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}, testLog)

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, map[string]any{"database": "ok", "redis": "unavailable"}, body["checks"])
}

func TestHealth_ReadyWithHealthyChecks(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"database": func(ctx context.Context) error { return nil },
	}, testLog)

	app := fiber.New()
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", decode(t, resp)["status"])
}

type stubProvider struct {
	exchanged bool
}

func (p *stubProvider) AuthCodeURL(state, codeVerifier string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *stubProvider) Exchange(ctx context.Context, code, codeVerifier string) (*google.Identity, error) {
	p.exchanged = true
	return nil, errors.New("exchange not expected")
}

func newOAuthApp(p *stubProvider) *fiber.App {
	h := NewOAuthHandler(p, nil, middleware.SessionCookieConfig{CookieName: "session_id"}, "https://app.example.com", testLog)
	app := fiber.New()
	app.Get("/google", h.Login)
	app.Get("/google/callback", h.Callback)
	return app
}

func TestOAuthLogin_SetsFlowCookiesAndRedirects(t *testing.T) {
	app := newOAuthApp(&stubProvider{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/google", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	state := findCookie(resp, stateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.NotEmpty(t, state.Value)
	require.NotNil(t, findCookie(resp, pkceCookieName))

	location := resp.Header.Get(fiber.HeaderLocation)
	assert.True(t, strings.HasPrefix(location, "https://accounts.google.com/"))
	assert.Contains(t, location, url.QueryEscape(state.Value))
}

func TestOAuthCallback_StateMismatch(t *testing.T) {
	p := &stubProvider{}
	app := newOAuthApp(p)

	req := httptest.NewRequest(http.MethodGet, "/google/callback?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "expected"})
	req.AddCookie(&http.Cookie{Name: pkceCookieName, Value: "verifier"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, p.exchanged)
}

func TestOAuthCallback_MissingStateCookie(t *testing.T) {
	app := newOAuthApp(&stubProvider{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/google/callback?state=&code=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOAuthCallback_ProviderErrorRedirectsToLogin(t *testing.T) {
	app := newOAuthApp(&stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/google/callback?state=s1&error=access_denied", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://app.example.com/login?error=oauth", resp.Header.Get(fiber.HeaderLocation))
}

func TestOAuthCallback_ExchangeFailure(t *testing.T) {
	p := &stubProvider{}
	app := newOAuthApp(p)

	req := httptest.NewRequest(http.MethodGet, "/google/callback?state=s1&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})
	req.AddCookie(&http.Cookie{Name: pkceCookieName, Value: "verifier"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.True(t, p.exchanged)
}
