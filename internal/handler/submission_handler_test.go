package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/delivery"
	"github.com/molunlade/contact-api/internal/handler"
	"github.com/molunlade/contact-api/internal/middleware"
	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/router"
	"github.com/molunlade/contact-api/internal/service"
	"github.com/molunlade/contact-api/internal/store"
)

type recordingNotifier struct {
	name       string
	configured bool
	externalID string
	calls      int
}

func (n *recordingNotifier) Name() string     { return n.name }
func (n *recordingNotifier) Configured() bool { return n.configured }
func (n *recordingNotifier) Send(ctx context.Context, sub models.Submission) (string, error) {
	n.calls++
	return n.externalID, nil
}

type testEnv struct {
	app      *fiber.App
	store    *store.FileStore
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, adminToken string, withNotifier bool) *testEnv {
	t.Helper()

	fileStore, err := store.NewFileStore(filepath.Join(t.TempDir(), "submissions.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(fileStore.Close)

	notifier := &recordingNotifier{name: delivery.MethodSendGrid, configured: withNotifier, externalID: "sg-test"}
	fallback := delivery.NewTempFileChannel(filepath.Join(t.TempDir(), "fallback.json"), zerolog.Nop())
	chain := delivery.NewChain(nil, []delivery.Notifier{notifier}, fallback, time.Second, zerolog.Nop())

	svc := service.NewSubmissionService(fileStore, chain, service.NewValidator(), adminToken, zerolog.Nop())
	h := handler.NewSubmissionHandler(svc, zerolog.Nop())

	cfg := config.Config{
		AppName:         "Contact API",
		AppEnv:          config.EnvDevelopment,
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
	}

	app := fiber.New()
	middleware.Register(app, cfg, zerolog.Nop(), nil)
	router.Register(app, cfg, router.Dependencies{SubmissionHandler: h})

	return &testEnv{app: app, store: fileStore, notifier: notifier}
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func validPayload() map[string]string {
	return map[string]string{
		"name":    "A",
		"email":   "a@b.co",
		"subject": "S",
		"message": "M",
	}
}

func TestCreateSubmissionEndToEnd(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	resp, body := postJSON(t, env.app, "/api/users", validPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "sent", body["email"])

	submission, ok := body["submission"].(map[string]any)
	require.True(t, ok)
	requestID, _ := submission["request_id"].(string)
	require.NotEmpty(t, requestID, "server generates a request id when the client sends none")
	require.Equal(t, "sent", submission["status"])

	// Repeating the identical POST with the generated request id returns the same
	// submission without a second delivery.
	payload := validPayload()
	payload["request_id"] = requestID

	resp, body = postJSON(t, env.app, "/api/users", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])

	repeated, ok := body["submission"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, requestID, repeated["request_id"])
	require.Equal(t, "sent", repeated["status"])
	require.Equal(t, 1, env.notifier.calls, "no duplicate notification")

	list, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1, "no duplicate record")
}

func TestCreateSubmissionFallbackOnly(t *testing.T) {
	env := newTestEnv(t, "secret", false)

	resp, body := postJSON(t, env.app, "/api/users", validPayload())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "tmp", body["method"])
	require.NotEmpty(t, body["note"], "ephemeral fallback is surfaced, not silent")

	submission := body["submission"].(map[string]any)
	require.NotEqual(t, "sent", submission["status"])
}

func TestCreateSubmissionValidationErrors(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	payload := validPayload()
	payload["email"] = "not-an-email"

	resp, body := postJSON(t, env.app, "/api/users", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, body["ok"])
	require.NotEmpty(t, body["errors"])
	require.Zero(t, env.notifier.calls)
}

func TestCreateSubmissionMalformedBody(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, false, body["ok"])
	require.Equal(t, "Malformed request body", body["error"])
}

func TestListSubmissionsAuth(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	_, _ = postJSON(t, env.app, "/api/users", validPayload())

	// Missing token.
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "Unauthorized", body["error"])
	require.NotContains(t, body, "submissions")

	// Wrong token.
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(handler.AdminTokenHeader, "wrong")
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(handler.AdminTokenHeader, "secret")
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Equal(t, true, body["ok"])
	require.Len(t, body["submissions"], 1)
}

func TestListSubmissionsFailsClosedWithoutToken(t *testing.T) {
	env := newTestEnv(t, "", true)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(handler.AdminTokenHeader, "anything")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, false, body["ok"])
	require.NotContains(t, body, "submissions")
}

func TestPreflightAnsweredWithCORSHeaders(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5500")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5500", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestDebugEcho(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	req := httptest.NewRequest(http.MethodPost, "/api/_debug/echo", bytes.NewReader([]byte(`{"ping":"pong"}`)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5500")

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "http://localhost:5500", body["origin"])
	require.Equal(t, map[string]any{"ping": "pong"}, body["body"])
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, "secret", true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "Contact API is running", body["message"])
}
