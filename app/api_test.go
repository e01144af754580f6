package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/lib"
	"github.com/gojalifs/saving-challenge/lib/models"
	"github.com/gojalifs/saving-challenge/lib/reminder"
	"github.com/gojalifs/saving-challenge/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noopPushSender struct{}

func (noopPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	return nil
}

type noopEmailSender struct{}

func (noopEmailSender) Send(ctx context.Context, subject, body, recipient string) (string, error) {
	return "message-id", nil
}

func testRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.EmailConfirmation{},
		&models.SavingsEntry{},
		&models.PushSubscription{},
	))

	log := zap.NewNop()
	reg := senders.Registry{Push: noopPushSender{}, Email: noopEmailSender{}}
	svc := lib.NewService(nil, cfg, log, db, reg)
	// The lifecycle hooks are registered but never started: routes exercise
	// the dispatcher synchronously.
	dispatcher := reminder.NewDispatcher(fxtest.NewLifecycle(t), cfg, log, db, reg)
	return router(cfg, log, svc, dispatcher)
}

func apiConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:        "https://savings.example.com",
		JWTSecret:      "test-jwt-secret",
		ReminderSecret: "s3cret",
	}
	cfg.VAPID.PublicKey = "test-public"
	cfg.VAPID.PrivateKey = "test-private"
	cfg.VAPID.Subject = "mailto:test@example.com"
	return cfg
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testRouter(t, apiConfig())
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReminderTriggerAuthorization(t *testing.T) {
	h := testRouter(t, apiConfig())

	rec := do(t, h, http.MethodPost, "/api/notifications/remind", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/notifications/remind", "", map[string]string{
		"X-Reminder-Key": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/notifications/remind", "", map[string]string{
		"X-Reminder-Key": "s3cret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// A skipped day and an empty store both still answer with a report body.
	var report map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report)
}

func TestReminderTriggerConfigErrors(t *testing.T) {
	t.Run("secret not configured", func(t *testing.T) {
		cfg := apiConfig()
		cfg.ReminderSecret = ""
		h := testRouter(t, cfg)

		rec := do(t, h, http.MethodPost, "/api/notifications/remind", "", map[string]string{
			"X-Reminder-Key": "anything",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("push keys not configured", func(t *testing.T) {
		cfg := apiConfig()
		cfg.VAPID.PrivateKey = ""
		h := testRouter(t, cfg)

		rec := do(t, h, http.MethodPost, "/api/notifications/remind", "", map[string]string{
			"X-Reminder-Key": "s3cret",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// signUpAndLogin onboards a user through the API and returns a bearer token.
func signUpAndLogin(t *testing.T, h http.Handler) string {
	t.Helper()
	creds := `{"email": "alice@example.com", "password": "hunter22"}`

	rec := do(t, h, http.MethodPost, "/api/users", creds, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestOnboardingConflicts(t *testing.T) {
	h := testRouter(t, apiConfig())
	creds := `{"email": "alice@example.com", "password": "hunter22"}`

	rec := do(t, h, http.MethodPost, "/api/users", creds, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", creds, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", `{"email": "", "password": "x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	h := testRouter(t, apiConfig())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/progress"},
		{http.MethodPost, "/api/savings/10"},
		{http.MethodGet, "/api/notifications/key"},
		{http.MethodPost, "/api/notifications/subscribe"},
		{http.MethodDelete, "/api/notifications/subscribe"},
	} {
		rec := do(t, h, route.method, route.path, "{}", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)

		rec = do(t, h, route.method, route.path, "{}", map[string]string{
			"Authorization": "Bearer bogus",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s with bad token", route.method, route.path)
	}
}

func TestSavingsRoutes(t *testing.T) {
	h := testRouter(t, apiConfig())
	auth := map[string]string{"Authorization": "Bearer " + signUpAndLogin(t, h)}

	rec := do(t, h, http.MethodPost, "/api/savings/10", `{"saved": true}`, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.EqualValues(t, 10, entry["week_number"])
	assert.EqualValues(t, 100_000, entry["amount"])
	assert.Equal(t, true, entry["saved"])

	rec = do(t, h, http.MethodPost, "/api/savings/99", `{"saved": true}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/savings/banana", `{"saved": true}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/progress", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)

	var progress struct {
		Entries    []map[string]any `json:"entries"`
		TotalSaved int              `json:"total_saved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	require.Len(t, progress.Entries, 1)
	assert.Equal(t, 100_000, progress.TotalSaved)
}

func TestSubscriptionRoutes(t *testing.T) {
	h := testRouter(t, apiConfig())
	auth := map[string]string{"Authorization": "Bearer " + signUpAndLogin(t, h)}

	rec := do(t, h, http.MethodGet, "/api/notifications/key", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var key map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &key))
	assert.Equal(t, "test-public", key["publicKey"])

	rec = do(t, h, http.MethodPost, "/api/notifications/subscribe",
		`{"endpoint": "https://push/ep", "keys": {"p256dh": ""}}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	full := `{"endpoint": "https://push/ep", "keys": {"p256dh": "key", "auth": "auth"}}`
	rec = do(t, h, http.MethodPost, "/api/notifications/subscribe", full, auth)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/notifications/subscribe",
		`{"endpoint": "https://push/ep"}`, auth)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyEmailRoute(t *testing.T) {
	h := testRouter(t, apiConfig())

	rec := do(t, h, http.MethodGet, "/verify/no-such-nonce", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp["verified"])
}
