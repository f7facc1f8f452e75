package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutBackend stands in for the identity service and the checkout API
type checkoutBackend struct {
	mu            sync.Mutex
	created       []string
	confirmed     []string
	confirmStatus int
	confirmBody   map[string]interface{}
}

func newCheckoutBackend(t *testing.T) (*checkoutBackend, *httptest.Server) {
	t.Helper()
	b := &checkoutBackend{
		confirmStatus: http.StatusOK,
		confirmBody:   map[string]interface{}{"ok": true, "uid": "uB", "plan": "yearly"},
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *checkoutBackend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reply := func(status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	switch r.URL.Path {
	case "/identity/v1/accounts:signInWithPassword":
		reply(http.StatusOK, map[string]string{
			"localId":      "uB",
			"email":        "b@facto.cloud",
			"idToken":      "id-b",
			"refreshToken": "refresh-b",
			"expiresIn":    "3600",
		})
	case "/identity/v1/accounts:lookup":
		reply(http.StatusOK, map[string]interface{}{
			"users": []map[string]string{{"localId": "uB", "email": "b@facto.cloud"}},
		})
	case "/securetoken/v1/token":
		reply(http.StatusOK, map[string]string{
			"id_token":      "id-b",
			"refresh_token": "refresh-b",
			"expires_in":    "3600",
			"user_id":       "uB",
		})
	case "/api/create-checkout-session":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.created = append(b.created, body["plan"])
		reply(http.StatusOK, map[string]string{"url": "https://checkout.stripe.test/c/pay/cs_e2e"})
	case "/api/checkout/confirm":
		b.confirmed = append(b.confirmed, r.URL.Query().Get("session_id"))
		reply(b.confirmStatus, b.confirmBody)
	default:
		http.NotFound(w, r)
	}
}

func (b *checkoutBackend) calls() (created, confirmed []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.created...), append([]string(nil), b.confirmed...)
}

func writeConfig(t *testing.T, serverURL string) (configPath, outputDir string) {
	t.Helper()
	dir := t.TempDir()
	outputDir = filepath.Join(dir, "out")
	body := fmt.Sprintf(`
logging:
  level: error
firebase:
  api_key: test-key
  identity_endpoint: %[1]s/identity/v1
  token_endpoint: %[1]s/securetoken/v1
api:
  base_url: %[1]s
client:
  url: https://facto.cloud
  path: /home
storage:
  driver: sqlite
  sqlite_path: %[2]s
export:
  output_dir: %[3]s
  settle_delay: 1ms
`, serverURL, filepath.Join(dir, "facto.db"), outputDir)

	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath, outputDir
}

func TestCheckoutRoundTripAcrossProcesses(t *testing.T) {
	out := captureStdout(t)
	backend, srv := newCheckoutBackend(t)
	cfgPath, outputDir := writeConfig(t, srv.URL)
	draftPath := writeDraft(t, draftJSON)

	facto := func(args ...string) error {
		return run(append([]string{"-config", cfgPath, "-tab", "tab-1"}, args...))
	}

	require.NoError(t, facto("signin", "-email", "b@facto.cloud", "-password", "secret1"))

	require.NoError(t, facto("download", "-draft", draftPath, "-template", "modern2", "-plan", "yearly"))
	created, confirmed := backend.calls()
	assert.Equal(t, []string{"yearly"}, created)
	assert.Empty(t, confirmed)
	assert.Contains(t, out.String(), "https://checkout.stripe.test/c/pay/cs_e2e")
	assert.NoFileExists(t, filepath.Join(outputDir, "invoice-F-1.pdf"))

	out.Reset()
	require.NoError(t, facto("return", "-url", "https://facto.cloud/home?checkout=success&session_id=cs_e2e"))
	_, confirmed = backend.calls()
	assert.Equal(t, []string{"cs_e2e"}, confirmed)
	assert.Contains(t, out.String(), reconcile.MsgActivated)
	assert.Contains(t, out.String(), reconcile.MsgDownloaded)
	assert.FileExists(t, filepath.Join(outputDir, "invoice-F-1.pdf"), "deferred download resumed with the saved draft")

	out.Reset()
	require.NoError(t, facto("status"))
	assert.Contains(t, out.String(), "Signed in as b@facto.cloud (uB)")
	assert.Contains(t, out.String(), "Subscription active")
	assert.NotContains(t, out.String(), "A download is waiting")

	// the same address again finds nothing left to confirm
	require.NoError(t, facto("return", "-url", "https://facto.cloud/home"))
	_, confirmed = backend.calls()
	assert.Len(t, confirmed, 1)
}

func TestReturnReportsWhyConfirmationFailed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]interface{}
		unpaid bool
		want   string
	}{
		{
			name:   "unpaid",
			status: http.StatusOK,
			body:   map[string]interface{}{"ok": false, "error": "Payment not completed"},
			unpaid: true,
			want:   reconcile.MsgPaymentIncomplete,
		},
		{
			name:   "provider failure",
			status: http.StatusInternalServerError,
			body:   map[string]interface{}{"ok": false, "error": "No such checkout session: cs_gone", "code": ierr.ErrCodeProvider},
			want:   "No such checkout session: cs_gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t)
			backend, srv := newCheckoutBackend(t)
			backend.confirmStatus = tt.status
			backend.confirmBody = tt.body
			cfgPath, _ := writeConfig(t, srv.URL)

			facto := func(args ...string) error {
				return run(append([]string{"-config", cfgPath, "-tab", "tab-1"}, args...))
			}
			require.NoError(t, facto("signin", "-email", "b@facto.cloud", "-password", "secret1"))

			err := facto("return", "-url", "https://facto.cloud/home?checkout=success&session_id=cs_gone")
			require.Error(t, err)
			assert.Equal(t, tt.unpaid, ierr.IsSessionUnpaid(err))
			assert.Equal(t, tt.want, ierr.DisplayMessage(err, ""))
			assert.Contains(t, out.String(), tt.want)

			out.Reset()
			require.NoError(t, facto("status"))
			assert.Contains(t, out.String(), "Premium required to download")
		})
	}
}
