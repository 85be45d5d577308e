package pesapal_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sokohub/pesapal-go/config"
	"github.com/sokohub/pesapal-go/pesapal"

	"github.com/stretchr/testify/require"
)

// fakeGateway stands in for the Pesapal API in tests. Handlers are
// registered per test; serveAuth wires a counting auth endpoint that hands
// out the given token sequence (repeating the last one).
type fakeGateway struct {
	mux       *http.ServeMux
	srv       *httptest.Server
	authCalls atomic.Int32
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{mux: http.NewServeMux()}
	g.srv = httptest.NewServer(g.mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) serveAuth(tokens ...string) {
	if len(tokens) == 0 {
		tokens = []string{"test-token"}
	}
	g.mux.HandleFunc("/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		i := int(g.authCalls.Add(1)) - 1
		if i >= len(tokens) {
			i = len(tokens) - 1
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":      tokens[i],
			"expiryDate": time.Now().Add(5 * time.Minute).UTC().Format(time.RFC3339),
			"status":     "200",
		})
	})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, g *fakeGateway, mutate ...func(*config.Config)) *pesapal.Client {
	t.Helper()
	cfg := &config.Config{
		ConsumerKey:    "test-key",
		ConsumerSecret: "test-secret",
		BaseURL:        g.srv.URL,
		Timeout:        2 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	}
	for _, m := range mutate {
		m(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := pesapal.NewClient(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func validOrder(notificationID string) pesapal.Order {
	return pesapal.Order{
		ID:             "order-001",
		Currency:       "KES",
		Amount:         1000,
		Description:    "Test order",
		CallbackURL:    "https://merchant.example.com/callback",
		NotificationID: notificationID,
		BillingAddress: pesapal.BillingAddress{
			EmailAddress: "jane@example.com",
			PhoneNumber:  "+254700000000",
			FirstName:    "Jane",
			LastName:     "Mwangi",
		},
	}
}
