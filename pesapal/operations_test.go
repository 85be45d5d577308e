package pesapal_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/sokohub/pesapal-go/pesapal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIPN_Validation(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	client := newTestClient(t, g)

	tests := []struct {
		name string
		req  pesapal.IPNRequest
	}{
		{"empty url", pesapal.IPNRequest{}},
		{"relative url", pesapal.IPNRequest{URL: "/ipn"}},
		{"non-http scheme", pesapal.IPNRequest{URL: "ftp://example.com/ipn"}},
		{"bad notification type", pesapal.IPNRequest{URL: "https://example.com/ipn", NotificationType: "PUT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.RegisterIPN(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, pesapal.IsKind(err, pesapal.KindValidation), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), g.authCalls.Load(), "validation failures must not touch the network")
}

func TestRegisterIPN_DefaultsToPOST(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/URLSetup/RegisterIPN", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, decodeBody(r, &req))
		assert.Equal(t, "POST", req["ipn_notification_type"])
		writeJSON(w, http.StatusOK, map[string]any{
			"ipn_id":                "ipn-9",
			"url":                   req["url"],
			"ipn_notification_type": req["ipn_notification_type"],
		})
	})
	client := newTestClient(t, g)

	resp, err := client.RegisterIPN(context.Background(), pesapal.IPNRequest{URL: "https://example.com/ipn"})

	require.NoError(t, err)
	assert.Equal(t, "POST", resp.NotificationType)
}

func TestSubmitOrder_Validation(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	client := newTestClient(t, g)

	base := validOrder("ipn-1")
	tests := []struct {
		name   string
		mutate func(*pesapal.Order)
	}{
		{"negative amount", func(o *pesapal.Order) { o.Amount = -5 }},
		{"zero amount", func(o *pesapal.Order) { o.Amount = 0 }},
		{"missing id", func(o *pesapal.Order) { o.ID = "" }},
		{"missing currency", func(o *pesapal.Order) { o.Currency = "" }},
		{"missing description", func(o *pesapal.Order) { o.Description = "" }},
		{"relative callback url", func(o *pesapal.Order) { o.CallbackURL = "callback" }},
		{"missing notification id", func(o *pesapal.Order) { o.NotificationID = "" }},
		{"no contact channel", func(o *pesapal.Order) {
			o.BillingAddress.EmailAddress = ""
			o.BillingAddress.PhoneNumber = ""
		}},
		{"missing first name", func(o *pesapal.Order) { o.BillingAddress.FirstName = "" }},
		{"missing last name", func(o *pesapal.Order) { o.BillingAddress.LastName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := base
			tt.mutate(&order)
			_, err := client.SubmitOrder(context.Background(), order)
			require.Error(t, err)
			assert.True(t, pesapal.IsKind(err, pesapal.KindValidation), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), g.authCalls.Load(), "validation failures must not touch the network")
}

func TestSubmitOrder_PhoneOnlyContactIsAccepted(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"order_tracking_id":  "track-1",
			"merchant_reference": "order-001",
			"redirect_url":       "https://cybqa.pesapal.com/checkout/track-1",
		})
	})
	client := newTestClient(t, g)

	order := validOrder("ipn-1")
	order.BillingAddress.EmailAddress = ""

	_, err := client.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
}

func TestSubmitOrder_SendsWirePayload(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, decodeBody(r, &req))
		assert.Equal(t, "order-001", req["id"])
		assert.Equal(t, "KES", req["currency"])
		assert.Equal(t, float64(1000), req["amount"])
		billing, ok := req["billing_address"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "jane@example.com", billing["email_address"])
		assert.Equal(t, "Jane", billing["first_name"])

		writeJSON(w, http.StatusOK, map[string]any{
			"order_tracking_id":  "track-42",
			"merchant_reference": req["id"],
			"redirect_url":       "https://cybqa.pesapal.com/checkout/track-42",
			"status":             "200",
		})
	})
	client := newTestClient(t, g)

	resp, err := client.SubmitOrder(context.Background(), validOrder("ipn-1"))

	require.NoError(t, err)
	assert.Equal(t, "track-42", resp.OrderTrackingID)
	assert.Equal(t, "order-001", resp.MerchantReference)
}

func TestSubmitOrder_MissingTrackingIDIsFormatError(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"merchant_reference": "order-001"})
	})
	client := newTestClient(t, g)

	_, err := client.SubmitOrder(context.Background(), validOrder("ipn-1"))

	require.Error(t, err)
	assert.True(t, pesapal.IsKind(err, pesapal.KindResponseFormat), "got %v", err)
}

func TestGetTransactionStatus_EmptyTrackingID(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	client := newTestClient(t, g)

	_, err := client.GetTransactionStatus(context.Background(), "")

	require.Error(t, err)
	assert.True(t, pesapal.IsKind(err, pesapal.KindValidation), "got %v", err)
	assert.Equal(t, int32(0), g.authCalls.Load())
}

func TestGetTransactionStatus_NormalizesStatus(t *testing.T) {
	tests := []struct {
		name        string
		description string
		statusCode  *int
		want        pesapal.PaymentStatus
	}{
		{"uppercase description", "COMPLETED", nil, pesapal.StatusCompleted},
		{"mixed case description", "Pending", nil, pesapal.StatusPending},
		{"reversed", "REVERSED", nil, pesapal.StatusReversed},
		{"code fallback failed", "", intPtr(2), pesapal.StatusFailed},
		{"code fallback completed", "", intPtr(1), pesapal.StatusCompleted},
		{"unknown description", "SOMETHING_NEW", intPtr(0), pesapal.StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGateway(t)
			g.serveAuth()
			g.mux.HandleFunc("/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
				body := map[string]any{
					"payment_status_description": tt.description,
					"amount":                     250.5,
					"currency":                   "KES",
				}
				if tt.statusCode != nil {
					body["status_code"] = *tt.statusCode
				}
				writeJSON(w, http.StatusOK, body)
			})
			client := newTestClient(t, g)

			status, err := client.GetTransactionStatus(context.Background(), "track-1")

			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, "track-1", status.OrderTrackingID)
		})
	}
}

func TestGetTransactionStatus_MissingStatusFieldsIsFormatError(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"currency": "KES"})
	})
	client := newTestClient(t, g)

	_, err := client.GetTransactionStatus(context.Background(), "track-1")

	require.Error(t, err)
	assert.True(t, pesapal.IsKind(err, pesapal.KindResponseFormat), "got %v", err)
}

func TestListIPNs(t *testing.T) {
	g := newFakeGateway(t)
	g.serveAuth()
	g.mux.HandleFunc("/URLSetup/GetIpnList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"ipn_id": "ipn-1", "url": "https://example.com/a"},
			{"ipn_id": "ipn-2", "url": "https://example.com/b"},
		})
	})
	client := newTestClient(t, g)

	ipns, err := client.ListIPNs(context.Background())

	require.NoError(t, err)
	require.Len(t, ipns, 2)
	assert.Equal(t, "ipn-1", ipns[0].IPNID)
	assert.Equal(t, "https://example.com/b", ipns[1].URL)
}

func intPtr(v int) *int { return &v }
