// Package pesapal is a client for the Pesapal v3 REST API. It manages
// bearer-token acquisition and renewal, dispatches JSON requests with a
// bounded retry policy, and maps gateway failures into a typed error
// taxonomy. Because Pesapal v3 exposes no refund or cancellation
// endpoints, RefundTransaction and CancelOrder decide eligibility locally
// and return manual-processing guidance instead of performing a write.
package pesapal

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sokohub/pesapal-go/config"
)

// Client is an authenticated Pesapal API client. It is safe for use by
// concurrent goroutines; the underlying connection pool is shared.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	tokens     tokenManager
	logger     *slog.Logger
}

// NewClient validates cfg and builds a client around it. The
// configuration is copied; later mutation of cfg has no effect. A nil
// logger falls back to slog.Default.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, newValidationError("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        *cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// Close releases the client's idle connections. The client must not be
// used afterwards. Calling Close more than once is harmless.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// RegisterIPN registers a notification callback URL with the gateway and
// returns the IPN id to reference in submitted orders.
func (c *Client) RegisterIPN(ctx context.Context, req IPNRequest) (*IPNRegistration, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.NotificationType == "" {
		req.NotificationType = NotificationTypePOST
	}

	resp, err := send[IPNRegistration](ctx, c, http.MethodPost, "URLSetup/RegisterIPN", nil, req, true)
	if err != nil {
		return nil, err
	}
	if err := resp.ensure(); err != nil {
		return nil, err
	}
	c.logger.Debug("registered ipn", "ipn_id", resp.IPNID, "url", resp.URL)
	return resp, nil
}

// ListIPNs returns the IPN registrations known to the gateway for these
// credentials.
func (c *Client) ListIPNs(ctx context.Context) ([]IPNRegistration, error) {
	resp, err := send[[]IPNRegistration](ctx, c, http.MethodGet, "URLSetup/GetIpnList", nil, nil, true)
	if err != nil {
		return nil, err
	}
	return *resp, nil
}

// SubmitOrder validates the order locally, submits it for payment
// processing, and returns the tracking id and hosted-payment redirect URL.
func (c *Client) SubmitOrder(ctx context.Context, order Order) (*OrderSubmission, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}

	resp, err := send[OrderSubmission](ctx, c, http.MethodPost, "Transactions/SubmitOrderRequest", nil, order, true)
	if err != nil {
		return nil, err
	}
	if err := resp.ensure(); err != nil {
		return nil, err
	}
	c.logger.Debug("submitted order",
		"merchant_id", order.ID,
		"tracking_id", resp.OrderTrackingID,
	)
	return resp, nil
}

// GetTransactionStatus fetches the current state of a transaction. The
// result is never cached; every call hits the gateway.
func (c *Client) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	if orderTrackingID == "" {
		return nil, newValidationError("order tracking id is required")
	}

	query := url.Values{"orderTrackingId": {orderTrackingID}}
	resp, err := send[TransactionStatus](ctx, c, http.MethodGet, "Transactions/GetTransactionStatus", query, nil, true)
	if err != nil {
		return nil, err
	}
	if err := resp.ensure(); err != nil {
		return nil, err
	}

	resp.OrderTrackingID = orderTrackingID
	resp.Status = parsePaymentStatus(resp.PaymentStatusDescription, resp.StatusCode)
	return resp, nil
}
