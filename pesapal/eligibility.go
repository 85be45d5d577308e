package pesapal

import (
	"context"
	"fmt"
)

// Pesapal merchant support contact, attached to every guidance result.
const (
	supportEmail = "support@pesapal.com"
	supportPhone = "+254 709 219 000"
)

// GuidanceAction names the operation a Guidance was produced for.
type GuidanceAction string

const (
	ActionRefund GuidanceAction = "refund"
	ActionCancel GuidanceAction = "cancel"
)

// SupportContact is where a merchant completes manual processing.
type SupportContact struct {
	Email string
	Phone string
}

// Guidance is the outcome of a refund or cancellation eligibility check.
// The gateway has no write endpoint for either, so an eligible result
// carries manual-processing instructions rather than a confirmation.
// Ineligibility is a normal result, not an error: callers branch on
// Eligible and read Reason.
type Guidance struct {
	Action        GuidanceAction
	Eligible      bool
	TrackingID    string
	CurrentStatus PaymentStatus
	Reason        string

	// Refund-only fields. RequestType is "full" or "partial".
	RefundAmount      float64
	TransactionAmount float64
	RequestType       string

	Instructions []string
	Support      SupportContact
}

// RefundOptions tunes a refund eligibility check. A nil Amount requests a
// full refund.
type RefundOptions struct {
	Amount *float64
	Reason string
}

// RefundTransaction decides whether the transaction behind orderTrackingID
// can structurally be refunded, based on one freshly fetched status. Only
// COMPLETED transactions are refundable, and only up to the transaction
// amount. This performs no gateway write.
func (c *Client) RefundTransaction(ctx context.Context, orderTrackingID string, opts RefundOptions) (*Guidance, error) {
	if orderTrackingID == "" {
		return nil, newValidationError("order tracking id is required")
	}
	if opts.Amount != nil && *opts.Amount <= 0 {
		return nil, newValidationError("refund amount must be positive, got %v", *opts.Amount)
	}

	status, err := c.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, err
	}

	g := &Guidance{
		Action:            ActionRefund,
		TrackingID:        orderTrackingID,
		CurrentStatus:     status.Status,
		TransactionAmount: status.Amount,
		Support:           SupportContact{Email: supportEmail, Phone: supportPhone},
	}

	switch status.Status {
	case StatusCompleted:
		amount := status.Amount
		requestType := "full"
		if opts.Amount != nil {
			amount = *opts.Amount
			if amount < status.Amount {
				requestType = "partial"
			}
		}
		if amount > status.Amount {
			g.Reason = fmt.Sprintf("requested refund amount %.2f exceeds transaction amount %.2f", amount, status.Amount)
			return g, nil
		}
		g.Eligible = true
		g.RefundAmount = amount
		g.RequestType = requestType
		if opts.Reason != "" {
			g.Reason = opts.Reason
		}
		g.Instructions = refundInstructions(status, amount, requestType)
	case StatusPending:
		g.Reason = "transaction is not yet completed; a pending payment cannot be refunded (consider cancelling instead)"
	case StatusFailed:
		g.Reason = "transaction failed; there is nothing to refund"
	case StatusReversed:
		g.Reason = "transaction has already been reversed"
	default:
		g.Reason = "cannot determine refund eligibility for this transaction"
	}
	return g, nil
}

// CancelOrder decides whether the order behind orderTrackingID can still
// be cancelled. Only PENDING orders are cancellable; a COMPLETED payment
// must go through RefundTransaction instead. This performs no gateway
// write.
func (c *Client) CancelOrder(ctx context.Context, orderTrackingID, reason string) (*Guidance, error) {
	if orderTrackingID == "" {
		return nil, newValidationError("order tracking id is required")
	}

	status, err := c.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, err
	}

	g := &Guidance{
		Action:            ActionCancel,
		TrackingID:        orderTrackingID,
		CurrentStatus:     status.Status,
		TransactionAmount: status.Amount,
		Support:           SupportContact{Email: supportEmail, Phone: supportPhone},
	}

	switch status.Status {
	case StatusPending:
		g.Eligible = true
		g.Reason = reason
		g.Instructions = cancelInstructions(status)
	case StatusCompleted:
		g.Reason = "order is already completed; request a refund instead of a cancellation"
	case StatusFailed:
		g.Reason = "order has already failed; no cancellation is necessary"
	case StatusReversed:
		g.Reason = "transaction has already been reversed"
	default:
		g.Reason = "cannot determine cancellation eligibility for this transaction"
	}
	return g, nil
}

func refundInstructions(status *TransactionStatus, amount float64, requestType string) []string {
	return []string{
		fmt.Sprintf("Log in to the Pesapal merchant dashboard and locate transaction %s (confirmation code %s).", status.OrderTrackingID, status.ConfirmationCode),
		fmt.Sprintf("Initiate a %s refund of %.2f %s from the transaction detail view.", requestType, amount, status.Currency),
		"If the dashboard does not offer a refund action for this payment method, contact Pesapal support with the tracking id and amount.",
		"Monitor the registered IPN URL: the transaction status changes to REVERSED once the refund is processed.",
	}
}

func cancelInstructions(status *TransactionStatus) []string {
	return []string{
		fmt.Sprintf("Log in to the Pesapal merchant dashboard and locate pending order %s.", status.OrderTrackingID),
		"Void the order from the transaction detail view, or let it lapse unpaid.",
		"Contact Pesapal support if the order shows a payment in flight.",
		"Monitor the registered IPN URL to confirm the order does not complete.",
	}
}
