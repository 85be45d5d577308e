package pesapal

import (
	"net/url"
	"strings"
)

// NotificationType selects how Pesapal delivers IPN callbacks.
type NotificationType string

const (
	NotificationTypeGET  NotificationType = "GET"
	NotificationTypePOST NotificationType = "POST"
)

// apiErrorBody is the error object Pesapal embeds in response bodies,
// including some 200 responses.
type apiErrorBody struct {
	Type    string `json:"error_type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (b *apiErrorBody) toError(statusCode int) *Error {
	msg := b.Message
	if msg == "" {
		msg = "gateway reported an unspecified error"
	}
	return &Error{
		Kind:       KindAPI,
		Message:    msg,
		Code:       b.Code,
		StatusCode: statusCode,
	}
}

type authPayload struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

type authResponse struct {
	Token      string        `json:"token"`
	ExpiryDate string        `json:"expiryDate"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Error      *apiErrorBody `json:"error"`
}

func (r *authResponse) ensure() error {
	if r.Error != nil && (r.Error.Message != "" || r.Error.Code != "") {
		return r.Error.toError(0)
	}
	if r.Token == "" {
		return newResponseFormatError("auth response is missing token", nil)
	}
	return nil
}

// IPNRequest registers a callback URL for payment notifications.
// NotificationType defaults to POST.
type IPNRequest struct {
	URL              string           `json:"url"`
	NotificationType NotificationType `json:"ipn_notification_type"`
}

func (r IPNRequest) validate() error {
	if !isAbsoluteHTTPURL(r.URL) {
		return newValidationError("ipn url %q must be an absolute http(s) URL", r.URL)
	}
	switch r.NotificationType {
	case NotificationTypeGET, NotificationTypePOST, "":
	default:
		return newValidationError("ipn_notification_type must be GET or POST, got %q", r.NotificationType)
	}
	return nil
}

// IPNRegistration is the gateway's acknowledgement of a registered IPN.
type IPNRegistration struct {
	IPNID            string        `json:"ipn_id"`
	URL              string        `json:"url"`
	CreatedDate      string        `json:"created_date"`
	NotificationType string        `json:"ipn_notification_type"`
	Status           string        `json:"status"`
	Error            *apiErrorBody `json:"error"`
}

func (r *IPNRegistration) ensure() error {
	if r.Error != nil && (r.Error.Message != "" || r.Error.Code != "") {
		return r.Error.toError(0)
	}
	if r.IPNID == "" {
		return newResponseFormatError("ipn registration response is missing ipn_id", nil)
	}
	return nil
}

// BillingAddress identifies the paying customer. At least one of
// EmailAddress and PhoneNumber must be set.
type BillingAddress struct {
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CountryCode  string `json:"country_code,omitempty"`
	Line1        string `json:"line_1,omitempty"`
	Line2        string `json:"line_2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

func (b BillingAddress) validate() error {
	if b.EmailAddress == "" && b.PhoneNumber == "" {
		return newValidationError("billing address requires an email_address or a phone_number")
	}
	if b.FirstName == "" {
		return newValidationError("billing address first_name is required")
	}
	if b.LastName == "" {
		return newValidationError("billing address last_name is required")
	}
	return nil
}

// Order is a merchant payment request. ID must be unique per submission
// attempt; the gateway rejects reuse.
type Order struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

func (o Order) validate() error {
	if o.ID == "" {
		return newValidationError("order id is required")
	}
	if o.Currency == "" {
		return newValidationError("order currency is required")
	}
	if o.Amount <= 0 {
		return newValidationError("order amount must be positive, got %v", o.Amount)
	}
	if o.Description == "" {
		return newValidationError("order description is required")
	}
	if !isAbsoluteHTTPURL(o.CallbackURL) {
		return newValidationError("order callback_url %q must be an absolute http(s) URL", o.CallbackURL)
	}
	if o.NotificationID == "" {
		return newValidationError("order notification_id is required")
	}
	return o.BillingAddress.validate()
}

// OrderSubmission is the gateway's response to a submitted order. The
// customer completes payment at RedirectURL.
type OrderSubmission struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Status            string        `json:"status"`
	Error             *apiErrorBody `json:"error"`
}

func (r *OrderSubmission) ensure() error {
	if r.Error != nil && (r.Error.Message != "" || r.Error.Code != "") {
		return r.Error.toError(0)
	}
	if r.OrderTrackingID == "" {
		return newResponseFormatError("order submission response is missing order_tracking_id", nil)
	}
	if r.RedirectURL == "" {
		return newResponseFormatError("order submission response is missing redirect_url", nil)
	}
	return nil
}

// PaymentStatus is the normalized state of a transaction.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusReversed  PaymentStatus = "REVERSED"
	StatusInvalid   PaymentStatus = "INVALID"
)

// parsePaymentStatus normalizes the gateway's status description, falling
// back to the numeric status code Pesapal also sends.
func parsePaymentStatus(description string, code *int) PaymentStatus {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(description))) {
	case StatusPending:
		return StatusPending
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	case StatusReversed:
		return StatusReversed
	}
	if code != nil {
		switch *code {
		case 1:
			return StatusCompleted
		case 2:
			return StatusFailed
		case 3:
			return StatusReversed
		}
	}
	return StatusInvalid
}

// TransactionStatus is a point-in-time snapshot of one transaction. It is
// fetched fresh on every query and never cached by the client.
type TransactionStatus struct {
	OrderTrackingID          string        `json:"-"`
	Status                   PaymentStatus `json:"-"`
	PaymentMethod            string        `json:"payment_method"`
	Amount                   float64       `json:"amount"`
	CreatedDate              string        `json:"created_date"`
	ConfirmationCode         string        `json:"confirmation_code"`
	PaymentStatusDescription string        `json:"payment_status_description"`
	Description              string        `json:"description"`
	Message                  string        `json:"message"`
	PaymentAccount           string        `json:"payment_account"`
	CallbackURL              string        `json:"call_back_url"`
	StatusCode               *int          `json:"status_code"`
	MerchantReference        string        `json:"merchant_reference"`
	Currency                 string        `json:"currency"`
	Error                    *apiErrorBody `json:"error"`
}

func (r *TransactionStatus) ensure() error {
	if r.Error != nil && (r.Error.Message != "" || r.Error.Code != "") {
		return r.Error.toError(0)
	}
	if r.PaymentStatusDescription == "" && r.StatusCode == nil {
		return newResponseFormatError("transaction status response carries neither payment_status_description nor status_code", nil)
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}
