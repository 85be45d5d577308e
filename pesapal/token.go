package pesapal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// tokenSafetyMargin is subtracted from the expiry instant when judging
	// validity, so a token is never used moments before it lapses.
	tokenSafetyMargin = 30 * time.Second

	// defaultTokenLifetime is assumed when the gateway omits expiryDate or
	// sends one that does not parse. Sandbox tokens live five minutes.
	defaultTokenLifetime = 5 * time.Minute
)

var expiryLayouts = []string{
	"2006-01-02T15:04:05.999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
}

// tokenManager owns the cached bearer token. The token and its expiry are
// replaced wholesale under the mutex; the singleflight group collapses
// concurrent refreshes into one credential exchange.
type tokenManager struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	group     singleflight.Group
}

func (m *tokenManager) current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", false
	}
	if !time.Now().Before(m.expiresAt.Add(-tokenSafetyMargin)) {
		return "", false
	}
	return m.token, true
}

func (m *tokenManager) store(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiresAt = expiresAt
}

func (m *tokenManager) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

// Token returns a bearer token valid at the time of the call, performing a
// credential exchange only when the cached token is absent, expired, or
// forceRefresh is set. Concurrent callers share a single in-flight
// exchange.
func (c *Client) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if tok, ok := c.tokens.current(); ok {
			return tok, nil
		}
	}

	v, err, _ := c.tokens.group.Do("auth", func() (any, error) {
		if !forceRefresh {
			// Another caller may have refreshed while we waited for the flight.
			if tok, ok := c.tokens.current(); ok {
				return tok, nil
			}
		}
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// InvalidateToken drops the cached token. The next authenticated call will
// perform a fresh credential exchange.
func (c *Client) InvalidateToken() {
	c.tokens.invalidate()
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.logger.Debug("refreshing auth token")

	payload := authPayload{
		ConsumerKey:    c.cfg.ConsumerKey,
		ConsumerSecret: c.cfg.ConsumerSecret,
	}

	resp, err := send[authResponse](ctx, c, http.MethodPost, "Auth/RequestToken", nil, payload, false)
	if err != nil {
		return "", asAuthenticationError(err)
	}
	if err := resp.ensure(); err != nil {
		return "", asAuthenticationError(err)
	}

	expiresAt := parseTokenExpiry(resp.ExpiryDate, time.Now())
	c.tokens.store(resp.Token, expiresAt)
	c.logger.Debug("auth token refreshed", "expires_at", expiresAt)
	return resp.Token, nil
}

func parseTokenExpiry(expiryDate string, now time.Time) time.Time {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, expiryDate); err == nil {
			return t
		}
	}
	return now.Add(defaultTokenLifetime)
}
