package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

const (
	userAgent     = "pesapal-go/1.0.0"
	retryMaxDelay = 8 * time.Second
)

type attemptResult struct {
	status int
	body   []byte
}

// send performs one logical gateway call: build the request, attach the
// bearer token when authenticated, retry transient failures within the
// configured budget, and decode a 2xx body into T.
//
// Transport failures and 5xx responses consume the retry budget
// (MaxRetries extra attempts). A 401 on an authenticated call triggers
// exactly one forced token refresh and one extra attempt outside the
// budget. Other non-2xx statuses fail immediately.
func send[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, authenticated bool) (*T, error) {
	endpoint := c.cfg.BaseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, newValidationError("cannot encode request body: %v", err)
		}
	}

	var (
		attempt      int // transport/5xx budget consumed
		refreshed401 bool
		forceRefresh bool
		lastErr      error
	)
	for {
		var token string
		if authenticated {
			tok, err := c.Token(ctx, forceRefresh)
			if err != nil {
				return nil, err
			}
			token = tok
			forceRefresh = false
		}

		res, err := c.attempt(ctx, method, endpoint, payload, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, newTransportError("request cancelled", ctx.Err())
			}
			lastErr = err
			c.logger.Debug("request attempt failed", "method", method, "path", path, "attempt", attempt+1, "error", err)
			if attempt >= c.cfg.MaxRetries {
				return nil, newTransportError(
					fmt.Sprintf("%s %s failed after %d attempts", method, path, attempt+1), lastErr)
			}
			attempt++
			if err := c.backoffWait(ctx, attempt-1); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case res.status >= 200 && res.status < 300:
			var out T
			if err := json.Unmarshal(res.body, &out); err != nil {
				return nil, newResponseFormatError(
					fmt.Sprintf("invalid JSON in %s %s response", method, path), err)
			}
			return &out, nil

		case res.status == http.StatusUnauthorized && authenticated && !refreshed401:
			// Stale token. Refresh once and retry once, never looping.
			c.logger.Debug("received 401, forcing token refresh", "method", method, "path", path)
			refreshed401 = true
			forceRefresh = true
			continue

		case res.status >= 500:
			lastErr = apiErrorFromResponse(res.status, res.body)
			c.logger.Debug("gateway server error", "method", method, "path", path, "status", res.status, "attempt", attempt+1)
			if attempt >= c.cfg.MaxRetries {
				return nil, lastErr
			}
			attempt++
			if err := c.backoffWait(ctx, attempt-1); err != nil {
				return nil, err
			}
			continue

		default:
			return nil, apiErrorFromResponse(res.status, res.body)
		}
	}
}

// attempt performs one HTTP exchange under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, token string) (*attemptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return &attemptResult{status: resp.StatusCode, body: data}, nil
}

// apiErrorFromResponse lifts whatever error detail the gateway put in a
// non-2xx body into the taxonomy.
func apiErrorFromResponse(status int, body []byte) *Error {
	var envelope struct {
		Error   *apiErrorBody `json:"error"`
		Message string        `json:"message"`
	}
	message := fmt.Sprintf("gateway returned HTTP %d", status)
	code := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
			code = envelope.Error.Code
		} else if envelope.Message != "" {
			message = envelope.Message
		}
	}
	return &Error{
		Kind:       KindAPI,
		Message:    message,
		Code:       code,
		StatusCode: status,
	}
}

// backoffWait sleeps for a capped exponential delay with jitter, aborting
// early if the caller's context is done.
func (c *Client) backoffWait(ctx context.Context, attempt int) error {
	delay := c.cfg.RetryBaseDelay * time.Duration(1<<attempt)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	delay += time.Duration(rand.Intn(250)) * time.Millisecond

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return newTransportError("request cancelled during retry backoff", ctx.Err())
	case <-timer.C:
		return nil
	}
}
