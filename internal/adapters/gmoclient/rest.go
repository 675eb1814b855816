package gmoclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"fxSignalBot/internal/ports"
)

const (
	publicPathPrefix  = "/public/v1"
	privatePathPrefix = "/private/v1"

	// Broker-documented request budgets: 6 reads and 1 write per second.
	readInterval  = time.Second / 6
	writeInterval = time.Second
)

// apiEnvelope is the common response wrapper of the broker API.
// A non-zero status inside a 200 response signals an API-level fault.
type apiEnvelope struct {
	Status       int             `json:"status"`
	Data         json.RawMessage `json:"data"`
	Messages     []apiMessage    `json:"messages"`
	ResponseTime string          `json:"responsetime"`
}

type apiMessage struct {
	Code   string `json:"message_code"`
	String string `json:"message_string"`
}

// restClient owns the HTTP transport: signing, rate limiting and retries.
type restClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     ports.Logger
	maxRetries int
	retryDelay time.Duration

	mu        sync.Mutex
	lastRead  time.Time
	lastWrite time.Time

	now func() time.Time
}

func (r *restClient) hasCredentials() bool {
	return r.apiKey != "" && r.apiSecret != ""
}

// sign computes the request signature: HMAC-SHA256 of
// timestamp + method + path + body, hex encoded. The path is the /v1-rooted
// form, e.g. /v1/account/assets.
func (r *restClient) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(r.apiSecret))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// waitRateLimit enforces the per-method request interval. POST requests share
// the write budget, everything else the read budget.
func (r *restClient) waitRateLimit(method string) {
	interval := readInterval
	r.mu.Lock()
	last := r.lastRead
	if method == http.MethodPost {
		interval = writeInterval
		last = r.lastWrite
	}
	wait := interval - r.now().Sub(last)
	r.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}

	r.mu.Lock()
	if method == http.MethodPost {
		r.lastWrite = r.now()
	} else {
		r.lastRead = r.now()
	}
	r.mu.Unlock()
}

// get performs a public or private GET request for the /v1-rooted path.
func (r *restClient) get(ctx context.Context, path string, query url.Values, private bool) (json.RawMessage, error) {
	return r.doWithRetry(ctx, http.MethodGet, path, query, nil, private)
}

// post performs a private POST request with a JSON body.
func (r *restClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.doWithRetry(ctx, http.MethodPost, path, nil, body, true)
}

// doWithRetry runs the request with the retry policy: authentication and
// API-level faults fail immediately, rate limiting backs off exponentially,
// network failures retry with a linearly growing delay.
func (r *restClient) doWithRetry(ctx context.Context, method, path string, query url.Values, body any, private bool) (json.RawMessage, error) {
	var bodyJSON []byte
	if body != nil {
		var err error
		bodyJSON, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request body: %w", ports.ErrInvalidRequest, err)
		}
	}

	expo := &backoff.Backoff{
		Min:    r.retryDelay,
		Max:    30 * time.Second,
		Factor: 2,
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		r.waitRateLimit(method)

		data, err := r.doOnce(ctx, method, path, query, bodyJSON, private)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ports.ErrAuthenticationFailed) || errors.Is(err, ports.ErrAPIFault) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, ctx.Err())
		}
		lastErr = err

		if attempt == r.maxRetries {
			break
		}

		var delay time.Duration
		if errors.Is(err, ports.ErrRateLimited) {
			delay = expo.Duration()
		} else {
			delay = time.Duration(attempt) * r.retryDelay
		}
		r.logger.Warn(ctx, "Request failed, retrying", map[string]interface{}{
			"method":  method,
			"path":    path,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, ctx.Err())
		}
	}
	return nil, fmt.Errorf("%s %s exhausted %d attempts: %w", method, path, r.maxRetries, lastErr)
}

// doOnce executes a single request and translates the HTTP and envelope
// status into the port error taxonomy.
func (r *restClient) doOnce(ctx context.Context, method, path string, query url.Values, bodyJSON []byte, private bool) (json.RawMessage, error) {
	prefix := publicPathPrefix
	if private {
		if !r.hasCredentials() {
			return nil, fmt.Errorf("%w: API key and secret required for private API", ports.ErrAuthenticationFailed)
		}
		prefix = privatePathPrefix
	}

	fullURL := r.baseURL + prefix + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if bodyJSON != nil {
		reqBody = bytes.NewReader(bodyJSON)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ports.ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if private {
		timestamp := strconv.FormatInt(r.now().UnixMilli(), 10)
		signPath := "/v1" + path
		req.Header.Set("API-KEY", r.apiKey)
		req.Header.Set("API-TIMESTAMP", timestamp)
		req.Header.Set("API-SIGN", r.sign(timestamp, method, signPath, string(bodyJSON)))
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ports.ErrTransientNetwork, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s %s", ports.ErrRateLimited, method, path)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s %s", ports.ErrAuthenticationFailed, method, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s %s returned HTTP %d", ports.ErrTransientNetwork, method, path, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ports.ErrTransientNetwork, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ports.ErrAPIFault, err)
	}
	if envelope.Status != 0 {
		return nil, fmt.Errorf("%w: status %d: %s", ports.ErrAPIFault, envelope.Status, formatMessages(envelope.Messages))
	}
	return envelope.Data, nil
}

func formatMessages(messages []apiMessage) string {
	if len(messages) == 0 {
		return "unknown error"
	}
	out := ""
	for i, m := range messages {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("[%s] %s", m.Code, m.String)
	}
	return out
}
