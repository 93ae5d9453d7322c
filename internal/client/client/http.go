package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

const maxResponseBytes = 8 << 20

// TokenSource yields the bearer token for the current session, or "" when
// logged out.
type TokenSource func() string

// bearerTransport injects the session token into every outgoing request.
type bearerTransport struct {
	base http.RoundTripper

	mu     sync.RWMutex
	tokens TokenSource
}

func (t *bearerTransport) setTokenSource(ts TokenSource) {
	t.mu.Lock()
	t.tokens = ts
	t.mu.Unlock()
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	ts := t.tokens
	t.mu.RUnlock()

	if ts != nil {
		if tok := ts(); tok != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return t.base.RoundTrip(req)
}

// envelope is the status part shared by every JSON reply.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// jsonService is the request plumbing shared by the master and gateway
// clients.
type jsonService struct {
	name      string
	baseURL   string
	http      *http.Client
	transport *bearerTransport
	log       logging.Logger
}

func newJSONService(name, baseURL string, timeout time.Duration, log logging.Logger) *jsonService {
	tr := &bearerTransport{base: http.DefaultTransport}
	return &jsonService{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout, Transport: tr},
		transport: tr,
		log:       log.With("component", name+"_client"),
	}
}

// do sends in as JSON (nil means no body) and decodes the reply into out
// (nil means the reply is only checked for rejection). With acked set, a
// reply lacking "success": true counts as a rejection.
func (s *jsonService) do(ctx context.Context, method, path string, in, out any, acked bool) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(s.name, path, 0, time.Since(start))
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.ObserveRequest(s.name, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: read %s reply: %w", ErrUnavailable, path, err)
	}

	s.log.Debug(ctx, "request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	var env envelope
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Status: resp.StatusCode, Reason: env.Error}
	}
	if envErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, envErr)
	}
	if (env.Success != nil && !*env.Success) || (acked && env.Success == nil) {
		return &RejectedError{Status: resp.StatusCode, Reason: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}
