// Package transport owns the HTTP session used to talk to the remote
// object store. A Session wraps one configured http.Client for one
// logical connection (server URL plus credential pair) and exposes a
// blocking request/response exchange.
//
// A Session serializes requests: at most one exchange is in flight at
// a time. Callers needing parallel requests open multiple sessions.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/h5works/restfs/internal/logger"
)

// Config carries the connection parameters for a Session.
type Config struct {
	// Endpoint is the server base URL, e.g. "http://hsds.example:5101".
	Endpoint string

	// Domain is the remote domain (file) path attached to every
	// request as the "domain" query parameter.
	Domain string

	// Username and Password form the basic-auth credential pair.
	// Never logged.
	Username string
	Password string

	// RequestTimeout bounds a single exchange including retries.
	// Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Retry controls transient-failure retries. Zero value disables
	// retries entirely.
	Retry RetryPolicy

	// Trace enables wire-level request/response logging at debug level.
	Trace bool

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// DefaultRequestTimeout is used when Config.RequestTimeout is zero.
const DefaultRequestTimeout = 30 * time.Second

// RetryPolicy controls retries for transient failures on idempotent
// requests (GET only; mutating requests are never replayed because the
// outcome of a lost response is unknown).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy retries conservatively.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 2,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// Error is a transport-level failure: the request never produced a
// usable HTTP response (dial failure, TLS failure, timeout).
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response. Body is retained for the
// error translator.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: server returned status %d", e.StatusCode)
}

// Session is one logical connection to the server. Safe to share only
// in the sense that exchanges are serialized; the surrounding object
// model assumes single-threaded use per open domain.
type Session struct {
	id       string
	base     *url.URL
	domain   string
	username string
	password string
	timeout  time.Duration
	retry    RetryPolicy
	trace    bool

	mu     sync.Mutex
	client *http.Client
	closed bool
}

// Open validates the configuration and returns a ready Session. No
// network traffic occurs until the first Exchange.
func Open(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("transport: endpoint is required")
	}
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: unsupported endpoint scheme %q", base.Scheme)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	s := &Session{
		id:       uuid.NewString(),
		base:     base,
		domain:   cfg.Domain,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  timeout,
		retry:    cfg.Retry,
		trace:    cfg.Trace,
		client:   client,
	}

	logger.Debug("transport: opened session %s for %s", s.id, base.Redacted())
	return s, nil
}

// ID returns the session identifier used for log correlation.
func (s *Session) ID() string { return s.id }

// Domain returns the domain path this session is bound to.
func (s *Session) Domain() string { return s.domain }

// SetDomain rebinds the session to a different domain path. Used when
// an external link crosses into another domain.
func (s *Session) SetDomain(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domain = domain
}

// Close releases the session. Further exchanges fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.client.CloseIdleConnections()
	logger.Debug("transport: closed session %s", s.id)
}

// Exchange performs one blocking HTTP exchange and returns the status
// code and response body. query may be nil. body may be nil for
// bodyless requests; when present it is sent as application/json.
//
// A *Error is returned when no usable response was received. Non-2xx
// statuses are returned as (status, body, *StatusError) so the caller's
// error translator can inspect both.
func (s *Session) Exchange(ctx context.Context, method, resourcePath string, query url.Values, body []byte) (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, &Error{Op: method, URL: resourcePath, Err: errors.New("session closed")}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fullURL := s.buildURL(resourcePath, query)

	if s.trace {
		logger.Debug("transport[%s]: %s %s (%d body bytes)", s.id, method, fullURL, len(body))
	}

	retryable := method == http.MethodGet
	backoff := newBackoff(s.retry.BaseDelay, s.retry.MaxDelay, s.retry.Jitter)

	var lastErr error
	for attempt := 0; ; attempt++ {
		status, respBody, err := s.once(ctx, method, fullURL, body)
		if err == nil {
			if status >= 400 {
				statusErr := &StatusError{StatusCode: status, Body: respBody}
				if retryable && attempt < s.retry.MaxRetries && status >= 500 {
					lastErr = statusErr
					if serr := sleep(ctx, backoff.forAttempt(attempt)); serr != nil {
						return 0, nil, &Error{Op: method, URL: fullURL, Err: serr}
					}
					continue
				}
				return status, respBody, statusErr
			}
			if s.trace {
				logger.Debug("transport[%s]: %s %s -> %d (%d bytes)", s.id, method, fullURL, status, len(respBody))
			}
			return status, respBody, nil
		}

		// A per-request client timeout also matches DeadlineExceeded,
		// so only the caller's own context ends the loop.
		if ctx.Err() != nil {
			return 0, nil, &Error{Op: method, URL: fullURL, Err: err}
		}
		if !retryable || attempt >= s.retry.MaxRetries {
			if lastErr != nil {
				err = errors.Join(err, lastErr)
			}
			return 0, nil, &Error{Op: method, URL: fullURL, Err: err}
		}
		lastErr = err
		if serr := sleep(ctx, backoff.forAttempt(attempt)); serr != nil {
			return 0, nil, &Error{Op: method, URL: fullURL, Err: serr}
		}
	}
}

// once performs a single request attempt.
func (s *Session) once(ctx context.Context, method, fullURL string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// buildURL joins the resource path onto the base URL and attaches the
// query parameters plus the session's domain parameter.
func (s *Session) buildURL(resourcePath string, query url.Values) string {
	ref := *s.base
	if !strings.HasPrefix(resourcePath, "/") {
		resourcePath = "/" + resourcePath
	}
	ref.Path = strings.TrimRight(ref.Path, "/") + resourcePath

	q := ref.Query()
	for k, values := range query {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	if s.domain != "" {
		q.Set("domain", s.domain)
	}
	ref.RawQuery = q.Encode()
	return ref.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
