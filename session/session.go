// Package session performs authenticated calls against the tracker REST API,
// retrying transient failures and classifying every outcome.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"resty.dev/v3"

	"github.com/kalverra/tracker-client/apierr"
)

// Defaults applied by New when an option is left zero.
const (
	DefaultHost          = "api.tracker.yandex.net"
	DefaultSchema        = "https"
	DefaultVersion       = "v2"
	DefaultEncoding      = "utf-8"
	DefaultRetryInterval = time.Second
	DefaultTimeout       = 30 * time.Second
)

var methods = map[string]string{
	"get":    http.MethodGet,
	"post":   http.MethodPost,
	"put":    http.MethodPut,
	"patch":  http.MethodPatch,
	"delete": http.MethodDelete,
}

// Options configures a Session. It is copied on construction.
type Options struct {
	Token   string
	OrgID   string
	Host    string
	Schema  string
	Version string
	// Headers are sent with every call. They cannot replace Host,
	// Authorization or X-Org-ID.
	Headers map[string]string
	// Encoding is the WHATWG name of the response text encoding.
	Encoding string
	// Retries is how many times a retryable response is re-sent. Zero
	// disables retrying.
	Retries       int
	RetryInterval time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
}

// Request describes one logical call.
type Request struct {
	Method string
	// Endpoint is relative to the versioned base URL.
	Endpoint string
	// URL, when set, is used as-is instead of Endpoint.
	URL     string
	Params  map[string]string
	Body    any
	Headers map[string]string
}

// WithParam returns a copy of r whose query parameter key is set to value.
func (r Request) WithParam(key, value string) Request {
	params := maps.Clone(r.Params)
	if params == nil {
		params = map[string]string{}
	}
	params[key] = value
	r.Params = params
	return r
}

// WithURL returns a copy of r aimed at an absolute URL. Query parameters are
// dropped since the URL carries its own.
func (r Request) WithURL(url string) Request {
	r.URL = url
	r.Params = nil
	return r
}

// Response is the normalized result of a successful call.
type Response struct {
	StatusCode int
	Reason     string
	// URL is the final URL after redirects.
	URL    string
	Header http.Header
	// Body is the decoded JSON value: map[string]any, []any, a scalar, or
	// nil for an empty body. A body that is not JSON is kept as a string.
	Body any
}

// Session is safe for concurrent use. The underlying connection pool is
// shared by all calls until Close.
type Session struct {
	baseURL       string
	headers       map[string]string
	encoding      encoding.Encoding
	retries       int
	retryInterval time.Duration

	hc     *http.Client
	http   *resty.Client
	logger zerolog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Session.
func New(opts Options, logger zerolog.Logger) (*Session, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Schema == "" {
		opts.Schema = DefaultSchema
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Encoding == "" {
		opts.Encoding = DefaultEncoding
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", opts.Retries)
	}
	enc, err := htmlindex.Get(opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("response encoding %q: %w", opts.Encoding, err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range opts.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	headers["Host"] = opts.Host
	headers["Authorization"] = "OAuth " + opts.Token
	headers["X-Org-Id"] = opts.OrgID

	l := logger.With().Str("component", "session").Logger()
	hc := newHTTPClient(opts.Timeout)
	r := resty.NewWithClient(hc).
		AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
			req := resp.Request
			l.Trace().
				Str("method", req.Method).
				Func(func(e *zerolog.Event) {
					if req.RawRequest != nil {
						e.Str("url", req.RawRequest.URL.String())
					}
					if req.Body != nil {
						if b, err := json.Marshal(req.Body); err == nil {
							e.RawJSON("req_body", b)
						}
					}
				}).
				Int("status", resp.StatusCode()).
				Dur("elapsed", resp.Duration()).
				Str("resp_body", resp.String()).
				Msg("http round trip")
			return nil
		})

	return &Session{
		baseURL:       fmt.Sprintf("%s://%s/%s/", opts.Schema, opts.Host, strings.Trim(opts.Version, "/")),
		headers:       headers,
		encoding:      enc,
		retries:       opts.Retries,
		retryInterval: opts.RetryInterval,
		hc:            hc,
		http:          r,
		logger:        l,
	}, nil
}

// BaseURL returns the versioned root every endpoint is resolved against.
func (s *Session) BaseURL() string { return s.baseURL }

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool { return s.closed.Load() }

// Close releases pooled connections. Calls made afterwards fail with
// apierr.ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.http.Close()
		s.hc.CloseIdleConnections()
		s.logger.Debug().Msg("session closed")
	})
	return err
}

// Do performs req, re-sending it while the response status is retryable and
// retries remain. A non-success final response is returned as *apierr.Error.
func (s *Session) Do(ctx context.Context, req Request) (*Response, error) {
	if s.IsClosed() {
		return nil, apierr.SessionClosed()
	}
	method, ok := methods[strings.ToLower(req.Method)]
	if !ok {
		return nil, apierr.UnsupportedVerb(req.Method)
	}
	url := s.resolve(req)

	var resp *resty.Response
	for attempt := 0; ; attempt++ {
		if s.IsClosed() {
			return nil, apierr.SessionClosed()
		}
		var err error
		resp, err = s.send(ctx, method, url, req)
		if err != nil {
			return nil, apierr.Transport(url, err)
		}
		status := resp.StatusCode()
		if !apierr.IsRetryable(status) || attempt >= s.retries {
			break
		}

		s.logger.Debug().
			Str("method", method).
			Str("url", url).
			Int("status", status).
			Int("attempt", attempt+1).
			Int("retries", s.retries).
			Dur("wait", s.retryInterval).
			Msg("retryable response, waiting before retry")

		timer := time.NewTimer(s.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apierr.Transport(url, ctx.Err())
		case <-timer.C:
		}
	}

	return s.normalize(url, resp)
}

func (s *Session) resolve(req Request) string {
	if req.URL != "" {
		return req.URL
	}
	return s.baseURL + strings.TrimLeft(req.Endpoint, "/")
}

func (s *Session) send(
	ctx context.Context,
	method, url string,
	req Request,
) (*resty.Response, error) {
	r := s.http.R().
		SetContext(ctx).
		SetHeaders(s.headers).
		SetHeader("X-Request-Id", uuid.New().String())
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Params) > 0 {
		r.SetQueryParams(req.Params)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	return r.Execute(method, url)
}

func (s *Session) normalize(url string, resp *resty.Response) (*Response, error) {
	status := resp.StatusCode()
	header := resp.Header()
	finalURL := url
	reason := http.StatusText(status)
	if raw := resp.RawResponse; raw != nil {
		reason = reasonPhrase(raw.Status, status)
		if raw.Request != nil && raw.Request.URL != nil {
			finalURL = raw.Request.URL.String()
		}
	}

	if !apierr.IsSuccess(status) {
		body, err := s.decodeJSON(resp.Bytes())
		hasBody := err == nil
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int("status", status).
				Str("url", finalURL).
				Msg("could not decode error body")
		}
		return nil, apierr.HTTP(status, reason, finalURL, header, body, hasBody)
	}

	return &Response{
		StatusCode: status,
		Reason:     reason,
		URL:        finalURL,
		Header:     header,
		Body:       s.decodeBody(resp.Bytes()),
	}, nil
}

// decodeBody decodes a success body, falling back to its text when it is
// not JSON.
func (s *Session) decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	text := s.text(raw)
	var v any
	if err := json.Unmarshal(text, &v); err != nil {
		return string(text)
	}
	return v
}

func (s *Session) decodeJSON(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var v any
	if err := json.Unmarshal(s.text(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Session) text(raw []byte) []byte {
	out, err := s.encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return out
}

// reasonPhrase strips the numeric prefix from an http.Response status line.
func reasonPhrase(status string, code int) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		return http.StatusText(code)
	}
	return reason
}
