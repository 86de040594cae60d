// Package tracker is a typed client for the issue tracker REST API.
package tracker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

// Client exposes the resource families of the API over one shared session.
type Client struct {
	session *session.Session
	logger  zerolog.Logger

	Issues     *IssuesService
	Priorities *PrioritiesService
}

// NewClient creates a Client. Close it to release pooled connections.
func NewClient(opts session.Options, logger zerolog.Logger) (*Client, error) {
	s, err := session.New(opts, logger)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "tracker").Logger()
	return &Client{
		session:    s,
		logger:     l,
		Issues:     &IssuesService{doer: s, logger: l},
		Priorities: &PrioritiesService{doer: s},
	}, nil
}

// RawQuery sends an arbitrary request to an endpoint relative to the
// versioned base URL and returns the normalized response.
func (c *Client) RawQuery(
	ctx context.Context,
	method, endpoint string,
	params, headers map[string]string,
	payload map[string]any,
) (*session.Response, error) {
	req := session.Request{
		Method:   method,
		Endpoint: endpoint,
		Params:   params,
		Headers:  headers,
	}
	if payload != nil {
		req.Body = payload
	}
	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("raw query")
	return c.session.Do(ctx, req)
}

// BaseURL returns the versioned API root.
func (c *Client) BaseURL() string { return c.session.BaseURL() }

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool { return c.session.IsClosed() }

// Close tears down the session. Later calls fail with
// apierr.ErrSessionClosed.
func (c *Client) Close() error {
	return c.session.Close()
}

// list runs req and wraps the resulting sequence into a collection.
func list[T any](
	ctx context.Context,
	doer collection.Doer,
	req session.Request,
	spec entity.Spec,
	parent string,
	wrap func(*entity.Entity) T,
) (*collection.Collection[T], error) {
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return collection.New(doer, req, resp, spec, parent, wrap)
}

// one runs req and decodes the single resulting object.
func one(
	ctx context.Context,
	doer collection.Doer,
	req session.Request,
	spec entity.Spec,
	parent string,
) (*entity.Entity, error) {
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return entity.FromBody(spec, resp.Body, parent)
}
