package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kalverra/tracker-client/apierr"
	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

const (
	issuesEndpoint      = "issues/"
	issueEndpoint       = "issues/%s"
	issueSearchEndpoint = "issues/_search"
)

// IssueSpec is the field specification of an issue.
var IssueSpec = entity.Spec{
	Resource: "Issue",
	Fields: []entity.Field{
		{Wire: "self", Required: true},
		{Wire: "id", Required: true},
		{Wire: "key", Required: true},
		{Wire: "version"},
		{Wire: "summary"},
		{Wire: "description"},
		{Wire: "type", Alias: "issueType"},
		{Wire: "priority"},
		{Wire: "status"},
		{Wire: "queue"},
		{Wire: "assignee"},
		{Wire: "createdBy", Alias: "author"},
		{Wire: "followers"},
		{Wire: "tags"},
		{Wire: "deadline"},
		{Wire: "createdAt"},
		{Wire: "updatedAt"},
	},
}

// Issue is a tracker issue.
type Issue struct {
	*entity.Entity
	doer collection.Doer
}

func issueWrapper(doer collection.Doer) func(*entity.Entity) *Issue {
	return func(e *entity.Entity) *Issue {
		return &Issue{Entity: e, doer: doer}
	}
}

// Key returns the issue key, e.g. "QUEUE-12".
func (i *Issue) Key() string { return i.String("key") }

// ID returns the opaque issue id.
func (i *Issue) ID() string { return i.String("id") }

// Summary returns the issue title.
func (i *Issue) Summary() string { return i.String("summary") }

// Reload re-fetches the issue and replaces every field it holds.
func (i *Issue) Reload(ctx context.Context) error {
	resp, err := i.doer.Do(ctx, session.Request{
		Method:   "get",
		Endpoint: fmt.Sprintf(issueEndpoint, url.PathEscape(i.Key())),
	})
	if err != nil {
		return err
	}
	return i.loadBody(resp.Body)
}

// Update patches the given wire fields and refreshes the issue from the
// server's answer.
func (i *Issue) Update(ctx context.Context, fields map[string]any) error {
	req := session.Request{
		Method:   "patch",
		Endpoint: fmt.Sprintf(issueEndpoint, url.PathEscape(i.Key())),
		Body:     fields,
	}
	if v, ok := i.Get("version"); ok {
		req.Params = map[string]string{"version": formatVersion(v)}
	}
	resp, err := i.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	return i.loadBody(resp.Body)
}

// Transitions lists the workflow transitions available for the issue.
func (i *Issue) Transitions(ctx context.Context) (*collection.Collection[*Transition], error) {
	return transitions(ctx, i.doer, i.Key())
}

// formatVersion renders a decoded version number without exponent notation.
func formatVersion(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case json.Number:
		return n.String()
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(v)
	}
}

func (i *Issue) loadBody(body any) error {
	payload, ok := body.(map[string]any)
	if !ok {
		return &apierr.Error{
			Kind:     apierr.KindIncorrectData,
			Message:  fmt.Sprintf("Issue: payload is %T, want a JSON object", body),
			Resource: IssueSpec.Resource,
		}
	}
	return i.Load(payload)
}

// ListOptions selects a page of a list endpoint.
type ListOptions struct {
	Page    int
	PerPage int
	// Params are extra query parameters.
	Params map[string]string
}

func (o ListOptions) params() map[string]string {
	p := make(map[string]string, len(o.Params)+2)
	maps.Copy(p, o.Params)
	if o.Page > 0 {
		p[collection.PageParam] = strconv.Itoa(o.Page)
	}
	if o.PerPage > 0 {
		p["perPage"] = strconv.Itoa(o.PerPage)
	}
	return p
}

// SearchRequest is the body of an issue search. Set either Filter or Query.
type SearchRequest struct {
	Filter map[string]any `json:"filter,omitempty"`
	Query  string         `json:"query,omitempty"`
	Order  string         `json:"order,omitempty"`
}

// IssuesService groups the issue endpoints.
type IssuesService struct {
	doer   collection.Doer
	logger zerolog.Logger
}

// Get returns one issue by key or id.
func (s *IssuesService) Get(ctx context.Context, key string) (*Issue, error) {
	e, err := one(ctx, s.doer, session.Request{
		Method:   "get",
		Endpoint: fmt.Sprintf(issueEndpoint, url.PathEscape(key)),
	}, IssueSpec, "")
	if err != nil {
		return nil, err
	}
	return issueWrapper(s.doer)(e), nil
}

// List returns a page of issues.
func (s *IssuesService) List(ctx context.Context, opts ListOptions) (*collection.Collection[*Issue], error) {
	return list(ctx, s.doer, session.Request{
		Method:   "get",
		Endpoint: issuesEndpoint,
		Params:   opts.params(),
	}, IssueSpec, "", issueWrapper(s.doer))
}

// Search returns a page of issues matching sr. Following pages re-send the
// same search body.
func (s *IssuesService) Search(
	ctx context.Context,
	sr SearchRequest,
	opts ListOptions,
) (*collection.Collection[*Issue], error) {
	return list(ctx, s.doer, session.Request{
		Method:   "post",
		Endpoint: issueSearchEndpoint,
		Params:   opts.params(),
		Body:     sr,
	}, IssueSpec, "", issueWrapper(s.doer))
}

// Create creates an issue from wire fields (queue and summary at least).
func (s *IssuesService) Create(ctx context.Context, fields map[string]any) (*Issue, error) {
	e, err := one(ctx, s.doer, session.Request{
		Method:   "post",
		Endpoint: issuesEndpoint,
		Body:     fields,
	}, IssueSpec, "")
	if err != nil {
		return nil, err
	}
	issue := issueWrapper(s.doer)(e)
	s.logger.Debug().
		Str("issue", issue.Key()).
		Msg("created issue")
	return issue, nil
}

// Transitions lists the workflow transitions available for an issue.
func (s *IssuesService) Transitions(
	ctx context.Context,
	key string,
) (*collection.Collection[*Transition], error) {
	return transitions(ctx, s.doer, key)
}
