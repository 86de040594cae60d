package tracker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

const (
	prioritiesEndpoint = "priorities"
	priorityEndpoint   = "priorities/%s"
)

// PrioritySpec is the field specification of an issue priority.
var PrioritySpec = entity.Spec{
	Resource: "Priority",
	Fields: []entity.Field{
		{Wire: "self", Required: true},
		{Wire: "id", Required: true},
		{Wire: "key", Required: true},
		{Wire: "version"},
		{Wire: "name"},
		{Wire: "order"},
	},
}

// Priority is an issue priority level.
type Priority struct {
	*entity.Entity
}

func wrapPriority(e *entity.Entity) *Priority { return &Priority{Entity: e} }

// Key returns the priority key, e.g. "critical".
func (p *Priority) Key() string { return p.String("key") }

// Name returns the display name. Non-localized listings return it as an
// object keyed by language; Name returns "" in that case.
func (p *Priority) Name() string { return p.String("name") }

// PrioritiesService groups the priority endpoints.
type PrioritiesService struct {
	doer collection.Doer
}

// List returns every priority. With localized false the server returns names
// in all languages.
func (s *PrioritiesService) List(
	ctx context.Context,
	localized bool,
) (*collection.Collection[*Priority], error) {
	return list(ctx, s.doer, session.Request{
		Method:   "get",
		Endpoint: prioritiesEndpoint,
		Params:   map[string]string{"localized": strconv.FormatBool(localized)},
	}, PrioritySpec, "", wrapPriority)
}

// Get returns one priority by key or id.
func (s *PrioritiesService) Get(ctx context.Context, key string) (*Priority, error) {
	e, err := one(ctx, s.doer, session.Request{
		Method:   "get",
		Endpoint: fmt.Sprintf(priorityEndpoint, url.PathEscape(key)),
	}, PrioritySpec, "")
	if err != nil {
		return nil, err
	}
	return wrapPriority(e), nil
}
