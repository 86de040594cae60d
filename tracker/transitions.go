package tracker

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

const (
	transitionsEndpoint       = "issues/%s/transitions"
	transitionExecuteEndpoint = "issues/%s/transitions/%s/_execute"
)

// TransitionSpec is the field specification of a workflow transition.
var TransitionSpec = entity.Spec{
	Resource: "Transition",
	Fields: []entity.Field{
		{Wire: "self", Required: true},
		{Wire: "id", Required: true},
		{Wire: "to"},
		{Wire: "display"},
		{Wire: "screen"},
	},
}

// Transition is a workflow step available for an issue. Its parent is the
// key of that issue.
type Transition struct {
	*entity.Entity
	doer collection.Doer
}

func transitionWrapper(doer collection.Doer) func(*entity.Entity) *Transition {
	return func(e *entity.Entity) *Transition {
		return &Transition{Entity: e, doer: doer}
	}
}

// ID returns the transition id, e.g. "start_progress".
func (t *Transition) ID() string { return t.String("id") }

// Display returns the human-readable transition name.
func (t *Transition) Display() string { return t.String("display") }

// Execute performs the transition on its issue. fields may carry values the
// transition screen asks for. The transitions available afterwards are
// returned.
func (t *Transition) Execute(
	ctx context.Context,
	fields map[string]any,
) (*collection.Collection[*Transition], error) {
	req := session.Request{
		Method: "post",
		Endpoint: fmt.Sprintf(transitionExecuteEndpoint,
			url.PathEscape(t.Parent()), url.PathEscape(t.ID())),
	}
	if fields != nil {
		req.Body = fields
	}
	return list(ctx, t.doer, req, TransitionSpec, t.Parent(), transitionWrapper(t.doer))
}

func transitions(
	ctx context.Context,
	doer collection.Doer,
	issueKey string,
) (*collection.Collection[*Transition], error) {
	return list(ctx, doer, session.Request{
		Method:   "get",
		Endpoint: fmt.Sprintf(transitionsEndpoint, url.PathEscape(issueKey)),
	}, TransitionSpec, issueKey, transitionWrapper(doer))
}
