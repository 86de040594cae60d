// Package entity maps raw JSON objects onto typed views using static,
// per-resource field specifications.
package entity

import (
	"fmt"
	"maps"

	"github.com/kalverra/tracker-client/apierr"
)

// Field declares one wire field of a resource.
type Field struct {
	Wire     string
	Required bool
	// Alias is the local attribute name. Empty means the wire name is used.
	Alias string
}

// Local returns the attribute name the field is stored under.
func (f Field) Local() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Wire
}

// Spec is the ordered field specification of a resource type.
type Spec struct {
	Resource string
	Fields   []Field
}

// governs reports whether name is the local name of a declared field.
func (s Spec) governs(name string) bool {
	for _, f := range s.Fields {
		if f.Local() == name {
			return true
		}
	}
	return false
}

// Decode evaluates spec over payload and returns the resulting attributes
// keyed by local name. Values are passed through as decoded, undeclared wire
// fields are ignored, and an absent optional field produces no key.
func Decode(payload map[string]any, spec Spec) (map[string]any, error) {
	attrs := make(map[string]any, len(spec.Fields))
	for _, f := range spec.Fields {
		v, ok := payload[f.Wire]
		if !ok {
			if f.Required {
				return nil, apierr.FieldMissing(spec.Resource, f.Wire)
			}
			continue
		}
		attrs[f.Local()] = v
	}
	return attrs, nil
}

// Encode is the inverse of Decode. Fields whose attribute was never set are
// omitted. Keys are wire names when useWireNames is true, local names
// otherwise.
func Encode(attrs map[string]any, spec Spec, useWireNames bool) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, f := range spec.Fields {
		v, ok := attrs[f.Local()]
		if !ok {
			continue
		}
		if useWireNames {
			out[f.Wire] = v
		} else {
			out[f.Local()] = v
		}
	}
	return out
}

// Entity is a typed view over one JSON object.
type Entity struct {
	spec   Spec
	attrs  map[string]any
	extra  map[string]any
	parent string
}

// New decodes payload with spec. parent is the identifier of the logical
// parent resource, empty when there is none.
func New(spec Spec, payload map[string]any, parent string) (*Entity, error) {
	e := &Entity{spec: spec, parent: parent, extra: map[string]any{}}
	if err := e.Load(payload); err != nil {
		return nil, err
	}
	return e, nil
}

// FromBody is New for an already decoded response body, which must be a
// JSON object.
func FromBody(spec Spec, body any, parent string) (*Entity, error) {
	payload, ok := body.(map[string]any)
	if !ok {
		return nil, &apierr.Error{
			Kind:     apierr.KindIncorrectData,
			Message:  fmt.Sprintf("%s: payload is %T, want a JSON object", spec.Resource, body),
			Resource: spec.Resource,
		}
	}
	return New(spec, payload, parent)
}

// Load re-applies the field specification over a new payload. Every
// attribute governed by the spec is replaced; attributes set by calling
// code outside the spec are kept. On failure the entity is unchanged.
func (e *Entity) Load(payload map[string]any) error {
	attrs, err := Decode(payload, e.spec)
	if err != nil {
		return err
	}
	e.attrs = attrs
	return nil
}

// Spec returns the field specification the entity was decoded with.
func (e *Entity) Spec() Spec { return e.spec }

// Resource returns the resource type name.
func (e *Entity) Resource() string { return e.spec.Resource }

// Parent returns the parent resource identifier, if any.
func (e *Entity) Parent() string { return e.parent }

// Get returns the attribute stored under the local name.
func (e *Entity) Get(name string) (any, bool) {
	if v, ok := e.attrs[name]; ok {
		return v, true
	}
	v, ok := e.extra[name]
	return v, ok
}

// String returns the attribute as a string, or "" if it is unset or not a
// string.
func (e *Entity) String(name string) string {
	v, _ := e.Get(name)
	s, _ := v.(string)
	return s
}

// Set assigns an attribute. Names declared by the spec become part of the
// encoded payload; any other name is a local-only attribute.
func (e *Entity) Set(name string, v any) {
	if e.spec.governs(name) {
		e.attrs[name] = v
		return
	}
	e.extra[name] = v
}

// Attributes returns a copy of the spec-governed attributes.
func (e *Entity) Attributes() map[string]any {
	return maps.Clone(e.attrs)
}

// Encode renders the entity back into a payload.
func (e *Entity) Encode(useWireNames bool) map[string]any {
	return Encode(e.attrs, e.spec, useWireNames)
}
