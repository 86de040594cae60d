package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalverra/tracker-client/apierr"
)

var testSpec = Spec{
	Resource: "Issue",
	Fields: []Field{
		{Wire: "id", Required: true},
		{Wire: "key", Required: true},
		{Wire: "summary"},
		{Wire: "type", Alias: "issueType"},
		{Wire: "tags"},
	},
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   map[string]any
		want      map[string]any
		wantField string
	}{
		{
			name: "all fields",
			payload: map[string]any{
				"id": "1", "key": "Q-1", "summary": "s",
				"type": map[string]any{"key": "bug"}, "tags": []any{"a"},
			},
			want: map[string]any{
				"id": "1", "key": "Q-1", "summary": "s",
				"issueType": map[string]any{"key": "bug"}, "tags": []any{"a"},
			},
		},
		{
			name:    "optional fields missing",
			payload: map[string]any{"id": "1", "key": "Q-1"},
			want:    map[string]any{"id": "1", "key": "Q-1"},
		},
		{
			name:    "explicit null is kept",
			payload: map[string]any{"id": "1", "key": "Q-1", "summary": nil},
			want:    map[string]any{"id": "1", "key": "Q-1", "summary": nil},
		},
		{
			name:    "undeclared fields ignored",
			payload: map[string]any{"id": "1", "key": "Q-1", "votes": 3.0},
			want:    map[string]any{"id": "1", "key": "Q-1"},
		},
		{
			name:      "required field missing",
			payload:   map[string]any{"id": "1", "summary": "s"},
			wantField: "key",
		},
		{
			name:      "first missing required field is reported",
			payload:   map[string]any{},
			wantField: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.payload, testSpec)
			if tt.wantField != "" {
				require.ErrorIs(t, err, apierr.ErrFieldMissing)
				var e *apierr.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "Issue", e.Resource)
				assert.Equal(t, tt.wantField, e.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"id": "1", "key": "Q-1", "type": "bug", "votes": 3.0,
	}
	attrs, err := Decode(payload, testSpec)
	require.NoError(t, err)

	assert.Equal(t,
		map[string]any{"id": "1", "key": "Q-1", "type": "bug"},
		Encode(attrs, testSpec, true),
	)
	assert.Equal(t,
		map[string]any{"id": "1", "key": "Q-1", "issueType": "bug"},
		Encode(attrs, testSpec, false),
	)
}

func TestEntityReload(t *testing.T) {
	t.Parallel()

	e, err := New(testSpec, map[string]any{"id": "1", "key": "Q-1", "summary": "old"}, "")
	require.NoError(t, err)
	e.Set("note", "local only")

	require.NoError(t, e.Load(map[string]any{"id": "1", "key": "Q-1", "tags": []any{"x"}}))

	_, ok := e.Get("summary")
	assert.False(t, ok, "summary should be cleared by reload")
	assert.Equal(t, []any{"x"}, e.Attributes()["tags"])
	assert.Equal(t, "local only", e.String("note"))
	assert.NotContains(t, e.Encode(true), "note")
}

func TestEntityReloadFailureKeepsState(t *testing.T) {
	t.Parallel()

	e, err := New(testSpec, map[string]any{"id": "1", "key": "Q-1", "summary": "s"}, "")
	require.NoError(t, err)

	err = e.Load(map[string]any{"id": "1"})
	require.ErrorIs(t, err, apierr.ErrFieldMissing)
	assert.Equal(t, "s", e.String("summary"))
	assert.Equal(t, "Q-1", e.String("key"))
}

func TestEntitySetGoverned(t *testing.T) {
	t.Parallel()

	e, err := New(testSpec, map[string]any{"id": "1", "key": "Q-1"}, "PARENT-1")
	require.NoError(t, err)
	e.Set("issueType", "task")

	assert.Equal(t, "PARENT-1", e.Parent())
	assert.Equal(t, "Issue", e.Resource())
	assert.Equal(t, map[string]any{"id": "1", "key": "Q-1", "type": "task"}, e.Encode(true))
}

func TestFromBody(t *testing.T) {
	t.Parallel()

	_, err := FromBody(testSpec, []any{"not", "an", "object"}, "")
	require.ErrorIs(t, err, apierr.ErrIncorrectData)

	e, err := FromBody(testSpec, map[string]any{"id": "7", "key": "Q-7"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Q-7", e.String("key"))
	assert.Empty(t, e.String("missing"))
}
