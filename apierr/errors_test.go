package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   Kind
	}{
		{status: 400, want: KindBadRequest},
		{status: 401, want: KindAuthRequired},
		{status: 403, want: KindAuthRequired},
		{status: 404, want: KindNotFound},
		{status: 422, want: KindIncorrectData},
		{status: 409, want: KindUnavailable},
		{status: 429, want: KindUnavailable},
		{status: 500, want: KindUnavailable},
		{status: 503, want: KindUnavailable},
		{status: 302, want: KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.status))
		})
	}
}

func TestStatusSets(t *testing.T) {
	t.Parallel()

	for _, s := range []int{200, 201, 204} {
		assert.True(t, IsSuccess(s), "status %d", s)
		assert.False(t, IsRetryable(s), "status %d", s)
	}
	for _, s := range []int{202, 301, 400, 404, 500} {
		assert.False(t, IsSuccess(s), "status %d", s)
	}
	for _, s := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryable(s), "status %d", s)
	}
	for _, s := range []int{400, 401, 404, 422, 501} {
		assert.False(t, IsRetryable(s), "status %d", s)
	}
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	header := http.Header{"X-Request-Id": []string{"abc"}}
	err := HTTP(404, "Not Found", "https://api.example.com/v2/issues/Q-1", header,
		map[string]any{"errorMessages": []any{"Issue does not exist."}}, true)

	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t,
		"resource not found: 404 Not Found at https://api.example.com/v2/issues/Q-1: request failed: 404 - Not Found",
		err.Error(),
	)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)

	body, ok := err.ErrorBody()
	assert.True(t, ok)
	assert.NotNil(t, body)
	assert.Equal(t, "abc", err.Header.Get("X-Request-Id"))
}

func TestHTTPErrorAbsentBody(t *testing.T) {
	t.Parallel()

	err := HTTP(502, "Bad Gateway", "https://x", nil, "ignored", false)
	body, ok := err.ErrorBody()
	assert.False(t, ok)
	assert.Nil(t, body)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	err := Transport("https://x/v2/issues", cause)

	assert.Equal(t, KindTransportFailure, err.Kind)
	assert.Zero(t, err.StatusCode)
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, "dial tcp: connection refused", err.Message)
	assert.Equal(t, "transport failure: dial tcp: connection refused at https://x/v2/issues", err.Error())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("get issue: %w", FieldMissing("Issue", "key"))
	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindFieldMissing, kind)

	var e *Error
	require.ErrorAs(t, wrapped, &e)
	assert.Equal(t, "Issue", e.Resource)
	assert.Equal(t, "key", e.Field)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "session closed", KindSessionClosed.String())
	assert.Equal(t, "unsupported http verb", UnsupportedVerb("head").Kind.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
