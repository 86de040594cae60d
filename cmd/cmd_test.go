package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

var testSpec = entity.Spec{
	Resource: "Thing",
	Fields: []entity.Field{
		{Wire: "id", Required: true},
		{Wire: "type", Alias: "kind"},
	},
}

type pagedDoer struct {
	pages [][]any
	calls int
}

func (d *pagedDoer) Do(_ context.Context, req session.Request) (*session.Response, error) {
	d.calls++
	page, _ := strconv.Atoi(req.Params[collection.PageParam])
	return pageResponse(d.pages, page), nil
}

func pageResponse(pages [][]any, page int) *session.Response {
	h := http.Header{}
	h.Set(collection.HeaderTotalPages, strconv.Itoa(len(pages)))
	return &session.Response{StatusCode: http.StatusOK, Header: h, Body: pages[page-1]}
}

func TestRender(t *testing.T) {
	t.Parallel()

	v := map[string]any{"key": "Q-1", "tags": []any{"a"}}

	var out bytes.Buffer
	require.NoError(t, render(&out, "json", v))
	var gotJSON map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &gotJSON))
	assert.Equal(t, v, gotJSON)

	out.Reset()
	require.NoError(t, render(&out, "yaml", v))
	var gotYAML map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &gotYAML))
	assert.Equal(t, v, gotYAML)

	require.Error(t, render(&out, "xml", v))
}

func TestCollectAllPages(t *testing.T) {
	t.Parallel()

	doer := &pagedDoer{pages: [][]any{
		{map[string]any{"id": "1", "type": "bug"}, map[string]any{"id": "2"}},
		{map[string]any{"id": "3"}},
	}}
	req := session.Request{Method: "get", Endpoint: "things", Params: map[string]string{collection.PageParam: "1"}}
	first, err := collection.New(doer, req, pageResponse(doer.pages, 1), testSpec, "", func(e *entity.Entity) *entity.Entity { return e })
	require.NoError(t, err)

	items, err := collect(context.Background(), first, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Zero(t, doer.calls)

	items, err = collect(context.Background(), first, true)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 1, doer.calls)

	summary := summarize(first, items)
	assert.Equal(t, "offset", summary.Mode)
	assert.Equal(t, 2, summary.TotalPages)
	assert.Equal(t, map[string]any{"id": "1", "type": "bug"}, summary.Items[0], "items should render with wire names")
}

func TestRawCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/myself" || r.Header.Get("Authorization") != "OAuth secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"me","uid":7}`))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"raw", "get", "myself",
		"--token", "secret",
		"--org-id", "1",
		"--host", u.Host,
		"--schema", "http",
		"--output", "json",
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		if client != nil {
			_ = client.Close()
		}
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var got rawResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, srv.URL+"/v2/myself", got.URL)
	assert.Equal(t, map[string]any{"login": "me", "uid": float64(7)}, got.Body)
}
