// Package collection turns list responses into typed, navigable pages.
//
// The paging strategy is picked once, from the response headers, when a
// Collection is built:
//
//   - OffsetPaged when X-Total-Pages is present; pages are addressed with the
//     "page" query parameter.
//   - LinkPaged when a Link header carries a "first" or "next" relation.
//   - Unbounded otherwise.
//
// Navigating never changes a Collection; it returns a new one.
package collection

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/tomnomnom/linkheader"

	"github.com/kalverra/tracker-client/apierr"
	"github.com/kalverra/tracker-client/entity"
	"github.com/kalverra/tracker-client/session"
)

// Header and parameter names consumed by the pagination strategies.
const (
	HeaderTotalPages = "X-Total-Pages"
	HeaderTotalCount = "X-Total-Count"
	HeaderLink       = "Link"
	PageParam        = "page"
)

// Mode is the paging strategy of a Collection.
type Mode int

const (
	Unbounded Mode = iota
	OffsetPaged
	LinkPaged
)

func (m Mode) String() string {
	switch m {
	case OffsetPaged:
		return "offset"
	case LinkPaged:
		return "link"
	default:
		return "unbounded"
	}
}

// Doer performs a request. *session.Session satisfies it.
type Doer interface {
	Do(ctx context.Context, req session.Request) (*session.Response, error)
}

// Collection is one page of entities plus what is needed to reach the
// neighbouring pages.
type Collection[T any] struct {
	doer   Doer
	req    session.Request
	spec   entity.Spec
	parent string
	wrap   func(*entity.Entity) T

	items []T
	mode  Mode

	page          int
	totalPages    int
	totalEntities int

	links map[string]string
}

// New builds a Collection from resp, the result of req. Every element of the
// body is decoded with spec, given parent as its parent association and
// passed through wrap.
func New[T any](
	doer Doer,
	req session.Request,
	resp *session.Response,
	spec entity.Spec,
	parent string,
	wrap func(*entity.Entity) T,
) (*Collection[T], error) {
	elems, ok := resp.Body.([]any)
	if !ok && resp.Body != nil {
		return nil, &apierr.Error{
			Kind:       apierr.KindIncorrectData,
			Message:    fmt.Sprintf("%s list: body is %T, want a JSON array", spec.Resource, resp.Body),
			StatusCode: resp.StatusCode,
			Reason:     resp.Reason,
			URL:        resp.URL,
			Header:     resp.Header,
			Resource:   spec.Resource,
		}
	}

	items := make([]T, 0, len(elems))
	for _, el := range elems {
		e, err := entity.FromBody(spec, el, parent)
		if err != nil {
			return nil, err
		}
		items = append(items, wrap(e))
	}

	c := &Collection[T]{
		doer:          doer,
		req:           req,
		spec:          spec,
		parent:        parent,
		wrap:          wrap,
		items:         items,
		totalEntities: headerInt(resp.Header, HeaderTotalCount),
	}
	c.selectMode(resp.Header)
	return c, nil
}

func (c *Collection[T]) selectMode(h http.Header) {
	if h.Get(HeaderTotalPages) != "" {
		c.mode = OffsetPaged
		c.totalPages = headerInt(h, HeaderTotalPages)
		c.page = 1
		if p, err := strconv.Atoi(c.req.Params[PageParam]); err == nil {
			c.page = p
		}
		return
	}

	links := ParseLinks(h)
	if links["first"] != "" || links["next"] != "" {
		c.mode = LinkPaged
		c.links = links
		return
	}

	c.mode = Unbounded
}

// Mode returns the paging strategy.
func (c *Collection[T]) Mode() Mode { return c.mode }

// Items returns the entities of this page.
func (c *Collection[T]) Items() []T { return slices.Clone(c.items) }

// Len returns the number of entities on this page.
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the i-th entity of this page.
func (c *Collection[T]) At(i int) T { return c.items[i] }

// All iterates over the entities of this page.
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return slices.All(c.items)
}

// Parent returns the parent association shared by every entity.
func (c *Collection[T]) Parent() string { return c.parent }

// Page returns the current page number in offset mode, 1 otherwise.
func (c *Collection[T]) Page() int {
	if c.mode == OffsetPaged {
		return c.page
	}
	return 1
}

// TotalPages returns the page count: the X-Total-Pages value in offset
// mode, 1 for unbounded collections and 0 (unknown) in link mode.
func (c *Collection[T]) TotalPages() int {
	switch c.mode {
	case OffsetPaged:
		return c.totalPages
	case Unbounded:
		return 1
	default:
		return 0
	}
}

// TotalEntities returns the X-Total-Count value, 0 when absent.
func (c *Collection[T]) TotalEntities() int { return c.totalEntities }

// Links returns the parsed Link relations in link mode.
func (c *Collection[T]) Links() map[string]string {
	return maps.Clone(c.links)
}

// HasNext reports whether there is a following page to load.
func (c *Collection[T]) HasNext() bool {
	switch c.mode {
	case OffsetPaged:
		return c.page < c.totalPages
	case LinkPaged:
		return c.links["next"] != ""
	default:
		return false
	}
}

// LoadNext fetches the following page.
func (c *Collection[T]) LoadNext(ctx context.Context) (*Collection[T], error) {
	switch c.mode {
	case OffsetPaged:
		return c.loadPage(ctx, c.page+1)
	case LinkPaged:
		return c.loadLink(ctx, "next")
	default:
		return nil, notAvailable()
	}
}

// LoadPrev fetches the preceding page. In link mode it follows a "prev"
// relation when the server sent one.
func (c *Collection[T]) LoadPrev(ctx context.Context) (*Collection[T], error) {
	switch c.mode {
	case OffsetPaged:
		return c.loadPage(ctx, c.page-1)
	case LinkPaged:
		return c.loadLink(ctx, "prev")
	default:
		return nil, notAvailable()
	}
}

// LoadFirst fetches the first page.
func (c *Collection[T]) LoadFirst(ctx context.Context) (*Collection[T], error) {
	switch c.mode {
	case OffsetPaged:
		return c.loadPage(ctx, 1)
	case LinkPaged:
		return c.loadLink(ctx, "first")
	default:
		return nil, notAvailable()
	}
}

func (c *Collection[T]) loadPage(ctx context.Context, page int) (*Collection[T], error) {
	if page < 1 || page > c.totalPages || page == c.page {
		return nil, apierr.PaginationProhibited(fmt.Sprintf(
			"page %d is out of range [1, %d] or already loaded (current %d)",
			page, c.totalPages, c.page,
		))
	}
	return c.fetch(ctx, c.req.WithParam(PageParam, strconv.Itoa(page)))
}

func (c *Collection[T]) loadLink(ctx context.Context, rel string) (*Collection[T], error) {
	url := c.links[rel]
	if url == "" {
		return nil, apierr.PaginationProhibited(fmt.Sprintf("no %q link in response", rel))
	}
	return c.fetch(ctx, c.req.WithURL(url))
}

func (c *Collection[T]) fetch(ctx context.Context, req session.Request) (*Collection[T], error) {
	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return New(c.doer, req, resp, c.spec, c.parent, c.wrap)
}

func notAvailable() error {
	return apierr.PaginationProhibited("pagination not available for this collection")
}

// ParseLinks maps every relation found in the Link header values of h to
// its URL. Entries without a URL or relation are dropped; when a relation
// repeats, the first URL wins.
func ParseLinks(h http.Header) map[string]string {
	out := map[string]string{}
	for _, l := range linkheader.ParseMultiple(h.Values(HeaderLink)) {
		if l.URL == "" {
			continue
		}
		for _, rel := range strings.Fields(l.Rel) {
			rel = strings.ToLower(strings.Trim(rel, `"'`))
			if rel == "" {
				continue
			}
			if _, seen := out[rel]; !seen {
				out[rel] = l.URL
			}
		}
	}
	return out
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
	if err != nil {
		return 0
	}
	return n
}
