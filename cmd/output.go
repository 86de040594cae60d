package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kalverra/tracker-client/collection"
	"github.com/kalverra/tracker-client/entity"
)

// encoded is implemented by every facade entity through the embedded
// *entity.Entity.
type encoded interface {
	Encode(useWireNames bool) map[string]any
}

var _ encoded = (*entity.Entity)(nil)

// render writes v in the configured output format.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// wire converts entities into their wire-named payloads for rendering.
func wire[T encoded](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Encode(true))
	}
	return out
}

// pageSummary is rendered alongside a page of a collection.
type pageSummary struct {
	Mode          string           `json:"mode"                    yaml:"mode"`
	Page          int              `json:"page"                    yaml:"page"`
	TotalPages    int              `json:"totalPages"              yaml:"totalPages"`
	TotalEntities int              `json:"totalEntities,omitempty" yaml:"totalEntities,omitempty"`
	Items         []map[string]any `json:"items"                   yaml:"items"`
}

func summarize[T encoded](c *collection.Collection[T], items []T) pageSummary {
	return pageSummary{
		Mode:          c.Mode().String(),
		Page:          c.Page(),
		TotalPages:    c.TotalPages(),
		TotalEntities: c.TotalEntities(),
		Items:         wire(items),
	}
}

// collect returns the items of c, and of every following page when all is
// set.
func collect[T any](ctx context.Context, c *collection.Collection[T], all bool) ([]T, error) {
	items := c.Items()
	for all && c.HasNext() {
		next, err := c.LoadNext(ctx)
		if err != nil {
			return nil, err
		}
		c = next
		items = append(items, c.Items()...)
	}
	return items, nil
}
