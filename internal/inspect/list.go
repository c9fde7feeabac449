// Package inspect lists and shows stored documents for the CLI.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

// OutputFormat specifies how to format the document list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with one summary row per document
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs serialized documents as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for listing.
// All filters are ANDed together.
type FilterCriteria struct {
	Where map[string]any // exact field matches, as in an event "read"
	Since time.Time      // creation time lower bound, zero = no filter
	Until time.Time      // creation time upper bound, zero = no filter
}

// LookupType finds a stored entity type by name, ignoring case, so both
// "Card" and "card" work on the command line.
func LookupType(name string) (*board.EntityType, error) {
	for _, t := range models.Catalog().Types() {
		if strings.EqualFold(t.Name, name) && !t.Embedded {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown entity type %q", name)
}

// CreatedField returns the creation timestamp field of t, or "".
func CreatedField(t *board.EntityType) string {
	for _, f := range t.Fields {
		if f.Kind == board.KindTimestamp && f.AutoNow && !f.AutoNowUpdate {
			return f.Name
		}
	}
	return ""
}

// List writes the documents of typeName matching filters to w, oldest first
// when the type records its creation time.
func List(ctx context.Context, svc *models.Service, typeName string, format OutputFormat, filters *FilterCriteria, w io.Writer, now time.Time) error {
	t, err := LookupType(typeName)
	if err != nil {
		return err
	}
	if filters == nil {
		filters = &FilterCriteria{}
	}

	rs, err := svc.Repository().Filter(ctx, t, board.Where(filters.Where))
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", t.Name, err)
	}

	created := CreatedField(t)
	if created != "" {
		kept := rs.Docs[:0:0]
		for _, doc := range rs.Docs {
			at := doc.Time(created)
			if !filters.Since.IsZero() && at.Before(filters.Since) {
				continue
			}
			if !filters.Until.IsZero() && at.After(filters.Until) {
				continue
			}
			kept = append(kept, doc)
		}
		rs = board.ResultSet{Type: t, Docs: kept}.SortBy(created, false)
	} else if !filters.Since.IsZero() || !filters.Until.IsZero() {
		return fmt.Errorf("%s does not record its creation time; --since and --until do not apply", t.Name)
	} else {
		rs = rs.SortBy(board.IDKey, false)
	}

	switch format {
	case OutputFormatDefault:
		return FormatTable(w, rs, created, now)
	case OutputFormatJSONL:
		values, err := svc.Values(ctx, rs)
		if err != nil {
			return err
		}
		return FormatJSONL(w, values)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Get writes the serialized document of typeName identified by id, or by a
// unique prefix of it, as indented JSON.
func Get(ctx context.Context, svc *models.Service, typeName, id string, w io.Writer) error {
	t, err := LookupType(typeName)
	if err != nil {
		return err
	}

	fullID, err := ResolveID(ctx, svc.Repository(), t, id)
	if err != nil {
		return err
	}

	doc, err := svc.Get(ctx, t.Name, fullID)
	if err != nil {
		return err
	}
	value, err := svc.Serialize(ctx, doc)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s to JSON: %w", t.Name, err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
