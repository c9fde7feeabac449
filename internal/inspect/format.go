package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dyluth/cantas/pkg/board"
)

// summaryFields are tried in order for the SUMMARY column.
var summaryFields = []string{"title", "name", "username", "content"}

// FormatTable writes one row per document: short ID, summary, age and
// archived flag.
func FormatTable(w io.Writer, rs board.ResultSet, createdField string, now time.Time) error {
	if rs.Len() == 0 {
		_, err := fmt.Fprintf(w, "No %s documents found\n", rs.Type.Name)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Summary", "Age", "Archived"})
	for _, doc := range rs.Docs {
		age := "-"
		if createdField != "" {
			age = formatAge(now.Sub(doc.Time(createdField)))
		}
		if err := table.Append([]string{formatID(doc.ID), formatSummary(doc), age, formatArchived(doc)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	noun := "document"
	if rs.Len() != 1 {
		noun = "documents"
	}
	_, err := fmt.Fprintf(w, "\n%d %s %s found\n", rs.Len(), rs.Type.Name, noun)
	return err
}

// FormatJSONL writes one serialized document per line.
func FormatJSONL(w io.Writer, values []map[string]any) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates the identifier to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatSummary returns the first line of the first descriptive field, at
// most 40 characters, or "-".
func formatSummary(doc *board.Document) string {
	for _, name := range summaryFields {
		s := strings.TrimSpace(doc.String(name))
		if s == "" {
			continue
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		if len(s) > 40 {
			return s[:37] + "..."
		}
		return s
	}
	return "-"
}

func formatArchived(doc *board.Document) string {
	if _, ok := doc.Type.Field("isArchived"); !ok {
		return "-"
	}
	if doc.Bool("isArchived") {
		return "yes"
	}
	return "no"
}

// formatAge renders d as "42s ago", "5m ago", "3h ago" or "2d ago".
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
