// Package watch streams the broadcasts of an instance to a terminal or a
// line-delimited JSON consumer.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/cantas/internal/filter"
	"github.com/dyluth/cantas/pkg/board"
)

// OutputFormat selects how broadcasts are written.
type OutputFormat string

const (
	// OutputFormatDefault is one human-readable line per broadcast.
	OutputFormatDefault OutputFormat = "default"
	// OutputFormatJSON is one JSON object per line.
	OutputFormatJSON OutputFormat = "json"
)

// Source subscribes to the broadcast stream. *board.Client implements it.
type Source interface {
	SubscribeBroadcasts(ctx context.Context) (*board.Subscription, error)
}

type formatter interface {
	format(msg *board.Message) error
}

// StreamActivity writes every broadcast matching criteria to w until ctx is
// cancelled or the subscription ends.
func StreamActivity(ctx context.Context, src Source, criteria filter.Criteria, format OutputFormat, w io.Writer) error {
	var f formatter
	switch format {
	case OutputFormatDefault, "":
		f = &defaultFormatter{writer: w, now: time.Now}
	case OutputFormatJSON:
		f = &jsonFormatter{encoder: json.NewEncoder(w)}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	sub, err := src.SubscribeBroadcasts(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			if !criteria.Matches(msg) {
				continue
			}
			if err := f.format(msg); err != nil {
				return fmt.Errorf("failed to write broadcast: %w", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "warning: %v\n", err)
		}
	}
}

type defaultFormatter struct {
	writer io.Writer
	now    func() time.Time
}

func (f *defaultFormatter) format(msg *board.Message) error {
	line := fmt.Sprintf("[%s] %s", f.now().Format("15:04:05"), msg.Channel)

	var payload map[string]any
	if json.Unmarshal(msg.Payload, &payload) == nil {
		if id, ok := payload[board.IDKey].(string); ok {
			line += " id=" + id
		}
		if title, ok := payload["title"].(string); ok && title != "" {
			line += fmt.Sprintf(" title=%q", title)
		}
	}
	if msg.Room != "" {
		line += " room=" + msg.Room
	}

	_, err := fmt.Fprintln(f.writer, line)
	return err
}

type jsonFormatter struct {
	encoder *json.Encoder
}

func (f *jsonFormatter) format(msg *board.Message) error {
	return f.encoder.Encode(msg)
}
