package realtime

import (
	"encoding/json"
	"errors"

	"github.com/dyluth/cantas/pkg/board"
)

// Frame is an inbound event. ID correlates the acknowledgement and is echoed
// verbatim; frames without an ID are not acknowledged.
type Frame struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Name   string          `json:"name"`
	Args   []any           `json:"args,omitempty"`
	Kwargs map[string]any  `json:"kwargs,omitempty"`
}

// Error codes carried by failed acknowledgements.
const (
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

// ErrorBody describes a failed event.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ackFrame struct {
	Type   string          `json:"type"`
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result"`
}

type errorFrame struct {
	Type  string          `json:"type"`
	ID    json.RawMessage `json:"id,omitempty"`
	Error ErrorBody       `json:"error"`
}

// EventFrame is an outbound broadcast.
type EventFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

func newEventFrame(channel string, payload any) EventFrame {
	return EventFrame{Type: "event", Channel: channel, Payload: payload}
}

// errorCode maps a handler error to its acknowledgement code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, board.ErrValidation), errors.Is(err, board.ErrUnsupported):
		return CodeValidation
	case errors.Is(err, board.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, board.ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
