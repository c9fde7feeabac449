package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dyluth/cantas/internal/events"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/pkg/board"
)

// Connection-level event names handled outside the event table.
const (
	EventJoinBoard   = "join-board"
	EventLeaveBoard  = "leave-board"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"

	// EventJoinedBoard is the event sent back to a connection that joined a board.
	EventJoinedBoard = "joined-board"
)

// Publisher publishes broadcasts to every node of the instance.
// *board.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, b board.Broadcast) error
}

// Boards answers the board questions of the connection-level handlers.
// *models.Service implements it.
type Boards interface {
	Get(ctx context.Context, typeName, id string) (*board.Document, error)
	IsBoardMember(ctx context.Context, userID, boardID string) (bool, error)
	Serialize(ctx context.Context, doc *board.Document) (map[string]any, error)
}

// StaticHandler handles a connection-level event and returns its acknowledgement.
type StaticHandler func(ctx context.Context, s *Session, args []any, kwargs map[string]any) (any, error)

// Dispatcher routes inbound frames to the event table or to the
// connection-level handlers, acknowledges them and publishes the broadcasts
// of successful handlers.
type Dispatcher struct {
	table     *events.Table
	publisher Publisher
	hub       *Hub
	boards    Boards
	room      func(board.Broadcast) string
	logger    *slog.Logger
	statics   map[string]StaticHandler
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithRoomFunc sets how the room of a broadcast is derived.
// The default scopes broadcasts to the board they concern.
func WithRoomFunc(fn func(board.Broadcast) string) DispatcherOption {
	return func(d *Dispatcher) { d.room = fn }
}

// NewDispatcher creates a dispatcher over table.
func NewDispatcher(table *events.Table, publisher Publisher, hub *Hub, boards Boards, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		table:     table,
		publisher: publisher,
		hub:       hub,
		boards:    boards,
		room:      models.BroadcastRoom,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	d.statics = map[string]StaticHandler{
		EventJoinBoard:   d.joinBoard,
		EventLeaveBoard:  d.leaveBoard,
		EventSubscribe:   d.subscribe,
		EventUnsubscribe: d.unsubscribe,
	}
	return d
}

// Dispatch handles one frame of s. Frames of a session must be dispatched
// sequentially.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, f Frame) {
	logger := d.logger.With("conn", s.ID(), "event", f.Name)
	kwargs := f.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	if h, ok := d.table.Lookup(f.Name); ok {
		res, err := h(ctx, s.Conn(), f.Args, kwargs)
		if err != nil {
			d.fail(s, f, err, logger)
			return
		}
		if res.Broadcast != nil {
			d.publish(ctx, s, *res.Broadcast, logger)
		}
		d.ack(s, f, res.Ack, logger)
		return
	}

	if h, ok := d.statics[f.Name]; ok {
		result, err := h(ctx, s, f.Args, kwargs)
		if err != nil {
			d.fail(s, f, err, logger)
			return
		}
		d.ack(s, f, result, logger)
		return
	}

	if events.LooksLikeCRUD(f.Name) {
		logger.Warn("event not handled", "error", fmt.Errorf("%s: %w", f.Name, board.ErrUnsupported))
	} else {
		logger.Info("unknown event")
	}
	d.ack(s, f, nil, logger)
}

func (d *Dispatcher) publish(ctx context.Context, s *Session, b board.Broadcast, logger *slog.Logger) {
	b.Origin = s.ID()
	if b.Room == "" && d.room != nil {
		b.Room = d.room(b)
	}
	if err := d.publisher.Publish(ctx, b); err != nil {
		logger.Error("failed to publish broadcast", "channel", b.Channel, "error", err)
	}
}

func (d *Dispatcher) ack(s *Session, f Frame, result any, logger *slog.Logger) {
	if len(f.ID) == 0 {
		return
	}
	if err := s.send(ackFrame{Type: "ack", ID: f.ID, Result: result}); err != nil {
		logger.Debug("failed to write ack", "error", err)
	}
}

func (d *Dispatcher) fail(s *Session, f Frame, err error, logger *slog.Logger) {
	code := errorCode(err)
	if code == CodeInternal {
		logger.Error("event failed", "error", err)
	} else {
		logger.Info("event rejected", "code", code, "error", err)
	}
	if len(f.ID) == 0 {
		return
	}
	if werr := s.send(errorFrame{Type: "ack", ID: f.ID, Error: ErrorBody{Code: code, Message: err.Error()}}); werr != nil {
		logger.Debug("failed to write ack", "error", werr)
	}
}

// joinBoard adds the connection to the room of a member or public board and
// answers with the board's current visitors.
func (d *Dispatcher) joinBoard(ctx context.Context, s *Session, args []any, kwargs map[string]any) (any, error) {
	user := s.Conn().User
	if user == nil {
		return nil, fmt.Errorf("%s: %w", EventJoinBoard, board.ErrUnauthorized)
	}
	boardID := stringArg(args, kwargs, "boardId")
	if boardID == "" {
		return nil, fmt.Errorf("%s: missing boardId: %w", EventJoinBoard, board.ErrValidation)
	}

	b, err := d.boards.Get(ctx, models.Board, boardID)
	if err != nil {
		return nil, err
	}
	member, err := d.boards.IsBoardMember(ctx, user.ID, boardID)
	if err != nil {
		return nil, err
	}
	if !member && !b.Bool("isPublic") {
		return nil, fmt.Errorf("%s: board %s is private: %w", EventJoinBoard, boardID, board.ErrUnauthorized)
	}

	room := models.BoardRoom(boardID)
	s.Join(room)

	visitors, err := d.visitors(ctx, room)
	if err != nil {
		return nil, err
	}
	message := "notMember"
	if member {
		message = "isMember"
	}
	payload := map[string]any{"ok": 0, "visitors": visitors, "message": message}

	if err := s.send(newEventFrame(EventJoinedBoard, payload)); err != nil {
		d.logger.Debug("failed to write joined-board", "conn", s.ID(), "error", err)
	}
	return payload, nil
}

// visitors serializes the distinct users connected to room on this node.
func (d *Dispatcher) visitors(ctx context.Context, room string) ([]map[string]any, error) {
	seen := make(map[string]bool)
	out := []map[string]any{}
	for _, member := range d.hub.RoomMembers(room) {
		u := member.Conn().User
		if u == nil || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		m, err := d.boards.Serialize(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (d *Dispatcher) leaveBoard(_ context.Context, s *Session, args []any, kwargs map[string]any) (any, error) {
	boardID := stringArg(args, kwargs, "boardId")
	if boardID == "" {
		return nil, fmt.Errorf("%s: missing boardId: %w", EventLeaveBoard, board.ErrValidation)
	}
	s.Leave(models.BoardRoom(boardID))
	return true, nil
}

func (d *Dispatcher) subscribe(_ context.Context, s *Session, args []any, kwargs map[string]any) (any, error) {
	channel := stringArg(args, kwargs, "channel")
	if channel == "" {
		return nil, fmt.Errorf("%s: missing channel: %w", EventSubscribe, board.ErrValidation)
	}
	s.Subscribe(channel)
	return true, nil
}

func (d *Dispatcher) unsubscribe(_ context.Context, s *Session, args []any, kwargs map[string]any) (any, error) {
	channel := stringArg(args, kwargs, "channel")
	if channel == "" {
		return nil, fmt.Errorf("%s: missing channel: %w", EventUnsubscribe, board.ErrValidation)
	}
	s.Unsubscribe(channel)
	return true, nil
}

// stringArg returns kwargs[key], or the first positional argument when it is
// a string or a mapping holding key.
func stringArg(args []any, kwargs map[string]any, key string) string {
	if v, ok := kwargs[key].(string); ok {
		return v
	}
	if len(args) == 0 {
		return ""
	}
	switch a := args[0].(type) {
	case string:
		return a
	case map[string]any:
		v, _ := a[key].(string)
		return v
	}
	return ""
}
