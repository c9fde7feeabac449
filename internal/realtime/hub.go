package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dyluth/cantas/pkg/board"
)

// Subscriber opens the broadcast stream of a Cantas instance.
// *board.Client implements it.
type Subscriber interface {
	SubscribeBroadcasts(ctx context.Context) (*board.Subscription, error)
}

// Hub fans broadcasts received from Redis Pub/Sub out to the local sessions
// that listen to them.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger.With("component", "hub"),
		sessions: make(map[*Session]struct{}),
	}
}

// Register adds a session to the fan-out set.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a session from the fan-out set.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomMembers returns the open sessions that joined room.
func (h *Hub) RoomMembers(room string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Session
	for s := range h.sessions {
		if s.State() == StateOpen && s.InRoom(room) {
			out = append(out, s)
		}
	}
	return out
}

// Deliver writes msg to every session that listens to it and returns the
// number of sessions written to.
func (h *Hub) Deliver(msg *board.Message) int {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		if s.wants(msg.Channel, msg.Room, msg.Origin) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	frame := newEventFrame(msg.Channel, json.RawMessage(msg.Payload))
	delivered := 0
	for _, s := range targets {
		if err := s.send(frame); err != nil {
			h.logger.Debug("dropping broadcast for closed connection", "conn", s.ID(), "channel", msg.Channel, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Listen subscribes to the instance broadcast stream and delivers messages
// until ctx is cancelled. It returns once the subscription is confirmed.
func (h *Hub) Listen(ctx context.Context, src Subscriber) error {
	sub, err := src.SubscribeBroadcasts(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to broadcasts: %w", err)
	}

	go func() {
		defer sub.Close()
		errs := sub.Errors()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Messages():
				if !ok {
					return
				}
				h.Deliver(msg)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				h.logger.Warn("broadcast stream error", "error", err)
			}
		}
	}()

	return nil
}
