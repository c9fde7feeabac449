package realtime

import (
	"encoding/json"
	"sync"

	"github.com/dyluth/cantas/internal/events"
)

// State is the lifecycle state of a connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// peer serializes frame writes to one connection.
type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newPeer(encoder *json.Encoder) *peer {
	return &peer{encoder: encoder}
}

func (p *peer) writeFrame(frame any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Session is the server side of one realtime connection: the handler-facing
// connection state, the frame writer and the channels and rooms it listens to.
type Session struct {
	conn *events.Conn
	peer *peer

	mu       sync.Mutex
	state    State
	channels map[string]struct{}
	rooms    map[string]struct{}
}

func newSession(conn *events.Conn, p *peer) *Session {
	return &Session{
		conn:     conn,
		peer:     p,
		state:    StateConnecting,
		channels: make(map[string]struct{}),
		rooms:    make(map[string]struct{}),
	}
}

// Conn returns the connection state handed to event handlers.
func (s *Session) Conn() *events.Conn {
	return s.conn
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.conn.ID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Subscribe adds a broadcast channel to the session.
func (s *Session) Subscribe(channel string) {
	s.mu.Lock()
	s.channels[channel] = struct{}{}
	s.mu.Unlock()
}

// Unsubscribe removes a broadcast channel from the session.
func (s *Session) Unsubscribe(channel string) {
	s.mu.Lock()
	delete(s.channels, channel)
	s.mu.Unlock()
}

// Join adds the session to a room.
func (s *Session) Join(room string) {
	s.mu.Lock()
	s.rooms[room] = struct{}{}
	s.mu.Unlock()
}

// Leave removes the session from a room.
func (s *Session) Leave(room string) {
	s.mu.Lock()
	delete(s.rooms, room)
	s.mu.Unlock()
}

// InRoom reports whether the session joined room.
func (s *Session) InRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// wants reports whether a message on channel scoped to room, caused by the
// connection origin, should be delivered to this session.
func (s *Session) wants(channel, room, origin string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return false
	}
	if origin != "" && origin == s.conn.ID {
		return true
	}
	if _, ok := s.channels[channel]; ok {
		return true
	}
	if room == "" {
		return false
	}
	_, ok := s.rooms[room]
	return ok
}

func (s *Session) send(frame any) error {
	return s.peer.writeFrame(frame)
}
