// Package events builds the table of named real-time event handlers.
//
// Every CRUD-capable entity type contributes exactly five entries,
// "<type>:create", "<type>:read", "<type>:update", "<type>:delete" and
// "<type>:patch", where <type> is the lowercased type name. Handlers come from
// a generic handler set and may be replaced verb by verb with overrides;
// overrides never add or remove names.
package events

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/cantas/pkg/board"
)

// CRUD verbs.
const (
	VerbCreate = "create"
	VerbRead   = "read"
	VerbUpdate = "update"
	VerbDelete = "delete"
	VerbPatch  = "patch"
)

// Verbs lists the CRUD verbs in table order.
var Verbs = []string{VerbCreate, VerbRead, VerbUpdate, VerbDelete, VerbPatch}

// Conn is the per-connection state handed to handlers.
type Conn struct {
	ID   string
	User *board.Document
}

// Result is the outcome of a handler: the acknowledgement value returned to
// the caller and an optional broadcast to publish once the handler succeeded.
type Result struct {
	Ack       any
	Broadcast *board.Broadcast
}

// Handler processes one inbound event.
type Handler func(ctx context.Context, conn *Conn, args []any, kwargs map[string]any) (Result, error)

// HandlerSet holds one handler per CRUD verb.
type HandlerSet struct {
	Create Handler
	Read   Handler
	Update Handler
	Delete Handler
	Patch  Handler
}

func (hs HandlerSet) byVerb() map[string]Handler {
	return map[string]Handler{
		VerbCreate: hs.Create,
		VerbRead:   hs.Read,
		VerbUpdate: hs.Update,
		VerbDelete: hs.Delete,
		VerbPatch:  hs.Patch,
	}
}

// Provider returns the generic handler set of an entity type.
type Provider interface {
	Handlers(t *board.EntityType) HandlerSet
}

// Override replaces the handler of one verb of one entity type.
type Override struct {
	Type    string
	Verb    string
	Handler Handler
}

// Table maps event names to handlers. It is immutable once built.
type Table struct {
	handlers map[string]Handler
}

// EventName returns the table key of a verb of an entity type.
func EventName(t *board.EntityType, verb string) string {
	return t.WireName() + ":" + verb
}

// NewTable builds the event table for every CRUD-capable type of catalog.
// An override naming an unknown or non-CRUD type, or an unknown verb, is an error.
func NewTable(catalog *board.Catalog, provider Provider, overrides ...Override) (*Table, error) {
	table := &Table{handlers: make(map[string]Handler)}

	for _, t := range catalog.CRUDTypes() {
		for verb, h := range provider.Handlers(t).byVerb() {
			if h == nil {
				return nil, fmt.Errorf("entity type %s: no %s handler", t.Name, verb)
			}
			table.handlers[EventName(t, verb)] = h
		}
	}

	for _, o := range overrides {
		t, ok := catalog.Type(o.Type)
		if !ok || !t.CRUD {
			return nil, fmt.Errorf("override for %s.%s: %s is not a CRUD-capable type", o.Type, o.Verb, o.Type)
		}
		if !isVerb(o.Verb) {
			return nil, fmt.Errorf("override for %s.%s: unknown verb %q", o.Type, o.Verb, o.Verb)
		}
		if o.Handler == nil {
			return nil, fmt.Errorf("override for %s.%s: nil handler", o.Type, o.Verb)
		}
		table.handlers[EventName(t, o.Verb)] = o.Handler
	}

	return table, nil
}

func isVerb(s string) bool {
	for _, v := range Verbs {
		if v == s {
			return true
		}
	}
	return false
}

// Lookup returns the handler registered under name.
func (t *Table) Lookup(name string) (Handler, bool) {
	h, ok := t.handlers[name]
	return h, ok
}

// Names returns every event name in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered events.
func (t *Table) Len() int {
	return len(t.handlers)
}

// LooksLikeCRUD reports whether name has the "<type>:<verb>" shape of a table entry.
func LooksLikeCRUD(name string) bool {
	typeName, verb, ok := strings.Cut(name, ":")
	return ok && typeName != "" && isVerb(verb)
}
