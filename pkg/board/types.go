package board

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"
)

// EntityType is a named schema: an ordered set of field descriptors.
// Every document of a non-embedded type also carries an implicit identifier,
// serialized as "_id".
type EntityType struct {
	Name   string
	Fields []Field

	// CRUD marks the type as exposed through the create/read/update/delete/patch event surface.
	CRUD bool

	// Embedded marks a nested value type with no identity of its own.
	Embedded bool

	index map[string]int
}

// WireName is the lowercased type name used in event names and broadcast channels.
func (t *EntityType) WireName() string {
	return strings.ToLower(t.Name)
}

// Field returns the descriptor for the named field.
func (t *EntityType) Field(name string) (Field, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[name]
	if !ok {
		return Field{}, false
	}
	return t.Fields[i], true
}

func (t *EntityType) buildIndex() {
	t.index = make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		t.index[f.Name] = i
	}
}

// Catalog holds the explicitly registered entity types of an application.
// Register every type, then call Validate once before use. A validated catalog
// is read-only and safe for concurrent use.
type Catalog struct {
	types map[string]*EntityType
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]*EntityType)}
}

// Register adds an entity type. Names must be unique and non-empty.
func (c *Catalog) Register(t *EntityType) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("entity type name cannot be empty")
	}
	if _, exists := c.types[t.Name]; exists {
		return fmt.Errorf("entity type %q already registered", t.Name)
	}
	if t.CRUD && t.Embedded {
		return fmt.Errorf("entity type %q: embedded types cannot be CRUD-capable", t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity type %q: field name cannot be empty", t.Name)
		}
		if f.Name == IDKey || f.Name == TypeKey {
			return fmt.Errorf("entity type %q: field name %q is reserved", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity type %q: duplicate field %q", t.Name, f.Name)
		}
		seen[f.Name] = true
	}
	t.buildIndex()
	c.types[t.Name] = t
	c.order = append(c.order, t.Name)
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(t *EntityType) {
	if err := c.Register(t); err != nil {
		panic(err)
	}
}

// Validate resolves every reference and embedded target against the catalog.
func (c *Catalog) Validate() error {
	for _, name := range c.order {
		t := c.types[name]
		for i := range t.Fields {
			if err := c.resolve(t, &t.Fields[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Catalog) resolve(owner *EntityType, f *Field) error {
	switch f.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindMap, KindTimestamp:
		return nil
	case KindReference, KindEmbedded:
		target, ok := c.types[f.Target]
		if !ok {
			return fmt.Errorf("entity type %q field %q: unknown target type %q", owner.Name, f.Name, f.Target)
		}
		if f.Kind == KindReference && target.Embedded {
			return fmt.Errorf("entity type %q field %q: cannot reference embedded type %q", owner.Name, f.Name, f.Target)
		}
		if f.Kind == KindEmbedded && !target.Embedded {
			return fmt.Errorf("entity type %q field %q: %q is not an embedded type", owner.Name, f.Name, f.Target)
		}
		f.target = target
		return nil
	case KindList:
		if f.Elem == nil {
			return fmt.Errorf("entity type %q field %q: list without element descriptor", owner.Name, f.Name)
		}
		if f.Elem.Kind == KindList {
			return fmt.Errorf("entity type %q field %q: nested lists are not supported", owner.Name, f.Name)
		}
		return c.resolve(owner, f.Elem)
	default:
		return fmt.Errorf("entity type %q field %q: unknown field kind %v", owner.Name, f.Name, f.Kind)
	}
}

// Type returns the registered type with the given name.
func (c *Catalog) Type(name string) (*EntityType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// MustType is like Type but panics when the type is not registered.
func (c *Catalog) MustType(name string) *EntityType {
	t, ok := c.types[name]
	if !ok {
		panic(fmt.Sprintf("entity type %q not registered", name))
	}
	return t
}

// Types returns every registered type in registration order.
func (c *Catalog) Types() []*EntityType {
	out := make([]*EntityType, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.types[name])
	}
	return out
}

// CRUDTypes returns the CRUD-capable types sorted by wire name.
func (c *Catalog) CRUDTypes() []*EntityType {
	var out []*EntityType
	for _, name := range c.order {
		if t := c.types[name]; t.CRUD {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WireName() < out[j].WireName() })
	return out
}

// Ref identifies one document of a given type. It is the in-memory value of a
// reference field.
type Ref struct {
	Type string
	ID   string
}

// Document is one persisted entity instance.
// Values holds typed field values keyed by field name:
//
//	string, int64, float64, bool, map[string]any (Map and Embedded kinds),
//	time.Time (Timestamp), Ref (Reference), []any (List), or nil.
type Document struct {
	Type   *EntityType
	ID     string
	Values map[string]any
}

// Get returns the raw value of a field.
func (d *Document) Get(name string) any {
	return d.Values[name]
}

// String returns a string field, or "" when unset.
func (d *Document) String(name string) string {
	s, _ := d.Values[name].(string)
	return s
}

// Bool returns a boolean field, or false when unset.
func (d *Document) Bool(name string) bool {
	b, _ := d.Values[name].(bool)
	return b
}

// Int returns an integer field, or 0 when unset.
func (d *Document) Int(name string) int64 {
	n, _ := d.Values[name].(int64)
	return n
}

// Time returns a timestamp field, or the zero time when unset.
func (d *Document) Time(name string) time.Time {
	t, _ := d.Values[name].(time.Time)
	return t
}

// RefID returns the identifier held by a reference field, or "" when null.
func (d *Document) RefID(name string) string {
	r, _ := d.Values[name].(Ref)
	return r.ID
}

// List returns a list field, or nil when unset.
func (d *Document) List(name string) []any {
	l, _ := d.Values[name].([]any)
	return l
}

// Clone returns a copy of the document whose values can be modified without
// affecting the original. Lists and maps are copied one level deep at each
// nesting level.
func (d *Document) Clone() *Document {
	values := make(map[string]any, len(d.Values))
	for k, v := range d.Values {
		values[k] = cloneValue(v)
	}
	return &Document{Type: d.Type, ID: d.ID, Values: values}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := maps.Clone(val)
		for k, e := range out {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Broadcast is a state-change notification to publish on a channel.
// Room optionally scopes it to the connections that joined a room (a board);
// Origin is the identifier of the connection that caused it.
type Broadcast struct {
	Channel string
	Payload any
	Room    string
	Origin  string
}

// CreateChannel returns the collection channel for a type: "/<type>:create".
func CreateChannel(t *EntityType) string {
	return fmt.Sprintf("/%s:create", t.WireName())
}

// InstanceChannel returns the per-instance channel for a verb: "/<type>/<id>:<verb>".
func InstanceChannel(t *EntityType, id, verb string) string {
	return fmt.Sprintf("/%s/%s:%s", t.WireName(), id, verb)
}
