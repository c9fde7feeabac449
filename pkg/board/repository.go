package board

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract of the repository. *Client implements it.
type Store interface {
	Insert(ctx context.Context, doc *Document) error
	Patch(ctx context.Context, doc *Document, fields []string) (*Document, error)
	Fetch(ctx context.Context, t *EntityType, id string) (*Document, error)
	Scan(ctx context.Context, t *EntityType) ([]*Document, error)
	Remove(ctx context.Context, t *EntityType, id string) error
}

// Repository creates, reads, filters, saves and deletes documents on top of a Store.
// It owns identifier assignment, defaults, auto-now timestamps and save-time validation.
type Repository struct {
	store Store
	now   func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for auto-now timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository creates a repository over store.
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create builds a new document of type t from raw inbound values, assigns it
// a fresh identifier and persists it.
//
// Supplied values are coerced exactly as Update coerces them (references are
// resolved). Unknown keys, including any client-supplied "_id", are ignored.
// Fields not supplied get their default: the declared Default, the creation
// time for auto-now timestamps, an empty list or map, or null.
func (r *Repository) Create(ctx context.Context, t *EntityType, raw map[string]any) (*Document, error) {
	if t.Embedded {
		return nil, fmt.Errorf("cannot create embedded type %s: %w", t.Name, ErrUnsupported)
	}

	now := NormalizeTime(r.now())
	doc := &Document{Type: t, ID: uuid.NewString(), Values: make(map[string]any, len(t.Fields))}

	for _, f := range t.Fields {
		if v, ok := raw[f.Name]; ok && v != nil {
			cv, err := r.coerce(ctx, t, f, v)
			if err != nil {
				return nil, err
			}
			doc.Values[f.Name] = cv
			continue
		}
		doc.Values[f.Name] = defaultValue(f, now)
	}

	if err := r.insertAt(ctx, doc, now); err != nil {
		return nil, err
	}
	return doc, nil
}

func defaultValue(f Field, now time.Time) any {
	switch {
	case f.Default != nil:
		return cloneValue(f.Default)
	case f.Kind == KindTimestamp && f.AutoNow:
		return now
	case f.Kind == KindList:
		return []any{}
	case f.Kind == KindMap:
		return map[string]any{}
	default:
		return nil
	}
}

// Get returns the document of type t with the given identifier.
// Returns a *NotFoundError when it does not exist.
func (r *Repository) Get(ctx context.Context, t *EntityType, id string) (*Document, error) {
	if id == "" {
		return nil, &NotFoundError{Type: t.Name, ID: id}
	}
	return r.store.Fetch(ctx, t, id)
}

// Resolve loads the document a reference points to.
func (r *Repository) Resolve(ctx context.Context, t *EntityType, ref Ref) (*Document, error) {
	if ref.Type != t.Name {
		return nil, fmt.Errorf("reference to %s resolved as %s: %w", ref.Type, t.Name, ErrTypeMismatch)
	}
	return r.Get(ctx, t, ref.ID)
}

// All returns every document of type t in creation order.
func (r *Repository) All(ctx context.Context, t *EntityType) (ResultSet, error) {
	docs, err := r.store.Scan(ctx, t)
	if err != nil {
		return ResultSet{}, err
	}
	return ResultSet{Type: t, Docs: docs}, nil
}

// Filter returns the documents of type t matching q, in creation order unless
// q.OrderBy is set.
func (r *Repository) Filter(ctx context.Context, t *EntityType, q Query) (ResultSet, error) {
	all, err := r.All(ctx, t)
	if err != nil {
		return ResultSet{}, err
	}

	matched := make([]*Document, 0, len(all.Docs))
	for _, doc := range all.Docs {
		ok, err := q.Match(doc)
		if err != nil {
			return ResultSet{}, err
		}
		if ok {
			matched = append(matched, doc)
		}
	}

	return ResultSet{Type: t, Docs: matched}.Order(q.OrderBy), nil
}

// Count returns the number of documents of type t matching q.
func (r *Repository) Count(ctx context.Context, t *EntityType, q Query) (int, error) {
	rs, err := r.Filter(ctx, t, q)
	if err != nil {
		return 0, err
	}
	return rs.Len(), nil
}

// Exists reports whether any document of type t matches q.
func (r *Repository) Exists(ctx context.Context, t *EntityType, q Query) (bool, error) {
	rs, err := r.Filter(ctx, t, q)
	if err != nil {
		return false, err
	}
	return rs.Exists(), nil
}

// Save validates doc, refreshes its auto-now-update timestamps and writes
// every field of the stored document. Saving a document that was deleted
// fails with a *NotFoundError. On error neither doc nor the stored document
// is modified.
func (r *Repository) Save(ctx context.Context, doc *Document) error {
	return r.saveFields(ctx, doc, nil)
}

// saveFields validates doc and writes the named fields plus the
// auto-now-update timestamps. A nil fields list writes every field. doc then
// holds the stored document, including fields changed by other writers.
func (r *Repository) saveFields(ctx context.Context, doc *Document, fields []string) error {
	now := NormalizeTime(r.now())
	values, err := r.prepare(doc, now)
	if err != nil {
		return err
	}

	if fields == nil {
		fields = make([]string, 0, len(doc.Type.Fields))
		for _, f := range doc.Type.Fields {
			fields = append(fields, f.Name)
		}
	} else {
		for _, f := range doc.Type.Fields {
			if f.Kind == KindTimestamp && f.AutoNowUpdate {
				fields = append(fields, f.Name)
			}
		}
	}

	stored, err := r.store.Patch(ctx, &Document{Type: doc.Type, ID: doc.ID, Values: values}, fields)
	if err != nil {
		return err
	}

	doc.Values = stored.Values
	return nil
}

// insertAt validates a new document and writes it with its index entry.
func (r *Repository) insertAt(ctx context.Context, doc *Document, now time.Time) error {
	values, err := r.prepare(doc, now)
	if err != nil {
		return err
	}

	if err := r.store.Insert(ctx, &Document{Type: doc.Type, ID: doc.ID, Values: values}); err != nil {
		return err
	}

	doc.Values = values
	return nil
}

// prepare returns the canonical values of doc with its auto-now-update
// timestamps set to now.
func (r *Repository) prepare(doc *Document, now time.Time) (map[string]any, error) {
	values, err := normalizeDocument(doc.Type, doc.Values)
	if err != nil {
		return nil, err
	}
	for _, f := range doc.Type.Fields {
		if f.Kind == KindTimestamp && f.AutoNowUpdate {
			values[f.Name] = now
		}
	}
	return values, nil
}

// Delete removes doc from the store.
func (r *Repository) Delete(ctx context.Context, doc *Document) error {
	return r.store.Remove(ctx, doc.Type, doc.ID)
}

// normalizeDocument checks every declared field against its descriptor and
// returns the values in their canonical Go types.
func normalizeDocument(t *EntityType, values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		v := values[f.Name]
		if v == nil {
			if f.Required {
				return nil, invalid(t, f.Name, "field is required")
			}
			out[f.Name] = nil
			continue
		}
		nv, err := normalizeValue(t, f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = nv
	}
	return out, nil
}

func normalizeValue(t *EntityType, f Field, v any) (any, error) {
	switch f.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), nil
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}

	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case json.Number:
			if fl, err := n.Float64(); err == nil {
				return fl, nil
			}
		}

	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case KindMap:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}

	case KindTimestamp:
		switch ts := v.(type) {
		case time.Time:
			return NormalizeTime(ts), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err == nil {
				return NormalizeTime(parsed), nil
			}
		}

	case KindReference:
		if ref, ok := v.(Ref); ok && ref.ID != "" && ref.Type == f.Target {
			return ref, nil
		}

	case KindEmbedded:
		m, ok := v.(map[string]any)
		if ok && f.target != nil {
			return normalizeDocument(f.target, m)
		}

	case KindList:
		items, ok := asList(v)
		if !ok {
			break
		}
		out := make([]any, len(items))
		for i, item := range items {
			if item == nil {
				return nil, invalid(t, f.Name, "list elements cannot be null")
			}
			nv, err := normalizeValue(t, *f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	}

	return nil, invalid(t, f.Name, "expected %s, got %T", f.Kind, v)
}
