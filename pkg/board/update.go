package board

import (
	"context"
	"time"
)

// Update applies a partial-update payload to doc and saves it.
//
// Each key naming a declared field is coerced according to its descriptor:
//   - Reference: an id string or a mapping carrying "_id" (or "id"); the target
//     document must exist.
//   - Embedded: a mapping coerced recursively against the embedded type.
//   - List: each element coerced against the element descriptor.
//   - Timestamp: a time.Time or an RFC 3339 string.
//   - Scalars: assigned as-is and checked at save time.
//
// Keys that do not name a declared field are ignored. Coercions are staged
// first: if any key fails, or the save fails, nothing is applied to doc and
// nothing is persisted. Only the patched fields and the auto-now-update
// timestamps are written, so concurrent patches of different fields both
// survive; doc is refreshed with the stored document. Updating a document
// that was deleted fails with a *NotFoundError.
func (r *Repository) Update(ctx context.Context, doc *Document, patch map[string]any) (*Document, error) {
	staged := make(map[string]any, len(patch))
	for key, raw := range patch {
		f, ok := doc.Type.Field(key)
		if !ok {
			continue
		}
		v, err := r.coerce(ctx, doc.Type, f, raw)
		if err != nil {
			return nil, err
		}
		staged[key] = v
	}

	next := doc.Clone()
	fields := make([]string, 0, len(staged))
	for key, v := range staged {
		next.Values[key] = v
		fields = append(fields, key)
	}
	if err := r.saveFields(ctx, next, fields); err != nil {
		return nil, err
	}

	doc.Values = next.Values
	return doc, nil
}

// coerce converts one inbound JSON value into the typed value of field f.
func (r *Repository) coerce(ctx context.Context, owner *EntityType, f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Kind {
	case KindReference:
		id := refID(raw)
		if id == "" {
			return nil, invalid(owner, f.Name, "expected a %s id or a mapping with %q", f.Target, IDKey)
		}
		if f.target == nil {
			return nil, invalid(owner, f.Name, "unresolved reference type %q", f.Target)
		}
		target, err := r.Get(ctx, f.target, id)
		if err != nil {
			return nil, err
		}
		return Ref{Type: f.Target, ID: target.ID}, nil

	case KindEmbedded:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, invalid(owner, f.Name, "expected a mapping for %s", f.Target)
		}
		if f.target == nil {
			return nil, invalid(owner, f.Name, "unresolved embedded type %q", f.Target)
		}
		out := make(map[string]any, len(f.target.Fields))
		for _, sub := range f.target.Fields {
			v, ok := m[sub.Name]
			if !ok || v == nil {
				out[sub.Name] = defaultValue(sub, NormalizeTime(r.now()))
				continue
			}
			cv, err := r.coerce(ctx, f.target, sub, v)
			if err != nil {
				return nil, err
			}
			out[sub.Name] = cv
		}
		return out, nil

	case KindList:
		items, ok := asList(raw)
		if !ok {
			return nil, invalid(owner, f.Name, "expected a list")
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := r.coerce(ctx, owner, *f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil

	case KindTimestamp:
		switch ts := raw.(type) {
		case time.Time:
			return NormalizeTime(ts), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, invalid(owner, f.Name, "invalid timestamp %q", ts)
			}
			return NormalizeTime(parsed), nil
		default:
			return nil, invalid(owner, f.Name, "expected a timestamp, got %T", raw)
		}

	default:
		return raw, nil
	}
}
