package board

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// TimeLayout is the wire and storage format of timestamps.
// Timestamps are held in UTC and truncated to microsecond precision so that
// every stored value survives a format/parse round trip unchanged.
const TimeLayout = time.RFC3339Nano

// NormalizeTime converts t to the precision and location documents hold.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// encodeValue converts a typed field value to its wire form: timestamps become
// strings, references become identifier strings, embedded values become nested
// maps and lists are encoded element by element.
func encodeValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Kind {
	case KindTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("field %q: expected time.Time, got %T", f.Name, v)
		}
		return t.UTC().Format(TimeLayout), nil

	case KindReference:
		switch r := v.(type) {
		case Ref:
			return r.ID, nil
		case string:
			return r, nil
		default:
			return nil, fmt.Errorf("field %q: expected Ref, got %T", f.Name, v)
		}

	case KindEmbedded:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected map, got %T", f.Name, v)
		}
		if f.target == nil {
			return nil, fmt.Errorf("field %q: unresolved embedded type %q", f.Name, f.Target)
		}
		out := make(map[string]any, len(f.target.Fields))
		for _, sub := range f.target.Fields {
			enc, err := encodeValue(sub, m[sub.Name])
			if err != nil {
				return nil, err
			}
			out[sub.Name] = enc
		}
		return out, nil

	case KindList:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected list, got %T", f.Name, v)
		}
		out := make([]any, len(items))
		for i, item := range items {
			enc, err := encodeValue(*f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil

	default:
		return v, nil
	}
}

// decodeValue reverses encodeValue for a JSON-decoded wire value.
// References are not resolved; the caller receives a Ref carrying the stored identifier.
func decodeValue(f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected string, got %T", f.Name, raw)
		}
		return s, nil

	case KindInt:
		n, ok := raw.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("field %q: expected integer, got %v", f.Name, raw)
		}
		return int64(n), nil

	case KindFloat:
		n, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("field %q: expected number, got %T", f.Name, raw)
		}
		return n, nil

	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q: expected bool, got %T", f.Name, raw)
		}
		return b, nil

	case KindMap:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected object, got %T", f.Name, raw)
		}
		return m, nil

	case KindTimestamp:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected timestamp string, got %T", f.Name, raw)
		}
		t, err := time.Parse(TimeLayout, s)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid timestamp: %w", f.Name, err)
		}
		return NormalizeTime(t), nil

	case KindReference:
		id, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected reference id, got %T", f.Name, raw)
		}
		return Ref{Type: f.Target, ID: id}, nil

	case KindEmbedded:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected object, got %T", f.Name, raw)
		}
		if f.target == nil {
			return nil, fmt.Errorf("field %q: unresolved embedded type %q", f.Name, f.Target)
		}
		out := make(map[string]any, len(f.target.Fields))
		for _, sub := range f.target.Fields {
			dec, err := decodeValue(sub, m[sub.Name])
			if err != nil {
				return nil, err
			}
			out[sub.Name] = dec
		}
		return out, nil

	case KindList:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q: expected list, got %T", f.Name, raw)
		}
		out := make([]any, len(items))
		for i, item := range items {
			dec, err := decodeValue(*f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil

	default:
		return nil, fmt.Errorf("field %q: unknown field kind %v", f.Name, f.Kind)
	}
}

// DocumentToHash converts a document to a Redis hash map.
// Every declared field is stored as its JSON-encoded wire form. The identifier
// and the type discriminator are stored as plain strings.
func DocumentToHash(doc *Document) (map[string]interface{}, error) {
	if doc.Type == nil {
		return nil, fmt.Errorf("document has no entity type")
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%s document has no id", doc.Type.Name)
	}

	hash := make(map[string]interface{}, len(doc.Type.Fields)+2)
	hash[IDKey] = doc.ID
	hash[TypeKey] = doc.Type.Name

	for _, f := range doc.Type.Fields {
		wire, err := encodeValue(f, doc.Values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", doc.Type.Name, err)
		}
		data, err := json.Marshal(wire)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s.%s: %w", doc.Type.Name, f.Name, err)
		}
		hash[f.Name] = string(data)
	}

	return hash, nil
}

// HashToDocument converts a Redis hash map back to a document of type t.
// Fields absent from the hash (declared after the document was written) are null.
func HashToDocument(t *EntityType, hash map[string]string) (*Document, error) {
	if stored := hash[TypeKey]; stored != t.Name {
		return nil, fmt.Errorf("type discriminator %q does not match %q", stored, t.Name)
	}
	id := hash[IDKey]
	if id == "" {
		return nil, fmt.Errorf("%s hash has no id", t.Name)
	}

	doc := &Document{Type: t, ID: id, Values: make(map[string]any, len(t.Fields))}
	for _, f := range t.Fields {
		data, ok := hash[f.Name]
		if !ok {
			doc.Values[f.Name] = nil
			continue
		}
		var raw any
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s.%s: %w", t.Name, f.Name, err)
		}
		v, err := decodeValue(f, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t.Name, err)
		}
		doc.Values[f.Name] = v
	}

	return doc, nil
}
