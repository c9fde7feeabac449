package board

import (
	"context"
	"fmt"
)

// Reader is the read side of the document store used while serializing.
type Reader interface {
	Get(ctx context.Context, t *EntityType, id string) (*Document, error)
	Filter(ctx context.Context, t *EntityType, q Query) (ResultSet, error)
}

// Inliner decorates the base wire form of a document. It may add keys or
// replace reference identifiers by the serialized referenced document.
type Inliner func(ctx context.Context, s *Serializer, doc *Document, out map[string]any) error

// Serializer maps documents to their transport form.
// The base form has one entry per declared field plus "_id"; per-type inliners
// are applied on top of it. Serialization never modifies the document.
type Serializer struct {
	reader   Reader
	inliners map[string][]Inliner
}

// NewSerializer creates a serializer that resolves references through reader.
func NewSerializer(reader Reader) *Serializer {
	return &Serializer{reader: reader, inliners: make(map[string][]Inliner)}
}

// Inline registers an inliner for the named type. Inliners run in registration order.
// Register all inliners before serializing concurrently.
func (s *Serializer) Inline(typeName string, fn Inliner) {
	s.inliners[typeName] = append(s.inliners[typeName], fn)
}

// Reader returns the store the serializer resolves references through.
func (s *Serializer) Reader() Reader {
	return s.reader
}

// Base returns the wire form of doc without any inlining.
func (s *Serializer) Base(doc *Document) (map[string]any, error) {
	out := make(map[string]any, len(doc.Type.Fields)+1)
	for _, f := range doc.Type.Fields {
		wire, err := encodeValue(f, doc.Values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s %s: %w", doc.Type.Name, doc.ID, err)
		}
		out[f.Name] = wire
	}
	out[IDKey] = doc.ID
	return out, nil
}

// Serialize returns the wire form of doc with the type's inliners applied.
func (s *Serializer) Serialize(ctx context.Context, doc *Document) (map[string]any, error) {
	out, err := s.Base(doc)
	if err != nil {
		return nil, err
	}
	for _, fn := range s.inliners[doc.Type.Name] {
		if err := fn(ctx, s, doc, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Values serializes every document of a result set, preserving its order.
// An empty set yields an empty, non-nil slice.
func (s *Serializer) Values(ctx context.Context, rs ResultSet) ([]map[string]any, error) {
	out := make([]map[string]any, 0, rs.Len())
	for _, doc := range rs.Docs {
		m, err := s.Serialize(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Dereference loads the document held by a reference field of doc.
// It returns (nil, nil) for a null reference and a NotFoundError for a dangling one.
func (s *Serializer) Dereference(ctx context.Context, doc *Document, field string) (*Document, error) {
	f, ok := doc.Type.Field(field)
	if !ok || f.Kind != KindReference {
		return nil, fmt.Errorf("%s.%s is not a reference field", doc.Type.Name, field)
	}
	id := doc.RefID(field)
	if id == "" {
		return nil, nil
	}
	if f.target == nil {
		return nil, fmt.Errorf("%s.%s: unresolved reference type %q", doc.Type.Name, field, f.Target)
	}
	return s.reader.Get(ctx, f.target, id)
}

// InlineReference replaces out[field] by the serialized form of the referenced
// document. A null reference is left as null.
func (s *Serializer) InlineReference(ctx context.Context, doc *Document, field string, out map[string]any) error {
	ref, err := s.Dereference(ctx, doc, field)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}
	m, err := s.Serialize(ctx, ref)
	if err != nil {
		return err
	}
	out[field] = m
	return nil
}
