package board

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// OrKey is the reserved filter key holding a list of alternative conjunctions.
const OrKey = "$or"

// InKey restricts a filter to a set of identifiers.
const InKey = "id__in"

// Query is an exact-match filter over one entity type.
// A document matches when every Where entry matches, at least one Or
// conjunction matches (if any are given) and its identifier is in IDs (if given).
type Query struct {
	Where   map[string]any
	Or      []map[string]any
	IDs     []string
	OrderBy string // field name, "-" prefix for descending
}

// Where returns a query matching every given field exactly.
func Where(fields map[string]any) Query {
	return Query{Where: fields}
}

// ParseQuery builds a query from inbound event keyword arguments.
// The reserved "$or" key must hold a list of mappings and "id__in" a list of ids.
func ParseQuery(kwargs map[string]any) (Query, error) {
	q := Query{Where: make(map[string]any, len(kwargs))}
	for k, v := range kwargs {
		switch k {
		case OrKey:
			alts, ok := v.([]any)
			if !ok {
				return Query{}, &ValidationError{Field: OrKey, Reason: "expected a list of conditions"}
			}
			for _, alt := range alts {
				m, ok := alt.(map[string]any)
				if !ok {
					return Query{}, &ValidationError{Field: OrKey, Reason: "expected a list of conditions"}
				}
				q.Or = append(q.Or, m)
			}
		case InKey:
			ids, ok := v.([]any)
			if !ok {
				return Query{}, &ValidationError{Field: InKey, Reason: "expected a list of ids"}
			}
			for _, id := range ids {
				s, ok := id.(string)
				if !ok {
					return Query{}, &ValidationError{Field: InKey, Reason: "expected a list of ids"}
				}
				q.IDs = append(q.IDs, s)
			}
			if q.IDs == nil {
				q.IDs = []string{}
			}
		default:
			q.Where[k] = v
		}
	}
	return q, nil
}

// Match reports whether doc satisfies the query.
// Filter keys that are not declared fields of the type are a ValidationError.
func (q Query) Match(doc *Document) (bool, error) {
	if q.IDs != nil && !containsString(q.IDs, doc.ID) {
		return false, nil
	}

	ok, err := matchAll(doc, q.Where)
	if err != nil || !ok {
		return false, err
	}

	if len(q.Or) == 0 {
		return true, nil
	}
	for _, alt := range q.Or {
		ok, err := matchAll(doc, alt)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchAll(doc *Document, conds map[string]any) (bool, error) {
	for k, v := range conds {
		ok, err := matchField(doc, k, v)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchField(doc *Document, key string, want any) (bool, error) {
	if key == IDKey || key == "id" {
		return doc.ID == refID(want), nil
	}

	f, ok := doc.Type.Field(key)
	if !ok {
		return false, invalid(doc.Type, key, "unknown filter field")
	}

	stored, err := encodeValue(f, doc.Values[key])
	if err != nil {
		return false, err
	}

	if f.Kind == KindList {
		if _, isList := asList(want); !isList {
			// A scalar filter on a list field matches when any element equals it.
			items, _ := stored.([]any)
			target := filterWire(*f.Elem, want)
			for _, item := range items {
				if wireEqual(item, target) {
					return true, nil
				}
			}
			return false, nil
		}
	}

	return wireEqual(stored, filterWire(f, want)), nil
}

// filterWire converts a filter value to the wire form it is compared against.
func filterWire(f Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Kind {
	case KindReference:
		return refID(v)
	case KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return NormalizeTime(t).Format(TimeLayout)
		}
		return v
	case KindList:
		items, ok := asList(v)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = filterWire(*f.Elem, item)
		}
		return out
	default:
		return v
	}
}

// refID extracts an identifier from an id string, a Ref, a document or a
// mapping carrying "_id" or "id".
func refID(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case Ref:
		return val.ID
	case *Document:
		if val == nil {
			return ""
		}
		return val.ID
	case map[string]any:
		if id, ok := val[IDKey].(string); ok {
			return id
		}
		if id, ok := val["id"].(string); ok {
			return id
		}
	}
	return ""
}

func asList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// wireEqual compares two wire values, treating all numeric types alike.
func wireEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeWire(a), normalizeWire(b))
}

func normalizeWire(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeWire(e)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeWire(e)
		}
		return out
	default:
		return v
	}
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// ResultSet is an ordered collection of documents of one entity type.
type ResultSet struct {
	Type *EntityType
	Docs []*Document
}

// Len returns the number of documents.
func (rs ResultSet) Len() int {
	return len(rs.Docs)
}

// Exists reports whether the set is non-empty.
func (rs ResultSet) Exists() bool {
	return len(rs.Docs) > 0
}

// First returns the first document, or nil for an empty set.
func (rs ResultSet) First() *Document {
	if len(rs.Docs) == 0 {
		return nil
	}
	return rs.Docs[0]
}

// IDs returns the identifiers of the documents in order.
func (rs ResultSet) IDs() []string {
	ids := make([]string, len(rs.Docs))
	for i, d := range rs.Docs {
		ids[i] = d.ID
	}
	return ids
}

// SortBy returns a copy of the set ordered by a field ("_id" sorts by identifier).
// Null values sort first in ascending order. The sort is stable.
func (rs ResultSet) SortBy(field string, desc bool) ResultSet {
	docs := make([]*Document, len(rs.Docs))
	copy(docs, rs.Docs)
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := sortKey(docs[i], field), sortKey(docs[j], field)
		if desc {
			return compareValues(b, a) < 0
		}
		return compareValues(a, b) < 0
	})
	return ResultSet{Type: rs.Type, Docs: docs}
}

// Order applies an OrderBy expression such as "title" or "-updated".
func (rs ResultSet) Order(orderBy string) ResultSet {
	if orderBy == "" {
		return rs
	}
	if strings.HasPrefix(orderBy, "-") {
		return rs.SortBy(orderBy[1:], true)
	}
	return rs.SortBy(orderBy, false)
}

func sortKey(doc *Document, field string) any {
	if field == IDKey || field == "id" {
		return doc.ID
	}
	if r, ok := doc.Values[field].(Ref); ok {
		return r.ID
	}
	return doc.Values[field]
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}

	af, aok := normalizeWire(a).(float64)
	bf, bok := normalizeWire(b).(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Union combines two result sets of the same type, dropping duplicate
// identifiers. The result holds every document of a, followed by the
// documents of b that a does not contain.
func Union(a, b ResultSet) (ResultSet, error) {
	t := a.Type
	if t == nil {
		t = b.Type
	}
	if a.Type != nil && b.Type != nil && a.Type.Name != b.Type.Name {
		return ResultSet{}, fmt.Errorf("cannot union %s with %s: %w", a.Type.Name, b.Type.Name, ErrTypeMismatch)
	}

	seen := make(map[string]bool, len(a.Docs)+len(b.Docs))
	docs := make([]*Document, 0, len(a.Docs)+len(b.Docs))
	for _, set := range [][]*Document{a.Docs, b.Docs} {
		for _, d := range set {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			docs = append(docs, d)
		}
	}

	return ResultSet{Type: t, Docs: docs}, nil
}
