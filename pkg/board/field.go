package board

import "fmt"

// FieldKind identifies how a field's value is stored, serialized and coerced.
type FieldKind int

const (
	// KindString is an opaque string scalar.
	KindString FieldKind = iota + 1

	// KindInt is an integer scalar, held as int64.
	KindInt

	// KindFloat is a floating point scalar, held as float64.
	KindFloat

	// KindBool is a boolean scalar.
	KindBool

	// KindMap is an opaque JSON object held as map[string]any.
	KindMap

	// KindTimestamp is a point in time, held as time.Time (UTC, microsecond precision).
	KindTimestamp

	// KindReference holds the identifier of one document of the target type, held as Ref.
	KindReference

	// KindEmbedded holds a nested value of an embedded type, held as map[string]any.
	KindEmbedded

	// KindList holds an ordered sequence of Elem values, held as []any.
	KindList
)

// String returns the descriptor name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindTimestamp:
		return "timestamp"
	case KindReference:
		return "reference"
	case KindEmbedded:
		return "embedded"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field describes one declared field of an EntityType.
// Fields are plain values built with the constructors below and refined with
// the chainable modifiers (Require, WithDefault, AutoCreate, AutoUpdate).
type Field struct {
	Name     string
	Kind     FieldKind
	Target   string // referenced or embedded type name (KindReference, KindEmbedded)
	Elem     *Field // element descriptor (KindList)
	Required bool

	// Default is copied into new documents when the field is not supplied.
	Default any

	// AutoNow stamps the field with the creation time when not supplied.
	AutoNow bool

	// AutoNowUpdate refreshes the field on every save. Implies AutoNow.
	AutoNowUpdate bool

	// target is resolved by Catalog.Validate.
	target *EntityType
}

// String declares a string field.
func String(name string) Field { return Field{Name: name, Kind: KindString} }

// Int declares an integer field.
func Int(name string) Field { return Field{Name: name, Kind: KindInt} }

// Float declares a float field.
func Float(name string) Field { return Field{Name: name, Kind: KindFloat} }

// Bool declares a boolean field.
func Bool(name string) Field { return Field{Name: name, Kind: KindBool} }

// Map declares an opaque JSON object field. New documents default to an empty map.
func Map(name string) Field { return Field{Name: name, Kind: KindMap} }

// Timestamp declares a timestamp field.
func Timestamp(name string) Field { return Field{Name: name, Kind: KindTimestamp} }

// Reference declares a field referencing one document of the target type.
func Reference(name, target string) Field {
	return Field{Name: name, Kind: KindReference, Target: target}
}

// Embedded declares a field holding a nested value of the embedded target type.
func Embedded(name, target string) Field {
	return Field{Name: name, Kind: KindEmbedded, Target: target}
}

// List declares an ordered list whose elements are described by elem.
// The element's name is ignored. New documents default to an empty list.
func List(name string, elem Field) Field {
	elem.Name = name + "[]"
	return Field{Name: name, Kind: KindList, Elem: &elem}
}

// Require marks the field as required: it must be non-null at save time.
func (f Field) Require() Field {
	f.Required = true
	return f
}

// WithDefault sets the value copied into new documents when the field is not supplied.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

// AutoCreate stamps the field with the current time when a document is created.
func (f Field) AutoCreate() Field {
	f.AutoNow = true
	return f
}

// AutoUpdate stamps the field at creation and refreshes it on every save.
func (f Field) AutoUpdate() Field {
	f.AutoNow = true
	f.AutoNowUpdate = true
	return f
}

// TargetType returns the resolved referenced or embedded type.
// It is nil until the owning catalog has been validated.
func (f Field) TargetType() *EntityType {
	return f.target
}
