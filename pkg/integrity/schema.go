// Package integrity checks parsed records against declarative schemas.
//
// Upstream pages change shape without notice. Validation is how a cached
// record that no longer matches what the API promises is detected and
// refetched, even before its TTL runs out. Validation is pure: no I/O, no
// side effects, and it only ever fails with ErrIntegrity.
package integrity

// Kind is the JSON type a schema node accepts.
type Kind int

const (
	// KindAny accepts every value, including null.
	KindAny Kind = iota
	KindObject
	KindArray
	KindString
	KindInt
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "any"
	}
}

// Schema describes the expected shape of a JSON value.
type Schema struct {
	Kind Kind

	// Fields lists the known members of an object.
	Fields []Field

	// Values, when set on an object, validates every member regardless of
	// its name (a map keyed by arbitrary strings).
	Values *Schema

	// Items validates every element of an array.
	Items *Schema

	// Enum restricts a string to a fixed set of values.
	Enum []string
}

// Field is one named member of an object schema.
type Field struct {
	Name     string
	Schema   Schema
	Required bool
	Nullable bool
}

// Object returns an object schema with the given fields.
func Object(fields ...Field) Schema {
	return Schema{Kind: KindObject, Fields: fields}
}

// MapOf returns an object schema whose members all match values.
func MapOf(values Schema) Schema {
	return Schema{Kind: KindObject, Values: &values}
}

// ArrayOf returns an array schema whose elements all match items.
func ArrayOf(items Schema) Schema {
	return Schema{Kind: KindArray, Items: &items}
}

// String returns a string schema, optionally restricted to enum values.
func String(enum ...string) Schema {
	return Schema{Kind: KindString, Enum: enum}
}

// Int returns an integer schema.
func Int() Schema { return Schema{Kind: KindInt} }

// Number returns a number schema.
func Number() Schema { return Schema{Kind: KindNumber} }

// Bool returns a boolean schema.
func Bool() Schema { return Schema{Kind: KindBool} }

// Any returns a schema accepting everything.
func Any() Schema { return Schema{Kind: KindAny} }

// Required declares a member that must be present and non-null.
func Required(name string, s Schema) Field {
	return Field{Name: name, Schema: s, Required: true}
}

// Optional declares a member that may be missing or null.
func Optional(name string, s Schema) Field {
	return Field{Name: name, Schema: s, Nullable: true}
}

// Nullable declares a member that must be present but may be null.
func Nullable(name string, s Schema) Field {
	return Field{Name: name, Schema: s, Required: true, Nullable: true}
}
