package value

import (
	"fmt"
	"reflect"
	"sort"
)

// Visitor receives exactly one callback per dispatched node, chosen by kind.
// Expecting describes the shape the visitor wants; it appears in the error
// text when a node of an unhandled kind arrives. Embed VisitorBase and
// override only the kinds you care about.
type Visitor[T any] interface {
	Expecting() string
	VisitNull() (T, error)
	VisitBool(v bool) (T, error)
	VisitInt(v int64) (T, error)
	VisitFloat(v float64) (T, error)
	VisitString(v string) (T, error)
	VisitArray(seq *SeqAccess) (T, error)
	VisitObject(obj *MapAccess) (T, error)
}

// VisitorBase supplies the default behavior for every Visitor method: fail
// with an "unexpected <kind>" conversion error. Dispatch stamps the outer
// visitor's Expecting onto those errors, so embedders get accurate messages
// without overriding anything but the methods they handle.
type VisitorBase[T any] struct{}

func (VisitorBase[T]) Expecting() string { return "any value" }

func (VisitorBase[T]) VisitNull() (T, error)            { return unexpectedKind[T](KindNull) }
func (VisitorBase[T]) VisitBool(bool) (T, error)        { return unexpectedKind[T](KindBool) }
func (VisitorBase[T]) VisitInt(int64) (T, error)        { return unexpectedKind[T](KindInt) }
func (VisitorBase[T]) VisitFloat(float64) (T, error)    { return unexpectedKind[T](KindFloat) }
func (VisitorBase[T]) VisitString(string) (T, error)    { return unexpectedKind[T](KindString) }
func (VisitorBase[T]) VisitArray(*SeqAccess) (T, error) { return unexpectedKind[T](KindArray) }
func (VisitorBase[T]) VisitObject(*MapAccess) (T, error) {
	return unexpectedKind[T](KindObject)
}

func unexpectedKind[T any](k Kind) (T, error) {
	var zero T
	return zero, &ConversionError{Cause: fmt.Errorf("unexpected %s", k)}
}

// Dispatch routes the node to the visitor method matching its kind. This is
// the single kind switch of the package; extraction and schema decoding
// branch on kinds only through the accessors, never by re-implementing this.
// A returned ConversionError with an empty TypeName is completed with the
// visitor's Expecting description.
func Dispatch[T any](v Value, vis Visitor[T]) (T, error) {
	var (
		out T
		err error
	)
	switch v.kind {
	case KindNull:
		out, err = vis.VisitNull()
	case KindBool:
		out, err = vis.VisitBool(v.b)
	case KindInt:
		out, err = vis.VisitInt(v.i)
	case KindFloat:
		out, err = vis.VisitFloat(v.f)
	case KindString:
		out, err = vis.VisitString(v.s)
	case KindArray:
		out, err = vis.VisitArray(&SeqAccess{items: v.arr})
	case KindObject:
		out, err = vis.VisitObject(&MapAccess{fields: v.obj})
	default:
		return out, convErrf(vis.Expecting(), "unexpected kind %d", v.kind)
	}
	if ce, ok := err.(*ConversionError); ok && ce.TypeName == "" {
		complete := *ce
		complete.TypeName = vis.Expecting()
		return out, &complete
	}
	return out, err
}

// SeqAccess is the pull view over an Array node: elements are consumed
// sequentially without the caller materializing a typed collection first.
type SeqAccess struct {
	items []Value
	pos   int
}

// Next returns the next element, advancing the cursor.
func (s *SeqAccess) Next() (Value, bool) {
	if s.pos >= len(s.items) {
		return Value{}, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

// Position reports how many elements have been consumed.
func (s *SeqAccess) Position() int { return s.pos }

// Len reports the total number of elements.
func (s *SeqAccess) Len() int { return len(s.items) }

// Slice exposes the remaining backing elements read-only.
func (s *SeqAccess) Slice() []Value { return s.items[s.pos:] }

// NextElement pulls the next element and extracts it as T. The boolean
// reports whether an element was available.
func NextElement[T any](s *SeqAccess) (T, bool, error) {
	item, ok := s.Next()
	if !ok {
		var zero T
		return zero, false, nil
	}
	out, err := Extract[T](item)
	return out, true, err
}

// MapAccess is the pull view over an Object node.
type MapAccess struct {
	fields map[string]Value
}

// Get looks up a key.
func (m *MapAccess) Get(key string) (Value, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Has reports whether the key is present.
func (m *MapAccess) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// Keys returns the entry keys sorted for deterministic iteration.
func (m *MapAccess) Keys() []string {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of entries.
func (m *MapAccess) Len() int { return len(m.fields) }

// Map exposes the backing entries read-only.
func (m *MapAccess) Map() map[string]Value { return m.fields }

// ExtractVisitor funnels every visited node back through Extract[T], showing
// that the generic primitive conversions need nothing beyond dispatch. It
// also lets visitor-shaped call sites reuse declared-type extraction.
type ExtractVisitor[T any] struct{}

func (ExtractVisitor[T]) Expecting() string {
	return reflect.TypeFor[T]().String()
}

func (ExtractVisitor[T]) VisitNull() (T, error) {
	return Extract[T](Null())
}

func (ExtractVisitor[T]) VisitBool(v bool) (T, error) {
	return Extract[T](Bool(v))
}

func (ExtractVisitor[T]) VisitInt(v int64) (T, error) {
	return Extract[T](Int(v))
}

func (ExtractVisitor[T]) VisitFloat(v float64) (T, error) {
	return Extract[T](Float(v))
}

func (ExtractVisitor[T]) VisitString(v string) (T, error) {
	return Extract[T](String(v))
}

func (ExtractVisitor[T]) VisitArray(seq *SeqAccess) (T, error) {
	return Extract[T](Array(seq.Slice()...))
}

func (ExtractVisitor[T]) VisitObject(obj *MapAccess) (T, error) {
	return Extract[T](Object(obj.Map()))
}
