package value

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Enums in this package are Go interface types with a registered set of
// concrete variants, resolved either through a discriminator field (tagged)
// or by structural probing in registration order (untagged). Registration is
// an explicit table populated at process start, typically from init or early
// in main:
//
//	value.RegisterTagged[Backend]("type",
//		value.VariantOf[Postgres]("postgresql"),
//		value.VariantOf[Sqlite](),
//	)
//
// Variant shapes mirror the three classic enum arms: a struct with fields
// decodes its fields, an empty struct is a bare marker, and any non-struct
// type decodes a single inner value.

type variantClass uint8

const (
	variantRecord variantClass = iota
	variantUnit
	variantSingle
)

type variantSchema struct {
	name  string
	typ   reflect.Type
	class variantClass
}

type enumSchema struct {
	typ      reflect.Type
	tagField string // empty for untagged
	variants []variantSchema
}

var enums sync.Map // reflect.Type -> *enumSchema

// Variant pairs a concrete type with the key name that selects it.
type Variant struct {
	name string
	typ  reflect.Type
}

// VariantOf builds a Variant for T. The selection name defaults to T's type
// identifier; pass a rename to override it.
func VariantOf[T any](rename ...string) Variant {
	t := reflect.TypeFor[T]()
	name := t.Name()
	if len(rename) > 0 && rename[0] != "" {
		name = rename[0]
	}
	if name == "" {
		panic(fmt.Sprintf("value: variant type %s needs an explicit name", t))
	}
	return Variant{name: name, typ: t}
}

// RegisterTagged declares the variant set of interface type E, selected by
// reading the tagField discriminator as a string from the input object. The
// matched variant decodes from the same object; the discriminator key itself
// is simply never read by the variant body. Registering E again replaces the
// previous set.
func RegisterTagged[E any](tagField string, variants ...Variant) {
	if tagField == "" {
		panic("value: tagged enums need a discriminator field name")
	}
	register[E](tagField, variants)
}

// RegisterUntagged declares the variant set of interface type E, probed
// strictly in the order given: a record variant matches an object held under
// its name, a single-value variant matches when its name's value decodes as
// the inner type, and a unit variant matches on bare key presence.
func RegisterUntagged[E any](variants ...Variant) {
	register[E]("", variants)
}

func register[E any](tagField string, variants []Variant) {
	e := reflect.TypeFor[E]()
	if e.Kind() != reflect.Interface {
		panic(fmt.Sprintf("value: enum type %s is not an interface", e))
	}
	if len(variants) == 0 {
		panic(fmt.Sprintf("value: enum %s needs at least one variant", e))
	}
	schema := &enumSchema{typ: e, tagField: tagField}
	seen := map[string]bool{}
	for _, v := range variants {
		if seen[v.name] {
			panic(fmt.Sprintf("value: enum %s declares variant %q twice", e, v.name))
		}
		seen[v.name] = true
		if !v.typ.Implements(e) && !reflect.PointerTo(v.typ).Implements(e) {
			panic(fmt.Sprintf("value: variant %s does not implement %s", v.typ, e))
		}
		schema.variants = append(schema.variants, variantSchema{
			name:  v.name,
			typ:   v.typ,
			class: classOf(v.typ),
		})
	}
	enums.Store(e, schema)
}

func classOf(t reflect.Type) variantClass {
	if t.Kind() != reflect.Struct {
		return variantSingle
	}
	if t.NumField() == 0 {
		return variantUnit
	}
	return variantRecord
}

// enumDecoder resolves the schema at decode time, so registration order and
// first-use order are independent.
func enumDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		cached, ok := enums.Load(t)
		if !ok {
			return fmt.Errorf("cannot decode into interface %s: no variants registered", name)
		}
		return cached.(*enumSchema).decode(v, dst)
	}
}

func (s *enumSchema) decode(v Value, dst reflect.Value) error {
	obj, ok := v.AsObject()
	if !ok {
		return convErrf(s.typ.String(), "expected object, found %s", v.Kind())
	}
	if s.tagField != "" {
		return s.decodeTagged(v, obj, dst)
	}
	return s.decodeUntagged(obj, dst)
}

func (s *enumSchema) decodeTagged(v Value, obj map[string]Value, dst reflect.Value) error {
	tagVal, present := obj[s.tagField]
	tag, isString := tagVal.AsString()
	if !present || !isString {
		return &ConversionError{
			Key:      s.tagField,
			TypeName: s.typ.String(),
			Cause:    errors.New("missing or invalid tag field"),
		}
	}
	for i := range s.variants {
		va := &s.variants[i]
		if va.name != tag {
			continue
		}
		out := reflect.New(va.typ).Elem()
		if err := decoderFor(va.typ)(v, out); err != nil {
			return err
		}
		setVariant(dst, out)
		return nil
	}
	return convErrf(s.typ.String(), "unknown variant: %s", tag)
}

// decodeUntagged probes variants in order. A record variant's inner decode
// failure is a hard error; a single-value variant's failure just moves the
// probe along. On full mismatch the error is deliberately generic: per-probe
// detail is discarded.
func (s *enumSchema) decodeUntagged(obj map[string]Value, dst reflect.Value) error {
	for i := range s.variants {
		va := &s.variants[i]
		item, present := obj[va.name]
		if !present {
			continue
		}
		out := reflect.New(va.typ).Elem()
		switch va.class {
		case variantRecord:
			if !item.IsObject() {
				continue
			}
			if err := decoderFor(va.typ)(item, out); err != nil {
				return err
			}
			setVariant(dst, out)
			return nil
		case variantSingle:
			if err := decoderFor(va.typ)(item, out); err != nil {
				continue
			}
			setVariant(dst, out)
			return nil
		case variantUnit:
			setVariant(dst, out)
			return nil
		}
	}
	return convErrf(s.typ.String(), "no matching variant found")
}

func setVariant(dst reflect.Value, concrete reflect.Value) {
	if concrete.Type().Implements(dst.Type()) {
		dst.Set(concrete)
		return
	}
	dst.Set(concrete.Addr())
}
