package value

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TagName is the struct tag key the schema compiler reads:
//
//	type Server struct {
//		Host    string        `prefer:"host,required"`
//		Port    uint16        `prefer:"port,default=8080"`
//		Timeout time.Duration `prefer:"timeout,default=30s"`
//		Labels  []string      `prefer:"labels,default"`
//		Region  *string       `prefer:"region"`
//		Debug   bool          `prefer:"-"`
//		Extra   Extra         `prefer:",flatten"`
//	}
//
// A field with no rename maps to its lower-cased identifier.
const TagName = "prefer"

// Unmarshaler is implemented by types that take over their own extraction
// from a Value. The receiver must treat the passed Value as read-only.
type Unmarshaler interface {
	UnmarshalValue(v Value) error
}

// Extract converts a node into a T using the built-in rules, the schema
// compiled from T's fields and tags, and any Unmarshaler implementation T
// carries. Failures report a fully qualified path to the offending node.
func Extract[T any](v Value) (T, error) {
	var out T
	if err := Decode(v, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Decode is the non-generic entry point: target must be a non-nil pointer.
func Decode(v Value, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	return decoderFor(rv.Type().Elem())(v, rv.Elem())
}

// decodeFunc decodes a node into a settable destination.
type decodeFunc func(v Value, dst reflect.Value) error

// decoders caches one compiled decodeFunc per target type. The placeholder
// indirection lets self-referential types compile without recursing forever.
var decoders sync.Map // reflect.Type -> decodeFunc

func decoderFor(t reflect.Type) decodeFunc {
	if cached, ok := decoders.Load(t); ok {
		return cached.(decodeFunc)
	}
	var (
		wg  sync.WaitGroup
		dec decodeFunc
	)
	wg.Add(1)
	placeholder := decodeFunc(func(v Value, dst reflect.Value) error {
		wg.Wait()
		return dec(v, dst)
	})
	if actual, loaded := decoders.LoadOrStore(t, placeholder); loaded {
		return actual.(decodeFunc)
	}
	dec = buildDecoder(t)
	wg.Done()
	decoders.Store(t, dec)
	return dec
}

var (
	valueType           = reflect.TypeFor[Value]()
	durationType        = reflect.TypeFor[time.Duration]()
	unmarshalerType     = reflect.TypeFor[Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func buildDecoder(t reflect.Type) decodeFunc {
	switch {
	case t == valueType:
		return identityDecoder
	case reflect.PointerTo(t).Implements(unmarshalerType):
		return unmarshalerDecoder
	case t == durationType:
		return durationDecoder
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return textDecoder(t)
	}

	switch t.Kind() {
	case reflect.Bool:
		return boolDecoder(t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intDecoder(t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintDecoder(t)
	case reflect.Float32, reflect.Float64:
		return floatDecoder(t)
	case reflect.String:
		return stringDecoder(t)
	case reflect.Pointer:
		return pointerDecoder(t)
	case reflect.Slice:
		return sliceDecoder(t)
	case reflect.Array:
		return arrayDecoder(t)
	case reflect.Map:
		return mapDecoder(t)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return anyDecoder
		}
		return enumDecoder(t)
	case reflect.Struct:
		return structDecoder(t)
	}
	return errorDecoder(fmt.Errorf("cannot decode into %s", t))
}

// errorDecoder defers a schema problem to first use instead of failing the
// compile silently.
func errorDecoder(err error) decodeFunc {
	return func(Value, reflect.Value) error { return err }
}

// identityDecoder hands the node over as a deep copy.
func identityDecoder(v Value, dst reflect.Value) error {
	dst.Set(reflect.ValueOf(v.Clone()))
	return nil
}

func unmarshalerDecoder(v Value, dst reflect.Value) error {
	return dst.Addr().Interface().(Unmarshaler).UnmarshalValue(v)
}

func durationDecoder(v Value, dst reflect.Value) error {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		d, err := time.ParseDuration(s)
		if err != nil {
			return convErrf("time.Duration", "invalid duration %q", s)
		}
		dst.SetInt(int64(d))
	case KindInt:
		i, _ := v.AsInt()
		dst.SetInt(i)
	default:
		return convErrf("time.Duration", "expected duration string, found %s", v.Kind())
	}
	return nil
}

func textDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		s, ok := v.AsString()
		if !ok {
			return convErrf(name, "expected string, found %s", v.Kind())
		}
		if err := dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return &ConversionError{TypeName: name, Cause: err}
		}
		return nil
	}
}

func boolDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		b, ok := v.AsBool()
		if !ok {
			return convErrf(name, "expected boolean, found %s", v.Kind())
		}
		dst.SetBool(b)
		return nil
	}
}

func intDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		i, ok := v.AsInt()
		if !ok {
			return convErrf(name, "expected integer, found %s", v.Kind())
		}
		if dst.OverflowInt(i) {
			return convErrf(name, "value %d out of range for %s", i, name)
		}
		dst.SetInt(i)
		return nil
	}
}

func uintDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		i, ok := v.AsInt()
		if !ok {
			return convErrf(name, "expected integer, found %s", v.Kind())
		}
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return convErrf(name, "value %d out of range for %s", i, name)
		}
		dst.SetUint(uint64(i))
		return nil
	}
}

func floatDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		f, ok := v.AsFloat()
		if !ok {
			return convErrf(name, "expected float, found %s", v.Kind())
		}
		dst.SetFloat(f)
		return nil
	}
}

func stringDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	return func(v Value, dst reflect.Value) error {
		s, ok := v.AsString()
		if !ok {
			return convErrf(name, "expected string, found %s", v.Kind())
		}
		dst.SetString(s)
		return nil
	}
}

// pointerDecoder maps Null to nil and wraps any other node's extraction in a
// fresh pointer. Malformed non-null values stay hard errors.
func pointerDecoder(t reflect.Type) decodeFunc {
	elemDec := decoderFor(t.Elem())
	return func(v Value, dst reflect.Value) error {
		if v.IsNull() {
			dst.SetZero()
			return nil
		}
		out := reflect.New(t.Elem())
		if err := elemDec(v, out.Elem()); err != nil {
			return err
		}
		dst.Set(out)
		return nil
	}
}

func sliceDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	elemDec := decoderFor(t.Elem())
	return func(v Value, dst reflect.Value) error {
		arr, ok := v.AsArray()
		if !ok {
			return convErrf(name, "expected array, found %s", v.Kind())
		}
		out := reflect.MakeSlice(t, len(arr), len(arr))
		for i, item := range arr {
			if err := elemDec(item, out.Index(i)); err != nil {
				return WithKey(err, "["+strconv.Itoa(i)+"]")
			}
		}
		dst.Set(out)
		return nil
	}
}

func arrayDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	elemDec := decoderFor(t.Elem())
	return func(v Value, dst reflect.Value) error {
		arr, ok := v.AsArray()
		if !ok {
			return convErrf(name, "expected array, found %s", v.Kind())
		}
		if len(arr) != t.Len() {
			return convErrf(name, "expected array of length %d, found length %d", t.Len(), len(arr))
		}
		for i, item := range arr {
			if err := elemDec(item, dst.Index(i)); err != nil {
				return WithKey(err, "["+strconv.Itoa(i)+"]")
			}
		}
		return nil
	}
}

// mapDecoder extracts object entries as V and entry keys as K from their
// string form; a map with integer keys therefore rejects every entry, the
// same way a typed key mismatch would anywhere else.
func mapDecoder(t reflect.Type) decodeFunc {
	name := t.String()
	keyDec := decoderFor(t.Key())
	valDec := decoderFor(t.Elem())
	return func(v Value, dst reflect.Value) error {
		obj, ok := v.AsObject()
		if !ok {
			return convErrf(name, "expected object, found %s", v.Kind())
		}
		out := reflect.MakeMapWithSize(t, len(obj))
		for k, item := range obj {
			kv := reflect.New(t.Key()).Elem()
			if err := keyDec(String(k), kv); err != nil {
				return WithKey(err, k)
			}
			vv := reflect.New(t.Elem()).Elem()
			if err := valDec(item, vv); err != nil {
				return WithKey(err, k)
			}
			out.SetMapIndex(kv, vv)
		}
		dst.Set(out)
		return nil
	}
}

func anyDecoder(v Value, dst reflect.Value) error {
	native := v.Native()
	if native == nil {
		dst.SetZero()
		return nil
	}
	dst.Set(reflect.ValueOf(native))
	return nil
}

// fieldAttrs is the parsed attribute surface of one struct field.
type fieldAttrs struct {
	key      string
	skip     bool
	flatten  bool
	required bool
	hasDef   bool
	literal  string
	zeroDef  bool
}

func parseFieldTag(f reflect.StructField) fieldAttrs {
	attrs := fieldAttrs{key: strings.ToLower(f.Name)}
	tag, ok := f.Tag.Lookup(TagName)
	if !ok {
		attrs.flatten = f.Anonymous
		return attrs
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "-" && len(parts) == 1 {
		attrs.skip = true
		return attrs
	}
	if name != "" {
		attrs.key = name
	} else {
		attrs.flatten = f.Anonymous
	}
	for _, opt := range parts[1:] {
		switch {
		case opt == "required":
			attrs.required = true
		case opt == "flatten":
			attrs.flatten = true
		case opt == "default":
			attrs.zeroDef = true
		case strings.HasPrefix(opt, "default="):
			attrs.hasDef = true
			attrs.literal = strings.TrimPrefix(opt, "default=")
		}
	}
	return attrs
}

// fieldProg is one compiled field of a struct program. Skipped fields never
// make it into the program at all, which is what keeps a same-named input
// key from touching them. Literal defaults resolve lazily on first use so
// that compiling a type never invokes another type's decoder.
type fieldProg struct {
	key      string
	index    int
	ftype    reflect.Type
	flatten  bool
	required bool
	optional bool
	hasDef   bool
	zeroDef  bool
	defLit   string
	defOnce  sync.Once
	defVal   reflect.Value
	defErr   error
	dec      decodeFunc
}

func (f *fieldProg) defaultValue() (reflect.Value, error) {
	f.defOnce.Do(func() {
		f.defVal, f.defErr = parseLiteral(f.ftype, f.defLit)
		if f.defErr != nil {
			f.defErr = fmt.Errorf("invalid default %q for key %q of %s: %w", f.defLit, f.key, f.ftype, f.defErr)
		}
	})
	return f.defVal, f.defErr
}

type structProg struct {
	typeName string
	fields   []*fieldProg
}

func structDecoder(t reflect.Type) decodeFunc {
	return compileStruct(t).decode
}

func compileStruct(t reflect.Type) *structProg {
	prog := &structProg{typeName: t.String()}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		attrs := parseFieldTag(f)
		if attrs.skip {
			continue
		}
		prog.fields = append(prog.fields, &fieldProg{
			key:      attrs.key,
			index:    i,
			ftype:    f.Type,
			flatten:  attrs.flatten,
			required: attrs.required,
			optional: f.Type.Kind() == reflect.Pointer,
			hasDef:   attrs.hasDef,
			zeroDef:  attrs.zeroDef,
			defLit:   attrs.literal,
			dec:      decoderFor(f.Type),
		})
	}
	return prog
}

// decode applies the per-field policy ladder: flatten, required, literal
// default, bare default, optional, then key-not-found. Unknown input keys
// are ignored.
func (p *structProg) decode(v Value, dst reflect.Value) error {
	obj, ok := v.AsObject()
	if !ok {
		return convErrf(p.typeName, "expected object, found %s", v.Kind())
	}
	for _, f := range p.fields {
		fv := dst.Field(f.index)
		if f.flatten {
			if err := f.dec(v, fv); err != nil {
				return err
			}
			continue
		}
		item, present := obj[f.key]
		if !present {
			switch {
			case f.required:
				return &KeyNotFoundError{Key: f.key}
			case f.hasDef:
				def, err := f.defaultValue()
				if err != nil {
					return err
				}
				fv.Set(def)
			case f.zeroDef, f.optional:
				// zero value stays
			default:
				return &KeyNotFoundError{Key: f.key}
			}
			continue
		}
		if err := f.dec(item, fv); err != nil {
			return WithKey(err, f.key)
		}
	}
	return nil
}

// parseLiteral turns a tag default into a ready value of the field's type.
// Integer, float, and bool literals parse strictly; anything else goes
// through the field type's own extraction of the literal as a string, which
// covers named string types, durations, and text unmarshalers.
func parseLiteral(t reflect.Type, lit string) (reflect.Value, error) {
	if hasCustomDecoder(t) {
		return literalViaDecoder(t, lit)
	}
	dst := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		switch lit {
		case "true":
			dst.SetBool(true)
		case "false":
			dst.SetBool(false)
		default:
			return reflect.Value{}, fmt.Errorf("not a boolean literal")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(lit, 10, 64)
		if err != nil || dst.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("not an integer literal in range for %s", t)
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(lit, 10, 64)
		if err != nil || dst.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("not an integer literal in range for %s", t)
		}
		dst.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("not a float literal")
		}
		dst.SetFloat(f)
	case reflect.String:
		dst.SetString(lit)
	default:
		return literalViaDecoder(t, lit)
	}
	return dst, nil
}

func hasCustomDecoder(t reflect.Type) bool {
	return t == durationType ||
		reflect.PointerTo(t).Implements(unmarshalerType) ||
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func literalViaDecoder(t reflect.Type, lit string) (reflect.Value, error) {
	dst := reflect.New(t)
	if err := decoderFor(t)(String(lit), dst.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return dst.Elem(), nil
}
