package cfgx

import (
	"fmt"
	"os"
	"reflect"

	"github.com/goliatone/go-prefer/resolve"
	"github.com/goliatone/go-prefer/source"
	"github.com/goliatone/go-prefer/value"
)

// Preprocessor functions transform the assembled value tree before decoding begins.
type Preprocessor func(value.Value) (value.Value, error)

// PreprocessResolve runs the given resolvers over the tree, one pass each.
func PreprocessResolve(resolvers ...resolve.Resolver) Preprocessor {
	return func(v value.Value) (value.Value, error) {
		return resolve.Apply(v, 1, resolvers...)
	}
}

// PreprocessExpandEnv expands $VAR and ${VAR} references in every string leaf
// against the process environment. Unset variables expand to the empty string.
func PreprocessExpandEnv() Preprocessor {
	return func(v value.Value) (value.Value, error) {
		return mapStringLeaves(v, os.ExpandEnv), nil
	}
}

// PreprocessMerge overlays the provided sources onto the tree. Sources can be
// value trees, maps, or structs; later sources override earlier ones.
func PreprocessMerge(sources ...any) Preprocessor {
	return func(v value.Value) (value.Value, error) {
		current := v
		for idx, src := range sources {
			overlay, err := normalizeSource(src)
			if err != nil {
				return value.Value{}, fmt.Errorf("cfgx: merge source %d: %w", idx, err)
			}
			current = source.Merge(current, overlay)
		}
		return current, nil
	}
}

func normalizeSource(src any) (value.Value, error) {
	if v, ok := src.(value.Value); ok {
		return v, nil
	}
	return lowerInput(src)
}

// liftPreprocessor adapts a native-data transform into the tree contract by
// lowering the tree, applying the function, and normalizing the result.
func liftPreprocessor(fn func(any) (any, error)) Preprocessor {
	return func(v value.Value) (value.Value, error) {
		out, err := fn(v.Native())
		if err != nil {
			return value.Value{}, err
		}
		return value.FromAny(out)
	}
}

func mapStringLeaves(v value.Value, fn func(string) string) value.Value {
	switch {
	case v.Kind() == value.KindString:
		s, _ := v.AsString()
		return value.String(fn(s))
	case v.Kind() == value.KindArray:
		items, _ := v.AsArray()
		out := make([]value.Value, len(items))
		for i, item := range items {
			out[i] = mapStringLeaves(item, fn)
		}
		return value.Array(out...)
	case v.Kind() == value.KindObject:
		fields, _ := v.AsObject()
		out := make(map[string]value.Value, len(fields))
		for k, item := range fields {
			out[k] = mapStringLeaves(item, fn)
		}
		return value.Object(out)
	default:
		return v
	}
}

// evalFuncFields walks maps, slices, and pointers calling zero-argument
// function values so lazily computed fields resolve before lowering.
func evalFuncFields(input any) (any, error) {
	if input == nil {
		return nil, nil
	}
	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			strKey, ok := iter.Key().Interface().(string)
			if !ok {
				return nil, fmt.Errorf("cfgx: expected string map key, got %T", iter.Key().Interface())
			}
			evaluated, err := evalFuncFields(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			result[strKey] = evaluated
		}
		return result, nil
	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			evaluated, err := evalFuncFields(val.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			result[i] = evaluated
		}
		return result, nil
	case reflect.Interface:
		if val.IsNil() {
			return nil, nil
		}
		return evalFuncFields(val.Elem().Interface())
	case reflect.Func:
		return callFunc(val)
	default:
		return input, nil
	}
}

func callFunc(val reflect.Value) (any, error) {
	if val.Type().NumIn() != 0 || val.Type().NumOut() == 0 {
		return val.Interface(), nil
	}
	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("cfgx: eval func panic: %v", r)
			}
		}()
		outputs := val.Call(nil)
		switch len(outputs) {
		case 1:
			result = outputs[0].Interface()
		case 2:
			if e, ok := outputs[1].Interface().(error); ok && e != nil {
				err = e
				return
			}
			result = outputs[0].Interface()
		default:
			result = val.Interface()
		}
	}()
	return result, err
}
