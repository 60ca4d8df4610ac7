// Package resolve post-processes a loaded configuration tree, substituting
// references in string values: ${path} variables, @proto:// URIs, and
// {{ expr }} expressions. Resolvers run after layering and before decoding.
package resolve

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-prefer/value"
)

// Resolver transforms a configuration tree. Implementations rebuild the tree
// rather than mutating it; the input is read-only.
type Resolver interface {
	Resolve(root value.Value) (value.Value, error)
}

// Apply runs the resolvers over the tree for up to the given number of
// passes (minimum 1). Passes stop early once a full pass leaves the tree
// unchanged, so chained references settle without looping forever.
func Apply(root value.Value, passes int, resolvers ...Resolver) (value.Value, error) {
	if passes < 1 {
		passes = 1
	}
	current := root
	for pass := 0; pass < passes; pass++ {
		before := current
		for _, r := range resolvers {
			next, err := r.Resolve(current)
			if err != nil {
				return value.Value{}, err
			}
			current = next
		}
		if current.Equal(before) {
			break
		}
	}
	return current, nil
}

// mapStrings rebuilds the tree, applying fn to every string leaf.
func mapStrings(v value.Value, fn func(s string) (value.Value, error)) (value.Value, error) {
	switch {
	case v.IsString():
		s, _ := v.AsString()
		return fn(s)
	case v.IsArray():
		arr, _ := v.AsArray()
		items := make([]value.Value, len(arr))
		for i, item := range arr {
			out, err := mapStrings(item, fn)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = out
		}
		return value.Array(items...), nil
	case v.IsObject():
		obj, _ := v.AsObject()
		fields := make(map[string]value.Value, len(obj))
		for k, item := range obj {
			out, err := mapStrings(item, fn)
			if err != nil {
				return value.Value{}, err
			}
			fields[k] = out
		}
		return value.Object(fields), nil
	}
	return v, nil
}

// lookupPath walks a dotted path from the root.
func lookupPath(root value.Value, path string) (value.Value, bool) {
	current := root
	for _, segment := range strings.Split(path, ".") {
		next, ok := current.Get(segment)
		if !ok {
			return value.Value{}, false
		}
		current = next
	}
	return current, true
}

// scalarText renders a scalar node for string interpolation. Containers and
// nulls have no embedded form.
func scalarText(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return s, true
	case value.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), true
	case value.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}
