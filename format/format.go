// Package format adapts text formats to the configuration value tree. Every
// adapter normalizes a parsed document into a value.Value object and renders
// one back out; nothing outside this package touches raw configuration text.
//
// Formats live in an explicit registry populated at process start. The
// built-in JSON, YAML, TOML, INI, and XML adapters register themselves from
// init; callers add their own with Register.
package format

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
)

// Format parses a text document into a value tree and renders a tree back to
// text. Marshal is only required to accept Object roots; the debug rendering
// of scalar roots belongs to value.Value itself.
type Format interface {
	Name() string
	Extensions() []string
	Unmarshal(data []byte) (value.Value, error)
	Marshal(v value.Value) ([]byte, error)
}

type registry struct {
	mu     sync.RWMutex
	byName map[string]Format
	byExt  map[string]Format
}

var formats = &registry{
	byName: map[string]Format{},
	byExt:  map[string]Format{},
}

// Register adds a format under its name and extensions, replacing any
// previous registration for the same name or extension.
func Register(f Format) {
	formats.mu.Lock()
	defer formats.mu.Unlock()
	formats.byName[strings.ToLower(f.Name())] = f
	for _, ext := range f.Extensions() {
		formats.byExt[strings.ToLower(ext)] = f
	}
}

// ByName looks a format up by its registered name.
func ByName(name string) (Format, error) {
	formats.mu.RLock()
	defer formats.mu.RUnlock()
	f, ok := formats.byName[strings.ToLower(name)]
	if !ok {
		return nil, errors.New("unknown format", errors.CategoryBadInput).
			WithTextCode("UNKNOWN_FORMAT").
			WithMetadata(map[string]any{
				"format": name,
				"known":  names(),
			})
	}
	return f, nil
}

// ByExtension looks a format up by file extension, with or without the
// leading dot.
func ByExtension(ext string) (Format, error) {
	formats.mu.RLock()
	defer formats.mu.RUnlock()
	f, ok := formats.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
	if !ok {
		return nil, errors.New("no format registered for extension", errors.CategoryBadInput).
			WithTextCode("UNKNOWN_EXTENSION").
			WithMetadata(map[string]any{
				"extension": ext,
			})
	}
	return f, nil
}

// ForPath infers the format from a file path's extension.
func ForPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, errors.New("cannot infer format without a file extension", errors.CategoryBadInput).
			WithTextCode("UNKNOWN_EXTENSION").
			WithMetadata(map[string]any{
				"path": path,
			})
	}
	return ByExtension(ext)
}

// Extensions returns every registered extension, sorted. Discovery probes
// candidate files in this order.
func Extensions() []string {
	formats.mu.RLock()
	defer formats.mu.RUnlock()
	exts := make([]string, 0, len(formats.byExt))
	for ext := range formats.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// names is called with the registry lock held.
func names() []string {
	out := make([]string, 0, len(formats.byName))
	for name := range formats.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// requireObject guards the Marshal entry of every built-in adapter: the text
// formats here all render documents whose root is a key/value mapping.
func requireObject(name string, v value.Value) (map[string]any, error) {
	m, ok := v.Native().(map[string]any)
	if !ok {
		return nil, errors.New("can only marshal object documents", errors.CategoryBadInput).
			WithTextCode("NON_OBJECT_DOCUMENT").
			WithMetadata(map[string]any{
				"format": name,
				"kind":   v.Kind().String(),
			})
	}
	return m, nil
}
