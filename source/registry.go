package source

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
)

// Factory builds a Source from a full URI. The factory receives the URI
// unchanged, scheme included, so it can read its own query parameters.
type Factory func(uri string) (Source, error)

type schemeRegistry struct {
	mu       sync.RWMutex
	byScheme map[string]Factory
}

var schemes = &schemeRegistry{byScheme: map[string]Factory{}}

func init() {
	RegisterScheme("file", func(uri string) (Source, error) {
		return File(strings.TrimPrefix(uri, "file://")), nil
	})
}

// RegisterScheme maps a URI scheme to a source factory, replacing any
// previous registration. Callers typically register database-backed sources
// here at process start:
//
//	source.RegisterScheme("postgres", func(uri string) (source.Source, error) {
//		return source.DB(pool, uri), nil
//	})
func RegisterScheme(scheme string, factory Factory) {
	schemes.mu.Lock()
	defer schemes.mu.Unlock()
	schemes.byScheme[strings.ToLower(scheme)] = factory
}

// Failing returns a source that reports err on every load. Builders use it
// to defer a resolution failure until load time instead of dropping it.
func Failing(name string, err error) Source {
	return &loader{
		name:     name,
		priority: PriorityFile,
		load: func(context.Context) (value.Value, error) {
			return value.Value{}, err
		},
	}
}

// FromURI resolves a source by URI scheme. A bare path with no scheme loads
// as a plain file.
func FromURI(uri string) (Source, error) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return File(uri), nil
	}
	schemes.mu.RLock()
	factory, found := schemes.byScheme[strings.ToLower(scheme)]
	schemes.mu.RUnlock()
	if !found {
		return nil, errors.New("no source registered for scheme", errors.CategoryBadInput).
			WithTextCode("UNKNOWN_SCHEME").
			WithMetadata(map[string]any{
				"scheme": scheme,
				"uri":    uri,
			})
	}
	return factory(uri)
}
