package source

import (
	"context"
	goerrors "errors"
	"io/fs"
	"os"
	"syscall"

	"github.com/goliatone/go-prefer/value"
)

// ErrorFilter reports whether a load error should be swallowed.
type ErrorFilter func(err error) bool

// DefaultErrorFilter ignores missing files when called with no arguments;
// given sentinels, it ignores exactly those. Parse errors always surface.
func DefaultErrorFilter(allowedErrors ...error) ErrorFilter {
	return func(err error) bool {
		if err == nil {
			return false
		}
		if len(allowedErrors) == 0 {
			return os.IsNotExist(err) ||
				goerrors.Is(err, fs.ErrNotExist) ||
				goerrors.Is(err, syscall.ENOENT)
		}
		for _, allowed := range allowedErrors {
			if goerrors.Is(err, allowed) {
				return true
			}
		}
		return false
	}
}

// Optional wraps a source so that filtered errors yield an empty tree
// instead of failing the whole layered load. The default filter swallows
// missing files.
func Optional(src Source, filters ...ErrorFilter) Source {
	filter := DefaultErrorFilter()
	if len(filters) > 0 {
		filter = filters[0]
	}
	return &loader{
		name:     "optional:" + src.Name(),
		priority: src.Priority(),
		load: func(ctx context.Context) (value.Value, error) {
			v, err := src.Load(ctx)
			if err != nil {
				if filter(err) {
					return value.Object(nil), nil
				}
				return value.Value{}, err
			}
			return v, nil
		},
	}
}
