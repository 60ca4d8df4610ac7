package value

import (
	"fmt"
	"strings"
)

// KeyNotFoundError reports a required configuration key that was absent from
// the input object.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("configuration key %q not found", e.Key)
}

// ConversionError reports a value of the wrong kind, shape, or range found at
// a known location. Key is the path to the offending node, built up segment
// by segment as the error propagates outward; TypeName names the target type
// the conversion was for.
type ConversionError struct {
	Key      string
	TypeName string
	Cause    error
}

func (e *ConversionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("failed to convert value to type %s: %v", e.TypeName, e.Cause)
	}
	return fmt.Sprintf("failed to convert value at %q to type %s: %v", e.Key, e.TypeName, e.Cause)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// convErrf builds a key-less ConversionError; the path fills in as the error
// travels outward through WithKey.
func convErrf(typeName, format string, args ...any) *ConversionError {
	return &ConversionError{TypeName: typeName, Cause: fmt.Errorf(format, args...)}
}

// WithKey prefixes the path of a *ConversionError with the given segment and
// returns every other error unmodified. Sequence layers pass segments like
// "[2]", object layers pass key names; the prefixing rule composes them into
// fully qualified paths such as "database.servers[2].port". The original
// error is not mutated.
func WithKey(err error, segment string) error {
	ce, ok := err.(*ConversionError)
	if !ok {
		return err
	}
	out := *ce
	out.Key = joinPath(segment, ce.Key)
	return &out
}

func joinPath(segment, rest string) string {
	switch {
	case rest == "":
		return segment
	case strings.HasPrefix(rest, "["):
		return segment + rest
	default:
		return segment + "." + rest
	}
}
