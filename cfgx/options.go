package cfgx

import (
	"fmt"

	"github.com/goliatone/go-prefer/resolve"
)

// Option allows callers to tweak builder behavior before decoding a config struct.
type Option[T any] func(*builder[T])

// Validator represents the validation hook invoked after decoding completes.
type Validator[T any] func(*T) error

// Finalizer runs last, after validation, for derived-field computation or
// normalization that needs the fully decoded struct.
type Finalizer[T any] func(*T) error

// WithFormat names the wire format used to parse []byte input (e.g. "json",
// "yaml"). Ignored for other input shapes.
func WithFormat[T any](name string) Option[T] {
	return func(b *builder[T]) {
		b.formatName = name
	}
}

// WithDefaults seeds the builder with a default config value that will be
// cloned and lowered into the base tree before the input overlays it. Later
// calls override earlier defaults.
func WithDefaults[T any](val T) Option[T] {
	return func(b *builder[T]) {
		b.defaults = func() (T, error) {
			return val, nil
		}
	}
}

// WithDefaultFunc allows defaults to be generated lazily. The provided function
// should return a fully configured instance ready for overlaying.
func WithDefaultFunc[T any](fn func() (T, error)) Option[T] {
	return func(b *builder[T]) {
		b.defaults = fn
	}
}

// WithPreprocess registers one or more preprocessors to run sequentially before decode.
func WithPreprocess[T any](pre ...Preprocessor) Option[T] {
	return func(b *builder[T]) {
		b.preprocessors = append(b.preprocessors, pre...)
	}
}

// WithResolvers is a convenience for registering the resolver preprocessor.
func WithResolvers[T any](rs ...resolve.Resolver) Option[T] {
	return WithPreprocess[T](PreprocessResolve(rs...))
}

// WithExpandEnv appends the environment expansion preprocessor to the builder.
func WithExpandEnv[T any]() Option[T] {
	return WithPreprocess[T](PreprocessExpandEnv())
}

// WithMerge merges the provided sources into the input tree before decoding.
func WithMerge[T any](sources ...any) Option[T] {
	return WithPreprocess[T](PreprocessMerge(sources...))
}

// WithValidator registers a validator function invoked after decoding. Only one validator is allowed.
func WithValidator[T any](validator Validator[T]) Option[T] {
	return func(b *builder[T]) {
		if validator == nil {
			return
		}
		if b.validator != nil {
			b.setOptionError("validator already registered")
			return
		}
		b.validator = validator
	}
}

// WithValidatorFunc adapts a value-based validator into the pointer-based contract.
func WithValidatorFunc[T any](validator func(T) error) Option[T] {
	if validator == nil {
		return func(*builder[T]) {}
	}
	return WithValidator(func(cfg *T) error {
		if cfg == nil {
			var zero T
			return validator(zero)
		}
		return validator(*cfg)
	})
}

// WithoutValidable disables the automatic Validate() call on targets
// implementing config.Validable.
func WithoutValidable[T any]() Option[T] {
	return func(b *builder[T]) {
		b.skipValidable = true
	}
}

// WithFinalizer registers a finalizer invoked after validation. Only one finalizer is allowed.
func WithFinalizer[T any](fn Finalizer[T]) Option[T] {
	return func(b *builder[T]) {
		if fn == nil {
			return
		}
		if b.finalizer != nil {
			b.setOptionError("finalizer already registered")
			return
		}
		b.finalizer = fn
	}
}

// WithPreprocessFunc is a convenience for registering inline preprocessors.
func WithPreprocessFunc[T any](fn func(any) (any, error)) Option[T] {
	if fn == nil {
		return func(*builder[T]) {}
	}
	return WithPreprocess[T](liftPreprocessor(fn))
}

// WithOptionError allows external helpers to surface option misconfiguration errors.
func WithOptionError[T any](err error) Option[T] {
	return func(b *builder[T]) {
		if err == nil {
			return
		}
		if b.optionErr == nil {
			b.optionErr = fmt.Errorf("%w: %w", ErrOption, err)
		}
	}
}
