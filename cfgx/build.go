package cfgx

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-prefer/config"
	"github.com/goliatone/go-prefer/format"
	"github.com/goliatone/go-prefer/source"
	"github.com/goliatone/go-prefer/value"
	"github.com/mitchellh/copystructure"
)

const (
	stageInput      = "input"
	stageDefaults   = "defaults"
	stagePreprocess = "preprocess"
	stageDecode     = "decode"
	stageValidate   = "validate"
	stageFinalize   = "finalize"
)

var (
	// ErrInput wraps failures while normalizing the raw input into a value tree.
	ErrInput = errors.New("cfgx: input stage failed")
	// ErrDefaults wraps failures when generating or cloning default config instances.
	ErrDefaults = errors.New("cfgx: defaults stage failed")
	// ErrPreprocess wraps failures while executing preprocessors before decoding.
	ErrPreprocess = errors.New("cfgx: preprocess stage failed")
	// ErrDecode wraps extraction failures.
	ErrDecode = errors.New("cfgx: decode stage failed")
	// ErrValidate wraps validator-reported errors.
	ErrValidate = errors.New("cfgx: validate stage failed")
	// ErrFinalize wraps finalizer-reported errors.
	ErrFinalize = errors.New("cfgx: finalize stage failed")
	// ErrOption indicates a misconfigured builder option (e.g., duplicate validator).
	ErrOption = errors.New("cfgx: option configuration failed")
)

// StageError describes a failure in a specific build stage along with contextual metadata.
type StageError struct {
	Stage string
	Base  error
	Err   error
	Meta  map[string]any
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the target matches either the stage sentinel or wrapped error.
func (e *StageError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if errors.Is(e.Base, target) {
		return true
	}
	return errors.Is(e.Err, target)
}

func stageError(stage string, base, err error, meta map[string]any) error {
	if err == nil {
		return nil
	}
	return &StageError{
		Stage: stage,
		Base:  base,
		Err:   err,
		Meta:  meta,
	}
}

// builder holds Build state and user-supplied options.
type builder[T any] struct {
	input         any
	formatName    string
	defaults      func() (T, error)
	preprocessors []Preprocessor
	validator     Validator[T]
	finalizer     Finalizer[T]
	skipValidable bool
	optionErr     error
}

// Build decodes input into a fresh T through a staged pipeline: the input is
// normalized into a value tree, overlaid onto lowered defaults, run through
// preprocessors, extracted into T, validated, and finalized. Input may be a
// value.Value, a map[string]any, a *config.Config, a struct (or pointer to
// one), or raw []byte paired with WithFormat.
//
// When any stage fails the returned error wraps one of the stage sentinels
// (ErrInput, ErrDefaults, ErrPreprocess, ErrDecode, ErrValidate, ErrFinalize)
// so callers can branch via errors.Is while still accessing StageError
// metadata via errors.As.
func Build[T any](input any, opts ...Option[T]) (T, error) {
	b := &builder[T]{input: input}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}
	if b.optionErr != nil {
		var zero T
		return zero, b.optionErr
	}
	return b.build()
}

func (b *builder[T]) setOptionError(format string, args ...any) {
	if b.optionErr != nil {
		return
	}
	err := fmt.Errorf(format, args...)
	b.optionErr = fmt.Errorf("%w: %w", ErrOption, err)
}

func (b *builder[T]) build() (T, error) {
	var zero T

	tree, err := b.normalizeInput()
	if err != nil {
		return zero, err
	}

	tree, err = b.applyDefaults(tree)
	if err != nil {
		return zero, err
	}

	tree, err = b.applyPreprocessors(tree)
	if err != nil {
		return zero, err
	}

	result, err := value.Extract[T](tree)
	if err != nil {
		return zero, stageError(stageDecode, ErrDecode, err, nil)
	}

	if err := b.runValidators(&result); err != nil {
		return zero, err
	}

	if b.finalizer != nil {
		if err := b.finalizer(&result); err != nil {
			return zero, stageError(stageFinalize, ErrFinalize, err, nil)
		}
	}

	return result, nil
}

func (b *builder[T]) normalizeInput() (value.Value, error) {
	switch in := b.input.(type) {
	case nil:
		return value.Object(nil), nil
	case value.Value:
		return in, nil
	case *config.Config:
		if in == nil {
			return value.Value{}, stageError(stageInput, ErrInput,
				errors.New("nil *config.Config input"), nil)
		}
		return in.Data(), nil
	case []byte:
		if b.formatName == "" {
			return value.Value{}, stageError(stageInput, ErrInput,
				errors.New("raw bytes require WithFormat"), nil)
		}
		f, err := format.ByName(b.formatName)
		if err != nil {
			return value.Value{}, stageError(stageInput, ErrInput, err, map[string]any{
				"format": b.formatName,
			})
		}
		v, err := f.Unmarshal(in)
		if err != nil {
			return value.Value{}, stageError(stageInput, ErrInput, err, map[string]any{
				"format": b.formatName,
			})
		}
		return v, nil
	default:
		v, err := lowerInput(b.input)
		if err != nil {
			return value.Value{}, stageError(stageInput, ErrInput, err, map[string]any{
				"input_type": fmt.Sprintf("%T", b.input),
			})
		}
		return v, nil
	}
}

// lowerInput turns maps, structs, and pointers into a value tree. Map values
// holding zero-argument functions are called first so callers can defer
// expensive fields until build time.
func lowerInput(input any) (value.Value, error) {
	evaluated, err := evalFuncFields(input)
	if err != nil {
		return value.Value{}, err
	}
	if evaluated == nil {
		return value.Object(nil), nil
	}
	rv := reflect.ValueOf(evaluated)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return value.Object(nil), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return lowerStruct(rv.Interface())
	}
	return value.FromAny(evaluated)
}

func lowerStruct(v any) (value.Value, error) {
	m := map[string]any{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: value.TagName,
		Result:  &m,
	})
	if err != nil {
		return value.Value{}, err
	}
	if err := decoder.Decode(v); err != nil {
		return value.Value{}, err
	}
	return value.FromAny(m)
}

func (b *builder[T]) applyDefaults(tree value.Value) (value.Value, error) {
	if b.defaults == nil {
		return tree, nil
	}
	val, err := b.defaults()
	if err != nil {
		return value.Value{}, stageError(stageDefaults, ErrDefaults, err, nil)
	}
	cloned, err := cloneValue(val)
	if err != nil {
		return value.Value{}, stageError(stageDefaults, ErrDefaults, err, map[string]any{
			"reason": "clone",
		})
	}
	base, err := lowerInput(cloned)
	if err != nil {
		return value.Value{}, stageError(stageDefaults, ErrDefaults, err, map[string]any{
			"reason": "lower",
		})
	}
	return source.Merge(base, tree), nil
}

func (b *builder[T]) applyPreprocessors(tree value.Value) (value.Value, error) {
	current := tree
	for idx, pre := range b.preprocessors {
		if pre == nil {
			continue
		}
		next, err := pre(current)
		if err != nil {
			return value.Value{}, stageError(stagePreprocess, ErrPreprocess, err, map[string]any{
				"preprocessor_index": idx,
			})
		}
		current = next
	}
	return current, nil
}

func (b *builder[T]) runValidators(result *T) error {
	if !b.skipValidable {
		if v, ok := any(result).(config.Validable); ok {
			if err := v.Validate(); err != nil {
				return stageError(stageValidate, ErrValidate, err, map[string]any{
					"source": "validable",
				})
			}
		}
	}
	if b.validator == nil {
		return nil
	}
	if err := b.validator(result); err != nil {
		return stageError(stageValidate, ErrValidate, err, nil)
	}
	return nil
}

func cloneValue[T any](val T) (T, error) {
	var zero T
	cloned, err := copystructure.Copy(val)
	if err != nil {
		return zero, err
	}
	casted, ok := cloned.(T)
	if !ok {
		return zero, fmt.Errorf("cfgx: failed to cast cloned value %T to target type", cloned)
	}
	return casted, nil
}
