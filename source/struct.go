package source

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
)

// Structs serves defaults from a Go struct, typically the same tagged type
// the final configuration decodes into. Field names follow the `prefer` tag
// renames, so keys line up with what the decoder later reads.
func Structs(v any) Source {
	return &loader{
		name:     "struct",
		priority: PriorityStruct,
		load: func(ctx context.Context) (value.Value, error) {
			if v == nil {
				return value.Value{}, errors.New("struct source cannot be nil", errors.CategoryBadInput).
					WithTextCode("NIL_STRUCT")
			}
			m := map[string]any{}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				TagName: value.TagName,
				Result:  &m,
			})
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to build struct decoder").
					WithTextCode("STRUCT_LOAD_FAILED")
			}
			if err := dec.Decode(v); err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to load configuration from struct").
					WithTextCode("STRUCT_LOAD_FAILED")
			}
			out, err := value.FromAny(m)
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent struct values").
					WithTextCode("STRUCT_VALUES_INVALID")
			}
			return out, nil
		},
	}
}
