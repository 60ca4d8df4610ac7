package source

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/mitchellh/copystructure"
)

// Map serves defaults from a plain map. Dotted keys unflatten into nested
// objects ("database.port": 5432 becomes {"database": {"port": 5432}}), and
// the input is deep-cloned up front so later caller-side mutation cannot
// leak into loads.
func Map(m map[string]any) Source {
	cloned, cloneErr := cloneMap(m)
	return &loader{
		name:     "map",
		priority: PriorityDefaults,
		load: func(ctx context.Context) (value.Value, error) {
			if cloneErr != nil {
				return value.Value{}, cloneErr
			}
			nested, err := confmap.Provider(cloned, ".").Read()
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to load default values").
					WithTextCode("DEFAULT_VALUES_LOAD_FAILED").
					WithMetadata(map[string]any{
						"values_count": len(m),
					})
			}
			v, err := value.FromAny(nested)
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent default values").
					WithTextCode("DEFAULT_VALUES_INVALID")
			}
			return v, nil
		},
	}
}

func cloneMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	cloned, err := copystructure.Copy(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to clone default values").
			WithTextCode("DEFAULT_VALUES_CLONE_FAILED")
	}
	return cloned.(map[string]any), nil
}
