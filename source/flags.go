package source

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

// Flags serves values from a parsed pflag set. Flag names with dots nest:
// --database.port 5432 lands at database.port. This is the top rung of the
// default ladder, so flags override everything else.
func Flags(flagset *pflag.FlagSet) Source {
	return &loader{
		name:     "flags",
		priority: PriorityFlags,
		load: func(ctx context.Context) (value.Value, error) {
			if flagset == nil {
				return value.Value{}, errors.New("flagset cannot be nil", errors.CategoryBadInput).
					WithTextCode("NIL_FLAGSET")
			}
			raw, err := posflag.Provider(flagset, ".", nil).Read()
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to load configuration from flags").
					WithTextCode("FLAGS_LOAD_FAILED")
			}
			v, err := value.FromAny(raw)
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent flag values").
					WithTextCode("FLAG_VALUES_INVALID")
			}
			return v, nil
		},
	}
}
