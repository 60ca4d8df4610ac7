package source

import (
	"context"
	"sort"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
)

// Merge overlays one tree on another. Objects merge key by key, recursively;
// every other pairing is a plain overlay where the overlay wins, including
// arrays (replaced whole, never concatenated) and explicit nulls.
func Merge(base, overlay value.Value) value.Value {
	baseObj, baseOK := base.AsObject()
	overObj, overOK := overlay.AsObject()
	if !baseOK || !overOK {
		return overlay.Clone()
	}
	merged := make(map[string]value.Value, len(baseObj)+len(overObj))
	for k, v := range baseObj {
		merged[k] = v.Clone()
	}
	for k, v := range overObj {
		if existing, ok := merged[k]; ok {
			merged[k] = Merge(existing, v)
			continue
		}
		merged[k] = v.Clone()
	}
	return value.Object(merged)
}

// Layered combines sources into one: each is loaded in priority order
// (stable for equal priorities) and deep-merged over the accumulated tree.
// A failing source fails the whole load with the source named in the error.
func Layered(sources ...Source) Source {
	return &loader{
		name:     "layered",
		priority: PriorityDefaults,
		load: func(ctx context.Context) (value.Value, error) {
			ordered := make([]Source, len(sources))
			copy(ordered, sources)
			sort.SliceStable(ordered, func(i, j int) bool {
				return ordered[i].Priority() < ordered[j].Priority()
			})

			acc := value.Object(nil)
			for i, src := range ordered {
				if err := ctx.Err(); err != nil {
					return value.Value{}, err
				}
				v, err := src.Load(ctx)
				if err != nil {
					return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to load configuration from source").
						WithTextCode("CONFIG_LOAD_FAILED").
						WithMetadata(map[string]any{
							"source":        src.Name(),
							"source_index":  i,
							"total_sources": len(ordered),
						})
				}
				acc = Merge(acc, v)
			}
			return acc, nil
		},
	}
}
