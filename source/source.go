// Package source loads configuration value trees from files, the
// environment, command-line flags, in-memory maps, and structs, and layers
// them by priority into a single merged tree.
package source

import (
	"context"

	"github.com/goliatone/go-prefer/value"
)

// Source produces one configuration tree. Sources with a higher priority
// overlay lower ones when layered.
type Source interface {
	Name() string
	Priority() int
	Load(ctx context.Context) (value.Value, error)
}

// The priority ladder. Offsets let callers slot a source between rungs:
// WithPriority(File("local.json"), PriorityFile+5) loads after the main file
// but still below the environment.
const (
	PriorityDefaults = 0
	PriorityStruct   = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
)

// loader is the common Source shape: a name, a rung, and a load function.
type loader struct {
	name     string
	priority int
	load     func(ctx context.Context) (value.Value, error)
}

func (l *loader) Name() string { return l.name }

func (l *loader) Priority() int { return l.priority }

func (l *loader) Load(ctx context.Context) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return value.Value{}, err
	}
	return l.load(ctx)
}

// WithPriority wraps a source under a different priority.
func WithPriority(src Source, priority int) Source {
	return &loader{name: src.Name(), priority: priority, load: src.Load}
}

// Memory serves an already-built tree. Useful for tests and for layering a
// computed tree between real sources.
func Memory(v value.Value) Source {
	return &loader{
		name:     "memory",
		priority: PriorityDefaults,
		load: func(context.Context) (value.Value, error) {
			return v.Clone(), nil
		},
	}
}
