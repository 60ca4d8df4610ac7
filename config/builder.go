package config

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/logger"
	"github.com/goliatone/go-prefer/resolve"
	"github.com/goliatone/go-prefer/source"
	"github.com/goliatone/go-prefer/value"
	"github.com/spf13/pflag"
)

// DefaultLoadTimeout bounds a full layered load.
var DefaultLoadTimeout = 30 * time.Second

// Builder assembles sources and resolvers into a Config. The zero chain
// loads nothing but still yields an empty, usable Config; every With method
// returns the receiver for chaining.
type Builder struct {
	sources  []source.Source
	resolver []resolve.Resolver
	passes   int
	timeout  time.Duration
	log      logger.Logger
	path     string // primary file, remembered for Watch and Save
}

// NewBuilder returns a builder with the default resolver stack: ${path}
// variables, @proto:// URIs, and {{ expr }} expressions, one pass.
func NewBuilder() *Builder {
	return &Builder{
		passes:  1,
		timeout: DefaultLoadTimeout,
		log:     logger.New("config"),
		resolver: []resolve.Resolver{
			resolve.Variables("${", "}"),
			resolve.URI("@", "://"),
			resolve.Expression("{{", "}}"),
		},
	}
}

// WithFile adds a required configuration file.
func (b *Builder) WithFile(path string) *Builder {
	if b.path == "" {
		b.path = path
	}
	b.sources = append(b.sources, source.File(path))
	return b
}

// WithOptionalFile adds a file that may be absent.
func (b *Builder) WithOptionalFile(path string) *Builder {
	if b.path == "" {
		b.path = path
	}
	b.sources = append(b.sources, source.Optional(source.File(path)))
	return b
}

// WithEnv adds prefixed environment variables.
func (b *Builder) WithEnv(prefix string) *Builder {
	b.sources = append(b.sources, source.Env(prefix))
	return b
}

// WithDefaults adds a defaults map (dotted keys allowed).
func (b *Builder) WithDefaults(m map[string]any) *Builder {
	b.sources = append(b.sources, source.Map(m))
	return b
}

// WithStruct adds a tagged defaults struct.
func (b *Builder) WithStruct(v any) *Builder {
	b.sources = append(b.sources, source.Structs(v))
	return b
}

// WithFlags adds a parsed pflag set.
func (b *Builder) WithFlags(fs *pflag.FlagSet) *Builder {
	b.sources = append(b.sources, source.Flags(fs))
	return b
}

// WithURI adds a source resolved by URI scheme through the source registry.
// Bare paths and file:// URIs load as files; other schemes must be
// registered with source.RegisterScheme first. Resolution errors surface
// from Build.
func (b *Builder) WithURI(uri string) *Builder {
	src, err := source.FromURI(uri)
	if err != nil {
		b.sources = append(b.sources, source.Failing(uri, err))
		return b
	}
	b.sources = append(b.sources, src)
	return b
}

// WithSource adds arbitrary sources.
func (b *Builder) WithSource(srcs ...source.Source) *Builder {
	b.sources = append(b.sources, srcs...)
	return b
}

// WithResolver appends resolvers to the stack.
func (b *Builder) WithResolver(rs ...resolve.Resolver) *Builder {
	b.resolver = append(b.resolver, rs...)
	return b
}

// WithResolvers replaces the resolver stack, allowing explicit ordering or
// an empty stack.
func (b *Builder) WithResolvers(rs ...resolve.Resolver) *Builder {
	b.resolver = append([]resolve.Resolver{}, rs...)
	return b
}

// WithResolverPasses sets the maximum number of resolver passes (minimum 1).
func (b *Builder) WithResolverPasses(n int) *Builder {
	if n < 1 {
		n = 1
	}
	b.passes = n
	return b
}

// WithLogger swaps the logger.
func (b *Builder) WithLogger(l logger.Logger) *Builder {
	b.log = l
	return b
}

// WithTimeout bounds the whole load.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Build loads all sources in priority order, merges them, runs the resolver
// stack, and wraps the result.
func (b *Builder) Build(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	b.log.Debug("loading configuration", "sources", len(b.sources))
	root, err := source.Layered(b.sources...).Load(ctx)
	if err != nil {
		return nil, err
	}

	if len(b.resolver) > 0 {
		b.log.Debug("resolving configuration", "resolvers", len(b.resolver), "passes", b.passes)
		root, err = resolve.Apply(root, b.passes, b.resolver...)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to resolve configuration values").
				WithTextCode("CONFIG_RESOLVE_FAILED")
		}
	}

	if !root.IsObject() {
		root = value.Object(nil)
	}
	cfg := &Config{root: root, path: b.path}
	b.log.Debug("configuration loaded", "keys", root.Len())
	return cfg, nil
}
