package source

import (
	"context"
	"testing"

	"github.com/goliatone/go-prefer/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(fields map[string]value.Value) value.Value { return value.Object(fields) }

func TestMergeObjectsRecursively(t *testing.T) {
	base := obj(map[string]value.Value{
		"server": obj(map[string]value.Value{
			"host": value.String("localhost"),
			"port": value.Int(8080),
		}),
		"debug": value.Bool(false),
	})
	overlay := obj(map[string]value.Value{
		"server": obj(map[string]value.Value{
			"port": value.Int(9090),
		}),
	})

	merged := Merge(base, overlay)

	server, _ := merged.Get("server")
	port, _ := server.Get("port")
	i, _ := port.AsInt()
	assert.Equal(t, int64(9090), i)

	host, ok := server.Get("host")
	require.True(t, ok, "sibling keys must survive a nested overlay")
	s, _ := host.AsString()
	assert.Equal(t, "localhost", s)

	debug, _ := merged.Get("debug")
	b, _ := debug.AsBool()
	assert.False(t, b)
}

func TestMergeArraysReplace(t *testing.T) {
	base := obj(map[string]value.Value{
		"tags": value.Array(value.String("a"), value.String("b")),
	})
	overlay := obj(map[string]value.Value{
		"tags": value.Array(value.String("c")),
	})

	merged := Merge(base, overlay)
	tags, _ := merged.Get("tags")
	assert.Equal(t, 1, tags.Len(), "arrays overlay whole, they do not concatenate")
}

func TestMergeNullOverlays(t *testing.T) {
	base := obj(map[string]value.Value{"key": value.String("set")})
	overlay := obj(map[string]value.Value{"key": value.Null()})

	merged := Merge(base, overlay)
	key, _ := merged.Get("key")
	assert.True(t, key.IsNull(), "an explicit null must win over the base value")
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	inner := obj(map[string]value.Value{"k": value.Int(1)})
	base := obj(map[string]value.Value{"nested": inner})
	merged := Merge(base, obj(nil))

	got, _ := merged.Get("nested")
	assert.True(t, got.Equal(inner))
}

func TestLayeredPriorityOrder(t *testing.T) {
	defaults := Memory(obj(map[string]value.Value{
		"host":  value.String("localhost"),
		"port":  value.Int(8080),
		"debug": value.Bool(false),
	}))
	overrides := WithPriority(Memory(obj(map[string]value.Value{
		"port": value.Int(9090),
	})), PriorityEnv)

	// declaration order must not matter, priority does
	v, err := Layered(overrides, defaults).Load(context.Background())
	require.NoError(t, err)

	port, _ := v.Get("port")
	i, _ := port.AsInt()
	assert.Equal(t, int64(9090), i)

	host, _ := v.Get("host")
	s, _ := host.AsString()
	assert.Equal(t, "localhost", s)
}

func TestLayeredStableForEqualPriorities(t *testing.T) {
	first := Memory(obj(map[string]value.Value{"key": value.String("first")}))
	second := Memory(obj(map[string]value.Value{"key": value.String("second")}))

	v, err := Layered(first, second).Load(context.Background())
	require.NoError(t, err)

	key, _ := v.Get("key")
	s, _ := key.AsString()
	assert.Equal(t, "second", s, "later declaration wins among equal priorities")
}

func TestLayeredNamesFailingSource(t *testing.T) {
	boom := &loader{
		name:     "exploding",
		priority: PriorityFile,
		load: func(context.Context) (value.Value, error) {
			return value.Value{}, assert.AnError
		},
	}
	_, err := Layered(boom).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLayeredHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Layered(Memory(obj(nil))).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
