package value

import (
	"strings"
	"testing"
)

type dbBackend interface{ backendName() string }

type pgBackend struct {
	Host string `prefer:"host"`
	Port uint16 `prefer:"port"`
}

func (pgBackend) backendName() string { return "postgres" }

type sqliteBackend struct {
	Path string `prefer:"path"`
}

func (sqliteBackend) backendName() string { return "sqlite" }

type memoryBackend struct{}

func (memoryBackend) backendName() string { return "memory" }

func init() {
	RegisterTagged[dbBackend]("type",
		VariantOf[pgBackend]("postgresql"),
		VariantOf[sqliteBackend](),
		VariantOf[memoryBackend]("memory"),
	)
}

func TestTaggedEnumMatchesRenamedVariant(t *testing.T) {
	got, err := Extract[dbBackend](Object(map[string]Value{
		"type": String("postgresql"),
		"host": String("h"),
		"port": Int(1),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pg, ok := got.(pgBackend)
	if !ok {
		t.Fatalf("expected pgBackend, got %T", got)
	}
	if pg.Host != "h" || pg.Port != 1 {
		t.Errorf("unexpected variant contents: %+v", pg)
	}
}

func TestTaggedEnumDefaultsToTypeName(t *testing.T) {
	got, err := Extract[dbBackend](Object(map[string]Value{
		"type": String("sqliteBackend"),
		"path": String("/tmp/db"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sq, ok := got.(sqliteBackend); !ok || sq.Path != "/tmp/db" {
		t.Fatalf("expected sqliteBackend{/tmp/db}, got %#v", got)
	}
}

func TestTaggedEnumUnitVariant(t *testing.T) {
	got, err := Extract[dbBackend](Object(map[string]Value{
		"type": String("memory"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(memoryBackend); !ok {
		t.Fatalf("expected memoryBackend, got %T", got)
	}
}

func TestTaggedEnumUnknownTag(t *testing.T) {
	_, err := Extract[dbBackend](Object(map[string]Value{
		"type": String("unknown"),
	}))
	if err == nil {
		t.Fatal("expected an error for an unknown tag")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("error does not name the tag: %v", err)
	}
	if !strings.Contains(err.Error(), "dbBackend") {
		t.Errorf("error does not name the enum type: %v", err)
	}
}

func TestTaggedEnumMissingTag(t *testing.T) {
	for name, in := range map[string]Value{
		"absent":     Object(map[string]Value{"host": String("h")}),
		"non-string": Object(map[string]Value{"type": Int(2)}),
	} {
		_, err := Extract[dbBackend](in)
		ce, ok := err.(*ConversionError)
		if !ok {
			t.Fatalf("%s: expected *ConversionError, got %v", name, err)
		}
		if ce.Key != "type" {
			t.Errorf("%s: error key = %q, want %q", name, ce.Key, "type")
		}
	}
}

func TestTaggedEnumRequiresObject(t *testing.T) {
	_, err := Extract[dbBackend](String("postgresql"))
	if err == nil || !strings.Contains(err.Error(), "expected object") {
		t.Fatalf("expected an object-shape error, got %v", err)
	}
}

type cachePolicy interface{ cachePolicy() }

type redisCache struct {
	Addr string `prefer:"addr"`
}

func (redisCache) cachePolicy() {}

type lruCache struct {
	Size int64 `prefer:"size"`
}

func (lruCache) cachePolicy() {}

type noCache struct{}

func (noCache) cachePolicy() {}

type cacheLabels map[string]string

func (cacheLabels) cachePolicy() {}

func init() {
	RegisterUntagged[cachePolicy](
		VariantOf[redisCache]("redis"),
		VariantOf[lruCache]("lru"),
		VariantOf[cacheLabels]("labels"),
		VariantOf[noCache]("none"),
	)
}

func TestUntaggedEnumRegistrationOrderWins(t *testing.T) {
	got, err := Extract[cachePolicy](Object(map[string]Value{
		"redis": Object(map[string]Value{"addr": String("localhost:6379")}),
		"lru":   Object(map[string]Value{"size": Int(128)}),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := got.(redisCache); !ok || r.Addr != "localhost:6379" {
		t.Fatalf("expected the first registered variant, got %#v", got)
	}
}

func TestUntaggedEnumRecordNeedsNestedObject(t *testing.T) {
	// "redis" present but not an object: the probe moves on to "lru".
	got, err := Extract[cachePolicy](Object(map[string]Value{
		"redis": String("localhost:6379"),
		"lru":   Object(map[string]Value{"size": Int(64)}),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l, ok := got.(lruCache); !ok || l.Size != 64 {
		t.Fatalf("expected lruCache{64}, got %#v", got)
	}
}

func TestUntaggedEnumSingleValueVariant(t *testing.T) {
	got, err := Extract[cachePolicy](Object(map[string]Value{
		"labels": Object(map[string]Value{"tier": String("hot")}),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels, ok := got.(cacheLabels)
	if !ok || labels["tier"] != "hot" {
		t.Fatalf("expected cacheLabels, got %#v", got)
	}
}

func TestUntaggedEnumUnitVariantMatchesOnPresence(t *testing.T) {
	got, err := Extract[cachePolicy](Object(map[string]Value{
		"none": Null(),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(noCache); !ok {
		t.Fatalf("expected noCache, got %T", got)
	}
}

func TestUntaggedEnumNoMatchIsGeneric(t *testing.T) {
	_, err := Extract[cachePolicy](Object(map[string]Value{
		"memcached": Object(map[string]Value{}),
	}))
	if err == nil || !strings.Contains(err.Error(), "no matching variant") {
		t.Fatalf("expected the generic no-match error, got %v", err)
	}
}

func TestUntaggedEnumRecordDecodeFailureIsHard(t *testing.T) {
	// A matching record variant with malformed contents must not fall through
	// to later variants.
	_, err := Extract[cachePolicy](Object(map[string]Value{
		"lru": Object(map[string]Value{"size": String("big")}),
	}))
	if err == nil || !strings.Contains(err.Error(), "size") {
		t.Fatalf("expected a hard error at lru.size, got %v", err)
	}
}

type unregistered interface{ never() }

func TestUnregisteredEnumFailsOnFirstUse(t *testing.T) {
	_, err := Extract[unregistered](Object(map[string]Value{}))
	if err == nil || !strings.Contains(err.Error(), "no variants registered") {
		t.Fatalf("expected a registration error, got %v", err)
	}
}

func TestEnumInsideStructEnrichesPath(t *testing.T) {
	type appConfig struct {
		Database dbBackend `prefer:"database"`
	}
	_, err := Extract[appConfig](Object(map[string]Value{
		"database": Object(map[string]Value{
			"type": String("postgresql"),
			"host": String("h"),
			"port": String("not-a-port"),
		}),
	}))
	ce, ok := err.(*ConversionError)
	if !ok {
		t.Fatalf("expected *ConversionError, got %v", err)
	}
	if ce.Key != "database.port" {
		t.Errorf("error key = %q, want %q", ce.Key, "database.port")
	}
}
