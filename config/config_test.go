package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-prefer/value"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := New(value.Object(map[string]value.Value{
		"app": value.Object(map[string]value.Value{
			"name":    value.String("demo"),
			"debug":   value.Bool(true),
			"ratio":   value.Float(0.5),
			"timeout": value.String("30s"),
		}),
		"database": value.Object(map[string]value.Value{
			"host": value.String("db.internal"),
			"port": value.Int(5432),
		}),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestNewRequiresObjectRoot(t *testing.T) {
	if _, err := New(value.String("nope")); err == nil {
		t.Fatal("expected an error for a scalar root")
	}
}

func TestValueDotTraversal(t *testing.T) {
	cfg := testConfig(t)

	v, err := cfg.Value("database.port")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i, ok := v.AsInt(); !ok || i != 5432 {
		t.Errorf("database.port = %s", v)
	}
}

func TestValueMissingPathCarriesFullPath(t *testing.T) {
	cfg := testConfig(t)

	_, err := cfg.Value("database.replica.host")
	var knf *value.KeyNotFoundError
	if !errors.As(err, &knf) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
	if knf.Key != "database.replica.host" {
		t.Errorf("error key = %q, want the full path", knf.Key)
	}
}

func TestHas(t *testing.T) {
	cfg := testConfig(t)
	if !cfg.Has("app.name") {
		t.Error("Has(app.name) = false")
	}
	if cfg.Has("app.missing") {
		t.Error("Has(app.missing) = true")
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Set("cache.redis.addr", value.String("localhost:6379"))

	got, ok := cfg.StringVal("cache.redis.addr")
	if !ok || got != "localhost:6379" {
		t.Errorf("cache.redis.addr = %q, %v", got, ok)
	}
}

func TestSetReplacesNonObjectIntermediate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Set("app.name.first", value.String("d"))

	got, ok := cfg.StringVal("app.name.first")
	if !ok || got != "d" {
		t.Errorf("app.name.first = %q, %v", got, ok)
	}
	// siblings of the replaced intermediate survive
	if _, ok := cfg.BoolVal("app.debug"); !ok {
		t.Error("app.debug lost by an unrelated Set")
	}
}

func TestSetEmptyPathIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	before := cfg.Data()

	fired := false
	cfg.OnChange(func(Event) { fired = true })
	cfg.Set("", value.String("stray"))

	if !cfg.Data().Equal(before) {
		t.Error("tree changed on an empty path")
	}
	if fired {
		t.Error("change event fired on an empty path")
	}
}

func TestSetFiresChangeEvents(t *testing.T) {
	cfg := testConfig(t)

	var got Event
	cfg.OnChange(func(e Event) { got = e })
	cfg.Set("database.port", value.Int(6543))

	if got.Path != "database.port" {
		t.Fatalf("event path = %q", got.Path)
	}
	if prev, ok := got.Previous.AsInt(); !ok || prev != 5432 {
		t.Errorf("event previous = %s", got.Previous)
	}
	if cur, ok := got.Current.AsInt(); !ok || cur != 6543 {
		t.Errorf("event current = %s", got.Current)
	}
}

func TestDataIsDetached(t *testing.T) {
	cfg := testConfig(t)
	data := cfg.Data()

	cfg.Set("database.port", value.Int(1))

	db, _ := data.Get("database")
	port, _ := db.Get("port")
	if i, _ := port.AsInt(); i != 5432 {
		t.Error("Data() snapshot changed after a later Set")
	}
}

type serverSettings struct {
	Host string `prefer:"host"`
	Port uint16 `prefer:"port"`
}

func TestUnmarshalKey(t *testing.T) {
	cfg := testConfig(t)

	var s serverSettings
	if err := cfg.UnmarshalKey("database", &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Host != "db.internal" || s.Port != 5432 {
		t.Errorf("decoded %+v", s)
	}
}

func TestUnmarshalKeyQualifiesErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Set("database.port", value.String("not-a-port"))

	var s serverSettings
	err := cfg.UnmarshalKey("database", &s)
	var ce *value.ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if ce.Key != "database.port" {
		t.Errorf("error key = %q, want database.port", ce.Key)
	}
}

type validatedSettings struct {
	Host string `prefer:"host"`
	Port uint16 `prefer:"port"`
}

func (v *validatedSettings) Validate() error {
	if v.Port == 0 {
		return errors.New("port must be set")
	}
	return nil
}

func TestUnmarshalRunsValidate(t *testing.T) {
	cfg, err := New(value.Object(map[string]value.Value{
		"host": value.String("h"),
		"port": value.Int(0),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var s validatedSettings
	if err := cfg.Unmarshal(&s); err == nil {
		t.Fatal("expected the Validable hook to fail the decode")
	}
}

func TestTypedGetters(t *testing.T) {
	cfg := testConfig(t)

	if got, ok := cfg.StringVal("app.name"); !ok || got != "demo" {
		t.Errorf("StringVal = %q, %v", got, ok)
	}
	if got, ok := cfg.IntVal("database.port"); !ok || got != 5432 {
		t.Errorf("IntVal = %d, %v", got, ok)
	}
	if got, ok := cfg.BoolVal("app.debug"); !ok || !got {
		t.Errorf("BoolVal = %v, %v", got, ok)
	}
	if got, ok := cfg.FloatVal("app.ratio"); !ok || got != 0.5 {
		t.Errorf("FloatVal = %f, %v", got, ok)
	}
	if got, ok := cfg.DurationVal("app.timeout"); !ok || got != 30*time.Second {
		t.Errorf("DurationVal = %v, %v", got, ok)
	}

	// no cross-kind coercion
	if _, ok := cfg.IntVal("app.name"); ok {
		t.Error("IntVal coerced a string")
	}
	if _, ok := cfg.StringVal("database.port"); ok {
		t.Error("StringVal coerced an integer")
	}
	if _, ok := cfg.IntVal("no.such.path"); ok {
		t.Error("IntVal reported a missing path")
	}
}

func TestGetFreeFunction(t *testing.T) {
	cfg := testConfig(t)

	s, err := Get[serverSettings](cfg, "database")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Host != "db.internal" {
		t.Errorf("decoded %+v", s)
	}

	_, err = Get[int64](cfg, "app.name")
	var ce *value.ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if ce.Key != "app.name" {
		t.Errorf("error key = %q", ce.Key)
	}
}

func TestVisitPath(t *testing.T) {
	cfg := testConfig(t)

	got, err := VisitPath[int64](cfg, "database.port", value.ExtractVisitor[int64]{})
	if err != nil || got != 5432 {
		t.Fatalf("VisitPath = %v, %v", got, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "app.json")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	reloaded, err := NewBuilder().WithFile(path).Build(t.Context())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reloaded.Data().Equal(cfg.Data()) {
		t.Errorf("round trip changed the tree:\n%s\n%s", cfg.Data(), reloaded.Data())
	}
}

func TestSaveUnknownExtension(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Save(filepath.Join(t.TempDir(), "app.properties")); err == nil {
		t.Fatal("expected an error for an unregistered extension")
	}
}
