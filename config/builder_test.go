package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-prefer/logger"
	"github.com/goliatone/go-prefer/resolve"
	"github.com/goliatone/go-prefer/value"
	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBuildLayersByPriority(t *testing.T) {
	path := writeFile(t, "app.yaml", `
app:
  name: from-file
  debug: true
database:
  host: file-host
`)
	t.Setenv("DEMO__DATABASE__HOST", "env-host")
	t.Setenv("DEMO__DATABASE__PORT", "5433")

	cfg, err := NewBuilder().
		WithDefaults(map[string]any{
			"app.name":      "from-defaults",
			"app.workers":   4,
			"database.host": "default-host",
		}).
		WithFile(path).
		WithEnv("DEMO").
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// file beats defaults, env beats file
	if got, _ := cfg.StringVal("app.name"); got != "from-file" {
		t.Errorf("app.name = %q", got)
	}
	if got, _ := cfg.StringVal("database.host"); got != "env-host" {
		t.Errorf("database.host = %q", got)
	}
	// layers only overlay what they set
	if got, _ := cfg.IntVal("app.workers"); got != 4 {
		t.Errorf("app.workers = %d", got)
	}
	if got, _ := cfg.IntVal("database.port"); got != 5433 {
		t.Errorf("database.port = %d", got)
	}
	if got, _ := cfg.BoolVal("app.debug"); !got {
		t.Error("app.debug lost in the merge")
	}
}

func TestBuildFlagsWinOverEnv(t *testing.T) {
	t.Setenv("DEMO__APP__PORT", "8080")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("app.port", 0, "")
	if err := fs.Parse([]string{"--app.port=9090"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := NewBuilder().
		WithEnv("DEMO").
		WithFlags(fs).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got, _ := cfg.IntVal("app.port"); got != 9090 {
		t.Errorf("app.port = %d", got)
	}
}

func TestBuildOptionalFileMissing(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaults(map[string]any{"app.name": "demo"}).
		WithOptionalFile(filepath.Join(t.TempDir(), "absent.yaml")).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got, _ := cfg.StringVal("app.name"); got != "demo" {
		t.Errorf("app.name = %q", got)
	}
}

func TestBuildRequiredFileMissing(t *testing.T) {
	_, err := NewBuilder().
		WithFile(filepath.Join(t.TempDir(), "absent.yaml")).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err == nil {
		t.Fatal("expected an error for a missing required file")
	}
}

func TestBuildRunsResolvers(t *testing.T) {
	path := writeFile(t, "app.json", `{
		"app": {"name": "demo", "env": "development"},
		"greeting": "hello ${app.name}",
		"verbose": "{{ app.env == \"development\" }}"
	}`)

	cfg, err := NewBuilder().
		WithFile(path).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if got, _ := cfg.StringVal("greeting"); got != "hello demo" {
		t.Errorf("greeting = %q", got)
	}
	if got, ok := cfg.BoolVal("verbose"); !ok || !got {
		t.Errorf("verbose = %v, %v", got, ok)
	}
}

func TestBuildMultiPassResolution(t *testing.T) {
	path := writeFile(t, "app.json", `{
		"a": "base",
		"b": "${a}-1",
		"c": "${b}-2"
	}`)

	cfg, err := NewBuilder().
		WithFile(path).
		WithResolverPasses(3).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got, _ := cfg.StringVal("c"); got != "base-1-2" {
		t.Errorf("c = %q", got)
	}
}

func TestBuildCustomResolverReplacesDefaults(t *testing.T) {
	path := writeFile(t, "app.json", `{"name": "%name%", "greeting": "${name}"}`)

	cfg, err := NewBuilder().
		WithFile(path).
		WithResolvers(resolve.Variables("%", "%")).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// ${} untouched once the default stack is replaced
	if got, _ := cfg.StringVal("greeting"); got != "${name}" {
		t.Errorf("greeting = %q", got)
	}
}

func TestBuildHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewBuilder().
		WithDefaults(map[string]any{"a": 1}).
		WithLogger(logger.Noop{}).
		Build(ctx)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestBuildNoSources(t *testing.T) {
	cfg, err := NewBuilder().WithLogger(logger.Noop{}).Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	obj, ok := cfg.Data().AsObject()
	if !ok || len(obj) != 0 {
		t.Errorf("root = %s, want an empty object", cfg.Data())
	}
}

func TestBuildStructDefaults(t *testing.T) {
	type appDefaults struct {
		Name    string `prefer:"name"`
		Workers int    `prefer:"workers"`
	}

	cfg, err := NewBuilder().
		WithStruct(appDefaults{Name: "demo", Workers: 2}).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got, _ := cfg.StringVal("name"); got != "demo" {
		t.Errorf("name = %q", got)
	}
	if got, _ := cfg.IntVal("workers"); got != 2 {
		t.Errorf("workers = %d", got)
	}
	if cfg.Data().Equal(value.Null()) {
		t.Error("unexpected null root")
	}
}

func TestBuildFromURI(t *testing.T) {
	path := writeFile(t, "app.yaml", "app:\n  name: demo\n")

	cfg, err := NewBuilder().
		WithURI("file://" + path).
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got, _ := cfg.StringVal("app.name"); got != "demo" {
		t.Errorf("app.name = %q", got)
	}
}

func TestBuildFromURIUnknownScheme(t *testing.T) {
	_, err := NewBuilder().
		WithURI("gopher://example/config").
		WithLogger(logger.Noop{}).
		Build(t.Context())
	if err == nil {
		t.Fatal("expected an error for an unregistered scheme")
	}
	if !strings.Contains(err.Error(), "no source registered") {
		t.Errorf("err = %v", err)
	}
}
