package format

import (
	"testing"

	"github.com/goliatone/go-prefer/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookups(t *testing.T) {
	for _, name := range []string{"json", "yaml", "toml", "ini", "xml"} {
		f, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name())
	}

	f, err := ByExtension(".yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", f.Name())

	f, err = ForPath("/etc/app/config.toml")
	require.NoError(t, err)
	assert.Equal(t, "toml", f.Name())

	exts := Extensions()
	assert.Contains(t, exts, "json")
	assert.Contains(t, exts, "yml")
	assert.Contains(t, exts, "ini")
}

func TestRegistryUnknown(t *testing.T) {
	_, err := ByName("hcl")
	assert.Error(t, err)

	_, err = ByExtension(".properties")
	assert.Error(t, err)

	_, err = ForPath("Procfile")
	assert.Error(t, err)
}

func TestJSONUnmarshalKeepsIntegers(t *testing.T) {
	f, err := ByName("json")
	require.NoError(t, err)

	v, err := f.Unmarshal([]byte(`{
		"port": 8080,
		"ratio": 0.5,
		"name": "app",
		"debug": true,
		"tags": ["a", "b"],
		"extra": null
	}`))
	require.NoError(t, err)

	port, ok := v.Get("port")
	require.True(t, ok)
	i, ok := port.AsInt()
	assert.True(t, ok, "whole JSON numbers must stay integer nodes")
	assert.Equal(t, int64(8080), i)

	ratio, _ := v.Get("ratio")
	assert.True(t, ratio.IsFloat())

	extra, _ := v.Get("extra")
	assert.True(t, extra.IsNull())

	tags, _ := v.Get("tags")
	assert.Equal(t, 2, tags.Len())
}

func TestJSONInvalid(t *testing.T) {
	f, err := ByName("json")
	require.NoError(t, err)
	_, err = f.Unmarshal([]byte(`{"port": `))
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	f, err := ByName("json")
	require.NoError(t, err)

	in := value.Object(map[string]value.Value{
		"server": value.Object(map[string]value.Value{
			"host": value.String("localhost"),
			"port": value.Int(8080),
		}),
		"ratio": value.Float(0.25),
		"on":    value.Bool(true),
	})
	data, err := f.Marshal(in)
	require.NoError(t, err)

	out, err := f.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "round trip changed the tree: %s != %s", in, out)
}

func TestMarshalRequiresObject(t *testing.T) {
	for _, name := range []string{"json", "yaml", "toml", "ini", "xml"} {
		f, err := ByName(name)
		require.NoError(t, err)
		_, err = f.Marshal(value.String("scalar"))
		assert.Error(t, err, name)
	}
}

func TestYAMLUnmarshal(t *testing.T) {
	f, err := ByName("yaml")
	require.NoError(t, err)

	v, err := f.Unmarshal([]byte(`
server:
  host: localhost
  port: 8080
tags:
  - a
  - b
debug: true
`))
	require.NoError(t, err)

	host, ok := v.Get("server")
	require.True(t, ok)
	h, _ := host.Get("host")
	s, ok := h.AsString()
	require.True(t, ok)
	assert.Equal(t, "localhost", s)

	port, _ := host.Get("port")
	p, ok := port.AsFloat()
	require.True(t, ok)
	assert.Equal(t, float64(8080), p)
}

func TestTOMLUnmarshal(t *testing.T) {
	f, err := ByName("toml")
	require.NoError(t, err)

	v, err := f.Unmarshal([]byte(`
title = "example"

[database]
host = "db.internal"
port = 5432
`))
	require.NoError(t, err)

	title, _ := v.Get("title")
	s, _ := title.AsString()
	assert.Equal(t, "example", s)

	db, ok := v.Get("database")
	require.True(t, ok)
	port, _ := db.Get("port")
	p, ok := port.AsFloat()
	require.True(t, ok)
	assert.Equal(t, float64(5432), p)
}

func TestINIUnmarshal(t *testing.T) {
	f, err := ByName("ini")
	require.NoError(t, err)

	v, err := f.Unmarshal([]byte(`
timeout = 30

[server]
host = localhost
port = 8080
tls = true
ratio = 0.5
`))
	require.NoError(t, err)

	def, ok := v.Get("default")
	require.True(t, ok, "sectionless keys must land under default")
	timeout, _ := def.Get("timeout")
	i, ok := timeout.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(30), i)

	server, ok := v.Get("server")
	require.True(t, ok)
	tls, _ := server.Get("tls")
	b, ok := tls.AsBool()
	require.True(t, ok)
	assert.True(t, b)

	ratio, _ := server.Get("ratio")
	assert.True(t, ratio.IsFloat())

	host, _ := server.Get("host")
	assert.True(t, host.IsString())
}

func TestINIRoundTrip(t *testing.T) {
	f, err := ByName("ini")
	require.NoError(t, err)

	in := value.Object(map[string]value.Value{
		"default": value.Object(map[string]value.Value{
			"timeout": value.Int(30),
		}),
		"server": value.Object(map[string]value.Value{
			"host": value.String("localhost"),
			"port": value.Int(8080),
		}),
	})
	data, err := f.Marshal(in)
	require.NoError(t, err)

	out, err := f.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "round trip changed the tree: %s != %s", in, out)
}

func TestINIRejectsDeepNesting(t *testing.T) {
	f, err := ByName("ini")
	require.NoError(t, err)

	_, err = f.Marshal(value.Object(map[string]value.Value{
		"server": value.Object(map[string]value.Value{
			"tls": value.Object(map[string]value.Value{
				"cert": value.String("/etc/cert.pem"),
			}),
		}),
	}))
	assert.Error(t, err)
}

func TestXMLUnmarshal(t *testing.T) {
	f, err := ByName("xml")
	require.NoError(t, err)

	v, err := f.Unmarshal([]byte(`
<config>
  <server tls="true">
    <host>db.internal</host>
    <port>5432</port>
  </server>
  <tag>a</tag>
  <tag>b</tag>
</config>`))
	require.NoError(t, err)

	root, ok := v.Get("config")
	require.True(t, ok)

	server, ok := root.Get("server")
	require.True(t, ok)

	tls, ok := server.Get("@tls")
	require.True(t, ok, "attributes must map to @-prefixed keys")
	b, ok := tls.AsBool()
	require.True(t, ok)
	assert.True(t, b)

	port, _ := server.Get("port")
	p, ok := port.AsFloat()
	require.True(t, ok, "numeric text content must be scalar-inferred")
	assert.Equal(t, float64(5432), p)

	tags, ok := root.Get("tag")
	require.True(t, ok)
	assert.True(t, tags.IsArray(), "repeated elements must collapse into an array")
	assert.Equal(t, 2, tags.Len())
}

func TestXMLMarshal(t *testing.T) {
	f, err := ByName("xml")
	require.NoError(t, err)

	data, err := f.Marshal(value.Object(map[string]value.Value{
		"config": value.Object(map[string]value.Value{
			"host": value.String("localhost"),
		}),
	}))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<host>localhost</host>")
}
