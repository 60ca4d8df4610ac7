package source

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/format"
	"github.com/goliatone/go-prefer/value"
	"github.com/tidwall/sjson"
)

// DefaultEnvSeparator splits environment variable names into path segments;
// the double underscore leaves single underscores free for composed words:
// APP_DATABASE__MAX_CONNS=10 becomes database.max_conns.
const DefaultEnvSeparator = "__"

// Env reads environment variables with the given prefix into a tree using
// the default separator.
func Env(prefix string) Source {
	return EnvWithSeparator(prefix, DefaultEnvSeparator)
}

// EnvWithSeparator reads prefixed environment variables into a tree. Each
// variable is written into a JSON document at its dotted path and the
// document is parsed by the JSON format, so numeric path segments build
// arrays:
//
//	APP_SERVERS__0__HOST=a
//	APP_SERVERS__1__HOST=b
//
// yields {"servers": [{"host": "a"}, {"host": "b"}]}. Values are
// scalar-inferred: booleans and numbers parse into their own kinds.
func EnvWithSeparator(prefix, sep string) Source {
	return &loader{
		name:     "env:" + prefix,
		priority: PriorityEnv,
		load: func(ctx context.Context) (value.Value, error) {
			doc := "{}"
			for _, pair := range os.Environ() {
				if !strings.HasPrefix(pair, prefix) {
					continue
				}
				name, raw, _ := strings.Cut(pair, "=")
				path := strings.ReplaceAll(
					strings.ToLower(strings.TrimPrefix(name, prefix)), sep, ".")
				path = strings.Trim(path, ".")
				if path == "" {
					continue
				}
				next, err := sjson.Set(doc, path, envScalar(raw))
				if err != nil {
					return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to place environment variable").
						WithTextCode("ENV_LOAD_FAILED").
						WithMetadata(map[string]any{
							"variable": name,
							"path":     path,
						})
				}
				doc = next
			}
			jsonFormat, err := format.ByName("json")
			if err != nil {
				return value.Value{}, err
			}
			return jsonFormat.Unmarshal([]byte(doc))
		},
	}
}

func envScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
