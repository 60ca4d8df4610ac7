package format

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/parsers/toml"
)

func init() {
	Register(tomlFormat{})
}

type tomlFormat struct{}

func (tomlFormat) Name() string { return "toml" }

func (tomlFormat) Extensions() []string { return []string{"toml"} }

// Unmarshal parses TOML; datetime values come back as time.Time and
// normalize into RFC 3339 strings.
func (tomlFormat) Unmarshal(data []byte) (value.Value, error) {
	raw, err := toml.Parser().Unmarshal(data)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "invalid TOML document").
			WithTextCode("TOML_PARSE_FAILED")
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent TOML document").
			WithTextCode("TOML_NORMALIZE_FAILED")
	}
	return v, nil
}

func (f tomlFormat) Marshal(v value.Value) ([]byte, error) {
	m, err := requireObject(f.Name(), v)
	if err != nil {
		return nil, err
	}
	out, err := toml.Parser().Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to marshal TOML document").
			WithTextCode("TOML_MARSHAL_FAILED")
	}
	return out, nil
}
