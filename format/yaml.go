package format

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/parsers/yaml"
)

func init() {
	Register(yamlFormat{})
}

type yamlFormat struct{}

func (yamlFormat) Name() string { return "yaml" }

func (yamlFormat) Extensions() []string { return []string{"yaml", "yml"} }

func (yamlFormat) Unmarshal(data []byte) (value.Value, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "invalid YAML document").
			WithTextCode("YAML_PARSE_FAILED")
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent YAML document").
			WithTextCode("YAML_NORMALIZE_FAILED")
	}
	return v, nil
}

func (f yamlFormat) Marshal(v value.Value) ([]byte, error) {
	m, err := requireObject(f.Name(), v)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Parser().Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to marshal YAML document").
			WithTextCode("YAML_MARSHAL_FAILED")
	}
	return out, nil
}
