package format

import (
	"bytes"
	stdjson "encoding/json"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/parsers/json"
)

func init() {
	Register(jsonFormat{})
}

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Extensions() []string { return []string{"json", "json5", "jsonc"} }

// Unmarshal decodes through json.Number so whole numbers stay integer nodes
// instead of collapsing to floats.
func (jsonFormat) Unmarshal(data []byte) (value.Value, error) {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "invalid JSON document").
			WithTextCode("JSON_PARSE_FAILED")
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent JSON document").
			WithTextCode("JSON_NORMALIZE_FAILED")
	}
	return v, nil
}

func (f jsonFormat) Marshal(v value.Value) ([]byte, error) {
	m, err := requireObject(f.Name(), v)
	if err != nil {
		return nil, err
	}
	out, err := json.Parser().Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to marshal JSON document").
			WithTextCode("JSON_MARSHAL_FAILED")
	}
	return out, nil
}
