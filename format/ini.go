package format

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
	"gopkg.in/ini.v1"
)

func init() {
	Register(iniFormat{})
}

// defaultSection is where sectionless keys land in the tree.
const defaultSection = "default"

type iniFormat struct{}

func (iniFormat) Name() string { return "ini" }

func (iniFormat) Extensions() []string { return []string{"ini", "cfg", "conf"} }

// Unmarshal maps sections to nested objects; keys outside any section go
// under "default". Values are scalar-inferred: booleans and numbers parse
// into their own kinds, everything else stays a string.
func (iniFormat) Unmarshal(data []byte) (value.Value, error) {
	f, err := ini.Load(data)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "invalid INI document").
			WithTextCode("INI_PARSE_FAILED")
	}
	root := map[string]value.Value{}
	for _, section := range f.Sections() {
		keys := section.KeysHash()
		if len(keys) == 0 {
			continue
		}
		obj := make(map[string]value.Value, len(keys))
		for k, raw := range keys {
			obj[k] = inferScalar(raw)
		}
		name := section.Name()
		if name == ini.DefaultSection {
			name = defaultSection
		}
		root[name] = value.Object(obj)
	}
	return value.Object(root), nil
}

// Marshal renders one level of sections. The "default" entry becomes the
// sectionless block; scalar top-level entries land there too. Nesting deeper
// than section.key cannot be expressed in INI and is rejected.
func (f iniFormat) Marshal(v value.Value) ([]byte, error) {
	obj, err := requireObject(f.Name(), v)
	if err != nil {
		return nil, err
	}
	out := ini.Empty()
	for name, entry := range obj {
		section, ok := entry.(map[string]any)
		if !ok {
			def := out.Section(ini.DefaultSection)
			def.Key(name).SetValue(renderScalar(entry))
			continue
		}
		target := name
		if name == defaultSection {
			target = ini.DefaultSection
		}
		sec := out.Section(target)
		for k, item := range section {
			if _, nested := item.(map[string]any); nested {
				return nil, errors.New("INI cannot express nesting deeper than section.key", errors.CategoryBadInput).
					WithTextCode("INI_TOO_DEEP").
					WithMetadata(map[string]any{
						"section": name,
						"key":     k,
					})
			}
			sec.Key(k).SetValue(renderScalar(item))
		}
	}
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to marshal INI document").
			WithTextCode("INI_MARSHAL_FAILED")
	}
	return buf.Bytes(), nil
}

func inferScalar(s string) value.Value {
	switch s {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.String(s)
}

func renderScalar(v any) string {
	return fmt.Sprintf("%v", v)
}
