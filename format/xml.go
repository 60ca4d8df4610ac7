package format

import (
	"github.com/clbanning/mxj/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/value"
)

func init() {
	// attributes keep their own namespace in the tree: <server tls="on"> maps
	// to {"server": {"@tls": true}}
	mxj.SetAttrPrefix("@")
	Register(xmlFormat{})
}

type xmlFormat struct{}

func (xmlFormat) Name() string { return "xml" }

func (xmlFormat) Extensions() []string { return []string{"xml"} }

// Unmarshal maps elements to objects, collapses repeated elements into
// arrays, and scalar-infers text content.
func (xmlFormat) Unmarshal(data []byte) (value.Value, error) {
	m, err := mxj.NewMapXml(data, true)
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "invalid XML document").
			WithTextCode("XML_PARSE_FAILED")
	}
	v, err := value.FromAny(map[string]any(m))
	if err != nil {
		return value.Value{}, errors.Wrap(err, errors.CategoryBadInput, "cannot represent XML document").
			WithTextCode("XML_NORMALIZE_FAILED")
	}
	return v, nil
}

func (f xmlFormat) Marshal(v value.Value) ([]byte, error) {
	obj, err := requireObject(f.Name(), v)
	if err != nil {
		return nil, err
	}
	out, err := mxj.Map(obj).XmlIndent("", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to marshal XML document").
			WithTextCode("XML_MARSHAL_FAILED")
	}
	return out, nil
}
