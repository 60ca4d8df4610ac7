package resolve

import (
	"strings"

	"github.com/goliatone/go-prefer/value"
)

type variables struct {
	start string
	end   string
}

// Variables resolves ${dotted.path} references against the tree itself. A
// string that is exactly one reference is replaced by the referenced subtree
// (objects and arrays included); references embedded in a longer string
// interpolate the referenced scalar. Unresolved references are left
// unchanged.
func Variables(start, end string) Resolver {
	return &variables{start: start, end: end}
}

func (s *variables) Resolve(root value.Value) (value.Value, error) {
	return mapStrings(root, func(str string) (value.Value, error) {
		return s.resolveString(root, str), nil
	})
}

func (s *variables) resolveString(root value.Value, str string) value.Value {
	out := str
	from := 0
	for {
		i := strings.Index(out[from:], s.start)
		if i == -1 {
			break
		}
		i += from
		j := strings.Index(out[i+len(s.start):], s.end)
		if j == -1 {
			break
		}
		path := out[i+len(s.start) : i+len(s.start)+j]
		after := i + len(s.start) + j + len(s.end)

		ref, ok := lookupPath(root, path)
		if !ok {
			// unresolved: skip past this reference and keep scanning
			from = after
			continue
		}
		if i == 0 && after == len(out) {
			return ref.Clone()
		}
		text, ok := scalarText(ref)
		if !ok {
			from = after
			continue
		}
		out = out[:i] + text + out[after:]
		from = i + len(text)
	}
	return value.String(out)
}
