package resolve

import (
	"encoding/base64"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-prefer/value"
)

type uriResolver struct {
	fsys  fs.FS
	start string
	sep   string
}

// URI resolves @proto://payload strings: @file://path is replaced with the
// file's contents (trailing newline trimmed) and @base64://payload with the
// decoded text. Unknown protocols and failed loads leave the value
// unchanged. File paths resolve against the process working directory.
func URI(start, sep string) Resolver {
	return URIWithFS(start, sep, os.DirFS("."))
}

// URIWithFS is URI over an explicit filesystem, which tests and sandboxed
// callers inject.
func URIWithFS(start, sep string, fsys fs.FS) Resolver {
	return &uriResolver{fsys: fsys, start: start, sep: sep}
}

func (s *uriResolver) Resolve(root value.Value) (value.Value, error) {
	return mapStrings(root, func(str string) (value.Value, error) {
		if !strings.HasPrefix(str, s.start) {
			return value.String(str), nil
		}
		proto, payload, ok := strings.Cut(strings.TrimPrefix(str, s.start), s.sep)
		if !ok {
			return value.String(str), nil
		}
		switch proto {
		case "file":
			content, err := fs.ReadFile(s.fsys, payload)
			if err != nil {
				return value.String(str), nil
			}
			return value.String(strings.TrimRight(string(content), "\n")), nil
		case "base64":
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return value.String(str), nil
			}
			return value.String(string(decoded)), nil
		}
		return value.String(str), nil
	})
}
