package source

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/format"
	"github.com/goliatone/go-prefer/value"
	"github.com/knadh/koanf/providers/file"
)

// File loads and parses one configuration file, inferring the format from
// the path's extension. The format lookup happens at load time, so formats
// registered after the source is built still resolve.
func File(path string) Source {
	return &loader{
		name:     "file:" + path,
		priority: PriorityFile,
		load: func(ctx context.Context) (value.Value, error) {
			f, err := format.ForPath(path)
			if err != nil {
				return value.Value{}, err
			}
			data, err := file.Provider(path).ReadBytes()
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to read configuration file").
					WithTextCode("FILE_LOAD_FAILED").
					WithMetadata(map[string]any{
						"filepath": path,
						"format":   f.Name(),
					})
			}
			v, err := f.Unmarshal(data)
			if err != nil {
				return value.Value{}, errors.Wrap(err, errors.CategoryOperation, "failed to parse configuration file").
					WithTextCode("FILE_PARSE_FAILED").
					WithMetadata(map[string]any{
						"filepath": path,
						"format":   f.Name(),
					})
			}
			return v, nil
		},
	}
}
