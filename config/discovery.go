package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/format"
)

// searchDirs lists the directories Find probes, most specific first: the
// working directory, the XDG config home and dirs, the home directory, and
// the conventional /etc ladder.
func searchDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, xdg)
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config"))
	}
	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		dirs = append(dirs, filepath.SplitList(xdgDirs)...)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return append(dirs, "/usr/local/etc", "/usr/etc", "/etc")
}

// Find locates a configuration file by base name, probing every registered
// format extension in every search directory. The first existing regular
// file wins.
func Find(name string) (string, error) {
	dirs := searchDirs()
	exts := format.Extensions()
	for _, dir := range dirs {
		for _, ext := range exts {
			candidate := filepath.Join(dir, name+"."+ext)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			return candidate, nil
		}
	}
	return "", errors.New("no configuration file found", errors.CategoryOperation).
		WithTextCode("CONFIG_NOT_FOUND").
		WithMetadata(map[string]any{
			"name":       name,
			"searched":   dirs,
			"extensions": exts,
		})
}

// Load discovers a configuration file by name and builds from it with the
// default builder stack.
func Load(ctx context.Context, name string) (*Config, error) {
	path, err := Find(name)
	if err != nil {
		return nil, err
	}
	return NewBuilder().WithFile(path).Build(ctx)
}
