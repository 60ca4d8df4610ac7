// Package config is the user-facing façade: it layers sources into one
// value tree and exposes dot-path lookup, typed getters, struct decoding,
// change notification, saving, discovery, and file watching on top of it.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-prefer/format"
	"github.com/goliatone/go-prefer/value"
)

// Validable configurations are validated automatically after decoding.
type Validable interface {
	Validate() error
}

// Event describes one mutation of the tree.
type Event struct {
	Path     string
	Previous value.Value
	Current  value.Value
}

// Config holds a loaded configuration tree. Reads take the shared lock, so
// a Config is safe for concurrent use; mutation goes through Set.
type Config struct {
	mu       sync.RWMutex
	root     value.Value
	path     string // originating file, when loaded from one
	onChange []func(Event)
}

// New wraps an already-built tree. The tree must be an Object at the root.
func New(root value.Value) (*Config, error) {
	if !root.IsObject() {
		return nil, errors.New("configuration root must be an object", errors.CategoryBadInput).
			WithTextCode("NON_OBJECT_ROOT").
			WithMetadata(map[string]any{
				"kind": root.Kind().String(),
			})
	}
	return &Config{root: root.Clone()}, nil
}

// Path reports the file this configuration was loaded from, when known.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Value resolves a dotted path to its node. Missing segments report a
// KeyNotFoundError carrying the full requested path.
func (c *Config) Value(path string) (value.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.root, path)
}

func lookup(root value.Value, path string) (value.Value, error) {
	current := root
	for _, segment := range strings.Split(path, ".") {
		next, ok := current.Get(segment)
		if !ok {
			return value.Value{}, &value.KeyNotFoundError{Key: path}
		}
		current = next
	}
	return current, nil
}

// Has reports whether the dotted path resolves.
func (c *Config) Has(path string) bool {
	_, err := c.Value(path)
	return err == nil
}

// Set writes a node at the dotted path, creating intermediate objects as
// needed; a non-object intermediate is replaced with one. Change callbacks
// fire with the previous value after the write completes. An empty path is
// a no-op, matching Value("") which never resolves.
func (c *Config) Set(path string, v value.Value) {
	if path == "" {
		return
	}
	c.mu.Lock()
	previous, _ := lookup(c.root, path)
	c.root = setPath(c.root, strings.Split(path, "."), v)
	callbacks := make([]func(Event), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.Unlock()

	event := Event{Path: path, Previous: previous, Current: v.Clone()}
	for _, fn := range callbacks {
		fn(event)
	}
}

func setPath(node value.Value, segments []string, v value.Value) value.Value {
	if len(segments) == 0 {
		return v.Clone()
	}
	obj, ok := node.AsObject()
	fields := make(map[string]value.Value, len(obj)+1)
	if ok {
		for k, item := range obj {
			fields[k] = item
		}
	}
	fields[segments[0]] = setPath(fields[segments[0]], segments[1:], v)
	return value.Object(fields)
}

// OnChange registers a callback invoked after every Set.
func (c *Config) OnChange(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Data returns a deep copy of the whole tree.
func (c *Config) Data() value.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root.Clone()
}

// Unmarshal decodes the whole tree into target. If the target implements
// Validable, Validate runs after the decode.
func (c *Config) Unmarshal(target any) error {
	c.mu.RLock()
	root := c.root
	c.mu.RUnlock()

	if err := value.Decode(root, target); err != nil {
		return err
	}
	return validateTarget(target)
}

// UnmarshalKey decodes the subtree at the dotted path into target.
// Conversion failures inside the subtree report paths qualified from the
// root, not from the subtree.
func (c *Config) UnmarshalKey(path string, target any) error {
	sub, err := c.Value(path)
	if err != nil {
		return err
	}
	if err := value.Decode(sub, target); err != nil {
		return value.WithKey(err, path)
	}
	return validateTarget(target)
}

func validateTarget(target any) error {
	v, ok := target.(Validable)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "configuration validation failed").
			WithTextCode("CONFIG_VALIDATION_FAILED")
	}
	return nil
}

// Get extracts the node at the dotted path as a T.
func Get[T any](c *Config, path string) (T, error) {
	v, err := c.Value(path)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := value.Extract[T](v)
	if err != nil {
		var zero T
		return zero, value.WithKey(err, path)
	}
	return out, nil
}

// Visit dispatches the whole tree to a visitor.
func Visit[T any](c *Config, vis value.Visitor[T]) (T, error) {
	return value.Dispatch(c.Data(), vis)
}

// VisitPath dispatches the subtree at the dotted path to a visitor.
func VisitPath[T any](c *Config, path string, vis value.Visitor[T]) (T, error) {
	v, err := c.Value(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return value.Dispatch(v, vis)
}

// Typed getters with comma-ok shape. They never coerce: a string "8080" is
// not an int and an integer is not a string.

func (c *Config) StringVal(path string) (string, bool) {
	v, err := c.Value(path)
	if err != nil {
		return "", false
	}
	return v.AsString()
}

func (c *Config) IntVal(path string) (int64, bool) {
	v, err := c.Value(path)
	if err != nil {
		return 0, false
	}
	return v.AsInt()
}

func (c *Config) BoolVal(path string) (bool, bool) {
	v, err := c.Value(path)
	if err != nil {
		return false, false
	}
	return v.AsBool()
}

func (c *Config) FloatVal(path string) (float64, bool) {
	v, err := c.Value(path)
	if err != nil {
		return 0, false
	}
	return v.AsFloat()
}

// DurationVal reads a duration string ("30s") or integer nanoseconds.
func (c *Config) DurationVal(path string) (time.Duration, bool) {
	v, err := c.Value(path)
	if err != nil {
		return 0, false
	}
	d, err := value.Extract[time.Duration](v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Save writes the tree to a file, format chosen by extension. The write is
// atomic: a temp file in the same directory, then a rename.
func (c *Config) Save(path string) error {
	f, err := format.ForPath(path)
	if err != nil {
		return err
	}
	data, err := f.Marshal(c.Data())
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create temp file for save").
			WithTextCode("CONFIG_SAVE_FAILED").
			WithMetadata(map[string]any{"path": path})
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CategoryOperation, "failed to write configuration").
			WithTextCode("CONFIG_SAVE_FAILED").
			WithMetadata(map[string]any{"path": path})
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CategoryOperation, "failed to flush configuration").
			WithTextCode("CONFIG_SAVE_FAILED").
			WithMetadata(map[string]any{"path": path})
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CategoryOperation, "failed to replace configuration file").
			WithTextCode("CONFIG_SAVE_FAILED").
			WithMetadata(map[string]any{"path": path})
	}
	return nil
}
