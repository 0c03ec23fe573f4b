package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// KeyCMakeArgs is the list of extra arguments passed to the CMake configure step.
const KeyCMakeArgs = "cmake_args"

// Config is the accumulated project configuration.
// It is safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	name   string
	values map[string][]string
}

// fileFormat is the on-disk YAML layout of a project file.
type fileFormat struct {
	Name    string              `yaml:"name,omitempty"`
	SavedAt time.Time           `yaml:"saved_at,omitempty"`
	Config  map[string][]string `yaml:"config"`
}

// New returns an empty configuration for the named project.
func New(name string) *Config {
	return &Config{name: name, values: make(map[string][]string)}
}

// Name returns the project name.
func (c *Config) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Append adds value to the end of the list stored under key.
func (c *Config) Append(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = append(c.values[key], value)
}

// AppendOnce leaves exactly one occurrence of value in the list under key.
// A missing value is appended; repeated occurrences after the first are
// removed. It reports whether the value was added.
func (c *Config) AppendOnce(key, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.values[key]
	first := slices.Index(list, value)
	if first < 0 {
		c.values[key] = append(list, value)
		return true
	}
	rest := slices.DeleteFunc(list[first+1:], func(v string) bool { return v == value })
	c.values[key] = list[:first+1+len(rest)]
	return false
}

// Get returns a copy of the list stored under key.
func (c *Config) Get(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.values[key])
}

// Contains reports whether value is in the list under key.
func (c *Config) Contains(key, value string) bool {
	return c.Count(key, value) > 0
}

// Count returns how many times value occurs in the list under key.
func (c *Config) Count(key, value string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, v := range c.values[key] {
		if v == value {
			n++
		}
	}
	return n
}

// Keys returns the configured keys in sorted order.
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parse decodes a project configuration from YAML.
func Parse(data []byte) (*Config, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	c := New(f.Name)
	for k, v := range f.Config {
		c.values[k] = v
	}
	return c, nil
}

// Load reads the project configuration at path. A missing file yields an
// empty configuration named after the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		abs, _ := filepath.Abs(path)
		return New(filepath.Base(filepath.Dir(abs))), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	c.mu.RLock()
	f := fileFormat{
		Name:    c.name,
		SavedAt: time.Now().UTC().Truncate(time.Second),
		Config:  make(map[string][]string, len(c.values)),
	}
	for k, v := range c.values {
		f.Config[k] = slices.Clone(v)
	}
	c.mu.RUnlock()

	return yaml.Marshal(&f)
}

// Save writes the configuration to path. The file is replaced atomically so
// a concurrently starting build step never reads a partial file.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".project-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
