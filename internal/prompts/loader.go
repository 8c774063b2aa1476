// Package prompts provides a loader for externalized LLM prompt templates.
// Prompts are stored as JSON files and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Store loads prompt files from a filesystem and caches the parsed maps.
// Each Store owns its cache, so engines and tests do not share state.
type Store struct {
	fsys    fs.FS
	cacheMu sync.RWMutex
	cache   map[string]map[string]string
}

// NewStore creates a Store reading from fsys.
func NewStore(fsys fs.FS) *Store {
	return &Store{
		fsys:  fsys,
		cache: make(map[string]map[string]string),
	}
}

// Embedded returns a new Store over the prompt files compiled into the binary.
func Embedded() *Store {
	return NewStore(promptFiles)
}

var defaultStore = Embedded()

// Get retrieves a prompt by filename and key from the embedded prompts.
func Get(filename, key string) (string, error) {
	return defaultStore.Get(filename, key)
}

// MustGet retrieves a prompt by filename and key, panicking if not found.
// Use this for prompts that are required at initialization time.
func MustGet(filename, key string) string {
	return defaultStore.MustGet(filename, key)
}

// List returns all available prompt keys in an embedded file, sorted.
func List(filename string) ([]string, error) {
	return defaultStore.List(filename)
}

// ClearCache clears the default store's cache. Useful for testing.
func ClearCache() {
	defaultStore.ClearCache()
}

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "recovery.json").
func (s *Store) Get(filename, key string) (string, error) {
	prompts, err := s.loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// MustGet retrieves a prompt, panicking if not found.
func (s *Store) MustGet(filename, key string) string {
	prompt, err := s.Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// List returns all prompt keys in a file, sorted.
func (s *Store) List(filename string) ([]string, error) {
	prompts, err := s.loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearCache drops all cached files.
func (s *Store) ClearCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]map[string]string)
	s.cacheMu.Unlock()
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

func (s *Store) loadFile(filename string) (map[string]string, error) {
	s.cacheMu.RLock()
	if prompts, exists := s.cache[filename]; exists {
		s.cacheMu.RUnlock()
		return prompts, nil
	}
	s.cacheMu.RUnlock()

	data, err := fs.ReadFile(s.fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	s.cacheMu.Lock()
	s.cache[filename] = prompts
	s.cacheMu.Unlock()

	return prompts, nil
}
