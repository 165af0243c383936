// Package env loads environment variables from the process and
// from optional .env files, and resolves credentials for the
// source-control providers.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Loader resolves configuration values. Process environment
// always takes precedence over values loaded from files.
type Loader interface {
	// Load reads KEY=VALUE pairs from a .env file.
	Load(path string) error
	// Get returns the value of key, or "".
	Get(key string) string
	// GetRequired returns the value of key or an error if unset.
	GetRequired(key string) (string, error)
	// GetWithDefault returns the value of key or def.
	GetWithDefault(key, def string) string
	// Token returns the API token for a named provider.
	Token(provider string) string
}

// DefaultLoader implements Loader.
type DefaultLoader struct {
	mu       sync.RWMutex
	vars     map[string]string
	lookup   func(string) string
	mappings map[string][]string
}

// NewLoader creates a loader with the standard provider token
// mappings.
func NewLoader() *DefaultLoader {
	return &DefaultLoader{
		vars:   make(map[string]string),
		lookup: os.Getenv,
		mappings: map[string][]string{
			"github": {"GITHUB_TOKEN", "GH_TOKEN"},
			"gitlab": {"GITLAB_TOKEN"},
		},
	}
}

// NewLoaderFromMap creates a loader that reads from vars
// instead of the process environment.
func NewLoaderFromMap(vars map[string]string) *DefaultLoader {
	l := NewLoader()
	l.lookup = func(key string) string { return vars[key] }
	return l
}

// Load parses a .env file. Blank lines and "#" comments are
// skipped; an optional "export " prefix and surrounding quotes
// are stripped.
func (l *DefaultLoader) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", path, err)
	}
	defer file.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		l.vars[strings.TrimSpace(key)] = value
	}
	return scanner.Err()
}

func (l *DefaultLoader) Get(key string) string {
	if v := l.lookup(key); v != "" {
		return v
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vars[key]
}

func (l *DefaultLoader) GetRequired(key string) (string, error) {
	v := l.Get(key)
	if v == "" {
		return "", fmt.Errorf(
			"required environment variable %s is not set", key,
		)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(key, def string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return def
}

// Token tries each variable mapped to provider in order, then
// falls back to <PROVIDER>_TOKEN.
func (l *DefaultLoader) Token(provider string) string {
	keys, ok := l.mappings[strings.ToLower(provider)]
	if !ok {
		keys = []string{strings.ToUpper(provider) + "_TOKEN"}
	}
	for _, k := range keys {
		if v := l.Get(k); v != "" {
			return v
		}
	}
	return ""
}
