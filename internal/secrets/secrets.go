// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves credentials for the research CLI. A secret comes
// from a key file in the secrets directory (file name is the key, trimmed
// contents the value) or, when no file provides it, from an environment
// variable derived from the key.
//
// Known keys: agent-api-key (bearer token for the research agent service).
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AgentAPIKey is the secret holding the agent service's bearer token.
const AgentAPIKey = "agent-api-key"

// Set is the secrets visible to one CLI invocation. The zero value and a nil
// *Set resolve every key from the environment with no prefix.
type Set struct {
	files     map[string]string
	envPrefix string
}

// Load reads the key files in dir. A missing directory is not an error.
// Empty files and dotfiles are skipped; unreadable files are reported to warn
// and skipped. Keys without a file resolve from the environment variable
// EnvName(envPrefix, key).
func Load(dir, envPrefix string, warn io.Writer) (*Set, error) {
	s := &Set{files: make(map[string]string), envPrefix: envPrefix}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if warn != nil {
				fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			}
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s.files[name] = value
		}
	}
	return s, nil
}

// Get returns the value for key: the key file when one was loaded, otherwise
// the trimmed environment variable. It returns "" when neither is set.
func (s *Set) Get(key string) string {
	var prefix string
	if s != nil {
		if v := s.files[key]; v != "" {
			return v
		}
		prefix = s.envPrefix
	}
	return strings.TrimSpace(os.Getenv(EnvName(prefix, key)))
}

// FileKeys returns the keys loaded from files, sorted.
func (s *Set) FileKeys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvName maps a key to its environment variable: upper case, dashes become
// underscores, joined to prefix with an underscore.
func EnvName(prefix, key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if prefix == "" {
		return name
	}
	return strings.ToUpper(prefix) + "_" + name
}
