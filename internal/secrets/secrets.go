// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the generation API key from the environment and
// from a directory of plain-text files. Each file in the directory is one
// secret: the filename is the key name and the trimmed contents are the
// value.
//
// Supported key files: gemini-api-key, anthropic-api-key, drizzle-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// backendKeys maps a model-name prefix to its environment variable and
// secret file name.
var backendKeys = []struct {
	prefix  string
	envVar  string
	keyFile string
}{
	{"gemini", "GEMINI_API_KEY", "gemini-api-key"},
	{"claude", "ANTHROPIC_API_KEY", "anthropic-api-key"},
}

// ResolveAPIKey picks the API key for the given model. Precedence, highest
// first: the explicit flag value, the backend's own environment variable,
// the generic DRIZZLE_API_KEY variable, the backend's key file in dir, and
// finally the generic drizzle-api-key file. An empty result means no key
// was found anywhere.
func ResolveAPIKey(flagValue, model, dir string) string {
	if flagValue != "" {
		return flagValue
	}

	var envVar, keyFile string
	for _, b := range backendKeys {
		if strings.HasPrefix(model, b.prefix) {
			envVar, keyFile = b.envVar, b.keyFile
			break
		}
	}

	if envVar != "" {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(os.Getenv("DRIZZLE_API_KEY")); v != "" {
		return v
	}

	loaded, err := Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return ""
	}
	if keyFile != "" {
		if v := loaded[keyFile]; v != "" {
			return v
		}
	}
	return loaded["drizzle-api-key"]
}
