// Package chconfig loads and fingerprints connection settings: marshal
// the caller-visible fields, hash them, and let callers detect drift by
// comparing the hash instead of diffing structs field by field.
package chconfig

import (
	"crypto/sha256"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// BatchDefaults seeds chbulk.Options when a caller doesn't override them.
type BatchDefaults struct {
	BatchSize   int `yaml:"batch_size"`
	MaxParallel int `yaml:"max_parallel"`
}

// Settings is the connection and default-behavior configuration for one
// chclient.Client.
type Settings struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Compression string `yaml:"compression"` // "gzip" | "lz4" | "br" | ""

	Batch BatchDefaults `yaml:"batch"`

	// ServerSettings are passed through verbatim as query-string setting
	// overrides on every request.
	ServerSettings map[string]string `yaml:"server_settings"`
}

// Load reads and parses Settings from a YAML file.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse parses Settings from YAML bytes already in memory.
func Parse(raw []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Fingerprint hashes the settings (password included, since the hash is
// only ever compared, never rendered) so a caller can cheaply detect
// whether a reloaded configuration actually changed.
func (s *Settings) Fingerprint() string {
	raw, _ := yaml.Marshal(s)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%x", sum)
}
