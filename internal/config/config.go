// Package config holds the server configuration, overlaid on defaults from
// whatever JSON the client hands over.
package config

import (
	"encoding/json"
	"fmt"
	"io"
)

type Config struct {
	DefaultLanguage string `json:"default_language"`
	TimeoutMicros   uint64 `json:"timeout_micros"`
	ChunkSize       int    `json:"chunk_size"`
	IndexPath       string `json:"index_path"`
}

var defaultConfig = Config{
	DefaultLanguage: "go",
	TimeoutMicros:   0,
	ChunkSize:       4096,
}

// Load overlays the fields present in src on the defaults. src is any
// JSON-marshalable value, typically the LSP initialization options.
func Load(src any) (Config, error) {
	cfg := defaultConfig

	data, err := json.Marshal(src)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := defaultConfig

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
