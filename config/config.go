// Package config holds the store's configuration surface: batch size,
// index-kind preference, error-message bounds, and embedding strictness.
// Plain JSON-tagged structs, nested by concern; no env/flag binding.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// VMinIndexKind selects the physical index type hinted for v_min/v_max.
type VMinIndexKind string

const (
	IndexKindBRIN  VMinIndexKind = "brin"
	IndexKindBTree VMinIndexKind = "btree"
)

// Config is the store's configuration. Nested by concern, no env/flag
// binding magic — a caller builds or loads one explicitly and passes it
// into store.NewBase.
type Config struct {
	Store StoreConfig `json:"store"`
	Log   LogConfig   `json:"log"`
}

// StoreConfig holds the store layer's tuning knobs.
type StoreConfig struct {
	// BatchSize bounds how many rows go into one bulk INSERT statement.
	BatchSize int `json:"batch_size"`
	// VMinIndexKind is the index-type hint used for the v_min/v_max
	// block-range indexes; falls back to a plain b-tree on backends that
	// don't support BRIN.
	VMinIndexKind VMinIndexKind `json:"vmin_index_kind"`
	// MaxErrorMessageBytes bounds a computed column's stored error message.
	MaxErrorMessageBytes int `json:"max_error_message_bytes"`
	// StrictEmbeddingErrors, when true, treats an exception in an embedding
	// slot as an invariant violation. Disabling it makes the loader log and
	// skip the row's embedding instead, for callers that would rather lose
	// one vector than abort a whole back-fill.
	StrictEmbeddingErrors bool `json:"strict_embedding_errors"`
	// Driver selects the backend SQL dialect: "sqlite", "mysql", "postgres".
	Driver string `json:"driver"`
	// ProgressLogEvery flushes a progress log line every N rows inserted;
	// 0 disables progress logging entirely.
	ProgressLogEvery int `json:"progress_log_every"`
	// LogStatements, when true, logs every DDL/DML statement the store
	// issues (op + SQL text, not bind args) at a debug level.
	LogStatements bool `json:"log_statements"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `json:"level"`
}

// Default returns the recommended configuration: batch_size 16,
// vmin_index_kind "brin", max_error_message_bytes 65536,
// strict_embedding_errors true.
func Default() Config {
	return Config{
		Store: StoreConfig{
			BatchSize:             16,
			VMinIndexKind:         IndexKindBRIN,
			MaxErrorMessageBytes:  65536,
			StrictEmbeddingErrors: true,
			Driver:                "sqlite",
			ProgressLogEvery:      1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a JSON config file, applying defaults for zero-valued fields
// missing from the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
