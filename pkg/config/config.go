package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/dwn/pkg/log"
)

// Default resource limits, per the node's concurrency and resource model.
const (
	DefaultInlineDataThreshold = 30000
	DefaultChunkSize           = 16
	DefaultProtocolDepthLimit  = 10
	DefaultGrantDepthLimit     = 5
)

// Config holds configuration for creating a node.
type Config struct {
	// DataDir is the root directory for all bolt-backed stores.
	DataDir string `yaml:"dataDir"`

	// DefaultOwner is the DID used when a command doesn't specify one.
	DefaultOwner string `yaml:"defaultOwner"`

	// InlineDataThreshold is the encoded_data size, in bytes, at or below
	// which a Write's data is stored inline in its message rather than
	// chunked into the data store.
	InlineDataThreshold int `yaml:"inlineDataThreshold"`

	// ChunkSize records the leaf block size, in bytes, for data above
	// InlineDataThreshold. Load rejects a non-positive value, but the
	// chunker does not read this field: pkg/cid always chunks at its own
	// cid.ChunkSize constant.
	ChunkSize int `yaml:"chunkSize"`

	// ProtocolDepthLimit records how deep a protocol's RuleSet tree may
	// nest. pkg/protocol.ValidateDefinition does not read this field; it
	// enforces DefaultProtocolDepthLimit.
	ProtocolDepthLimit int `yaml:"protocolDepthLimit"`

	// GrantDepthLimit records the bound on delegated-grant recursion
	// during authorization. No component reads this field.
	GrantDepthLimit int `yaml:"grantDepthLimit"`

	// LogLevel is one of log.DebugLevel/InfoLevel/WarnLevel/ErrorLevel.
	LogLevel log.Level `yaml:"logLevel"`

	// LogJSON switches the logger from console output to JSON.
	LogJSON bool `yaml:"logJSON"`
}

// Default returns a Config with the node's default resource limits.
func Default() Config {
	return Config{
		DataDir:             "./data",
		InlineDataThreshold: DefaultInlineDataThreshold,
		ChunkSize:           DefaultChunkSize,
		ProtocolDepthLimit:  DefaultProtocolDepthLimit,
		GrantDepthLimit:     DefaultGrantDepthLimit,
		LogLevel:            log.InfoLevel,
	}
}

// Load reads a YAML config file at path, applying Default() first so
// omitted fields keep their default values. A missing .env file in the
// working directory is ignored; a present one overrides matching fields
// via environment variables prefixed DWN_.
func Load(path string) (Config, error) {
	cfg := Default()

	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DataDir == "" {
		return cfg, fmt.Errorf("config: dataDir must not be empty")
	}
	if cfg.InlineDataThreshold <= 0 {
		return cfg, fmt.Errorf("config: inlineDataThreshold must be positive")
	}
	if cfg.ChunkSize <= 0 {
		return cfg, fmt.Errorf("config: chunkSize must be positive")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DWN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DWN_DEFAULT_OWNER"); v != "" {
		cfg.DefaultOwner = v
	}
	if v := os.Getenv("DWN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = log.Level(v)
	}
}
