package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skylens/aqcast/pkg/artifact"
	"github.com/skylens/aqcast/pkg/series"
	"github.com/skylens/aqcast/pkg/store"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Store     StoreConfig    `yaml:"store"`
	Artifacts ArtifactConfig `yaml:"artifacts"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	// Backend is "badger" or "memory".
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path"`
	CompressionLevel int    `yaml:"compression_level"`
	MaxOpenFiles     int    `yaml:"max_open_files"`
}

// ArtifactConfig holds model artifact repository configuration.
type ArtifactConfig struct {
	// Backend is "s3" or "dir".
	Backend   string `yaml:"backend"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	// Dir is the bundle root for the "dir" backend.
	Dir string `yaml:"dir"`
	// WorkDir is where the "s3" backend places per-job downloads.
	WorkDir string `yaml:"work_dir"`
}

// PipelineConfig holds forecast pipeline tuning.
type PipelineConfig struct {
	// ProbeProfile is "minute" (±30m at 1m steps) or "hour" (±3h at 1h
	// steps).
	ProbeProfile string `yaml:"probe_profile"`
	Concurrency  int    `yaml:"concurrency"`
	// JobTimeoutSeconds bounds one sensor job; 0 disables the timeout.
	JobTimeoutSeconds int `yaml:"job_timeout_seconds"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		},
		Store: StoreConfig{
			Backend:          getEnv("STORE_BACKEND", "badger"),
			Path:             getEnv("STORE_PATH", "./data"),
			CompressionLevel: getEnvInt("COMPRESSION_LEVEL", 3),
			MaxOpenFiles:     getEnvInt("MAX_OPEN_FILES", 1000),
		},
		Artifacts: ArtifactConfig{
			Backend:   getEnv("ARTIFACT_BACKEND", "s3"),
			Endpoint:  getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
			Bucket:    getEnv("S3_BUCKET", "lstm-model-skylens"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Secure:    getEnvBool("S3_SECURE", true),
			Dir:       getEnv("ARTIFACT_DIR", "./models"),
			WorkDir:   getEnv("ARTIFACT_WORK_DIR", ""),
		},
		Pipeline: PipelineConfig{
			ProbeProfile:      getEnv("PROBE_PROFILE", "minute"),
			Concurrency:       getEnvInt("CONCURRENCY", 4),
			JobTimeoutSeconds: getEnvInt("JOB_TIMEOUT_SECONDS", 120),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file if present,
// with environment variables taking precedence through DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	switch c.Store.Backend {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the badger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.CompressionLevel < 1 || c.Store.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	switch c.Artifacts.Backend {
	case "s3":
		if c.Artifacts.Endpoint == "" || c.Artifacts.Bucket == "" {
			return fmt.Errorf("s3 endpoint and bucket are required")
		}
	case "dir":
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("artifact dir is required for the dir backend")
		}
	default:
		return fmt.Errorf("unknown artifact backend %q", c.Artifacts.Backend)
	}

	switch c.Pipeline.ProbeProfile {
	case "minute", "hour":
	default:
		return fmt.Errorf("unknown probe profile %q", c.Pipeline.ProbeProfile)
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	return nil
}

// ToStoreConfig converts to store.Config.
func (c *Config) ToStoreConfig() *store.Config {
	return &store.Config{
		Path:             c.Store.Path,
		CompressionLevel: c.Store.CompressionLevel,
		MaxOpenFiles:     c.Store.MaxOpenFiles,
	}
}

// ToS3Config converts to artifact.S3Config.
func (c *Config) ToS3Config() artifact.S3Config {
	return artifact.S3Config{
		Endpoint:  c.Artifacts.Endpoint,
		AccessKey: c.Artifacts.AccessKey,
		SecretKey: c.Artifacts.SecretKey,
		Bucket:    c.Artifacts.Bucket,
		Secure:    c.Artifacts.Secure,
		BaseDir:   c.Artifacts.WorkDir,
	}
}

// ProbeWindow returns the configured series probe window.
func (c *Config) ProbeWindow() series.ProbeWindow {
	if c.Pipeline.ProbeProfile == "hour" {
		return series.HourWindow
	}
	return series.MinuteWindow
}

// JobTimeout returns the per-job timeout duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Pipeline.JobTimeoutSeconds) * time.Second
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
