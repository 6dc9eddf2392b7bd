// Package config provides configuration management for featurize runs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/paveg/featurize/internal/features"
	"github.com/paveg/featurize/internal/resample"
	"github.com/paveg/featurize/internal/transform"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration of a feature preparation run.
type Config struct {
	// Dataset layout
	IDColumn       string `json:"id_column" yaml:"id_column"`             // Unique row identifier, excluded from features
	TargetColumn   string `json:"target_column" yaml:"target_column"`     // Binary label, excluded from features
	PrefixLength   int    `json:"prefix_length" yaml:"prefix_length"`     // Characters before the type tag in a column name
	UnknownColumns string `json:"unknown_columns" yaml:"unknown_columns"` // "drop" or "error" for untagged columns
	RowLimit       int    `json:"row_limit" yaml:"row_limit"`             // Maximum rows to read (0 = all)

	// Resampling
	UpsampleRatio float64 `json:"upsample_ratio" yaml:"upsample_ratio"` // Target minority share in [0, 1) (0 = disabled)
	Seed          uint64  `json:"seed" yaml:"seed"`                     // Random seed for resampling

	// Pipelines
	VarianceFilter    bool    `json:"variance_filter" yaml:"variance_filter"`       // Drop low-variance output columns
	VarianceThreshold float64 `json:"variance_threshold" yaml:"variance_threshold"` // Keep columns with variance above this
	Polynomial        bool    `json:"polynomial" yaml:"polynomial"`                 // Degree 2 expansion of numeric columns
	DropFirst         bool    `json:"drop_first" yaml:"drop_first"`                 // Omit the first dummy column per category
	SparseEncoding    bool    `json:"sparse_encoding" yaml:"sparse_encoding"`       // Keep dummy columns sparse until the union
	MaxCategories     int     `json:"max_categories" yaml:"max_categories"`         // Per-column category limit (0 = unlimited)

	// Execution
	Parallel       bool `json:"parallel" yaml:"parallel"`                 // Fit the four pipelines concurrently
	WorkerPoolSize int  `json:"worker_pool_size" yaml:"worker_pool_size"` // Number of worker goroutines (0 = auto-detect)

	// Diagnostics
	LogLevel          string `json:"log_level" yaml:"log_level"`                   // debug, info, warn or error
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Record per-stage metrics
}

// SystemInfo contains system information for configuration validation
type SystemInfo struct {
	CPUCount     int
	Architecture string
	OSType       string
}

// ConfigValidator validates and provides recommendations for configuration
type ConfigValidator struct {
	systemInfo SystemInfo
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultIDColumn       = "id"
	DefaultTargetColumn   = "y"
	DefaultUnknownColumns = "drop"
	DefaultSeed           = 42
	DefaultLogLevel       = "info"
)

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		IDColumn:       DefaultIDColumn,
		TargetColumn:   DefaultTargetColumn,
		PrefixLength:   features.DefaultPrefixLength,
		UnknownColumns: DefaultUnknownColumns,
		RowLimit:       0, // All rows

		UpsampleRatio: 0, // Disabled
		Seed:          DefaultSeed,

		VarianceFilter:    false,
		VarianceThreshold: 0,
		Polynomial:        false,
		DropFirst:         true,
		SparseEncoding:    false,
		MaxCategories:     transform.DefaultMaxCategories,

		Parallel:       false,
		WorkerPoolSize: 0, // Auto-detect

		LogLevel:          DefaultLogLevel,
		MetricsCollection: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.PrefixLength < 0 {
		return fmt.Errorf("PrefixLength must be non-negative, got %d", c.PrefixLength)
	}

	if _, err := features.ParseUnknownPolicy(c.UnknownColumns); err != nil {
		return fmt.Errorf("UnknownColumns must be \"drop\" or \"error\", got %q", c.UnknownColumns)
	}

	if c.IDColumn != "" && c.IDColumn == c.TargetColumn {
		return fmt.Errorf("IDColumn and TargetColumn must differ, both are %q", c.IDColumn)
	}

	if c.RowLimit < 0 {
		return fmt.Errorf("RowLimit must be non-negative, got %d", c.RowLimit)
	}

	if c.UpsampleRatio < 0 || c.UpsampleRatio >= 1 {
		return fmt.Errorf("UpsampleRatio must be in [0, 1), got %g", c.UpsampleRatio)
	}

	if c.VarianceThreshold < 0 {
		return fmt.Errorf("VarianceThreshold must be non-negative, got %g", c.VarianceThreshold)
	}

	if c.MaxCategories < 0 {
		return fmt.Errorf("MaxCategories must be non-negative, got %d", c.MaxCategories)
	}

	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LogLevel is invalid: %w", err)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for
// empty strings and zero limits
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.IDColumn == "" {
		c.IDColumn = defaults.IDColumn
	}
	if c.TargetColumn == "" {
		c.TargetColumn = defaults.TargetColumn
	}
	if c.PrefixLength == 0 {
		c.PrefixLength = defaults.PrefixLength
	}
	if c.UnknownColumns == "" {
		c.UnknownColumns = defaults.UnknownColumns
	}
	if c.MaxCategories == 0 {
		c.MaxCategories = defaults.MaxCategories
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	// Booleans, the seed and the numeric thresholds are left alone: their
	// zero values are meaningful. Start from NewConfig() for those defaults.

	return c
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data. Keys absent from data keep
// their default values.
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file on top of the defaults
func LoadFromFile(filename string) (Config, error) {
	return NewConfig().MergeFile(filename)
}

// MergeFile overlays the keys present in a JSON or YAML file onto c
func (c Config) MergeFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := c
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from FEATURIZE_* environment variables on
// top of the defaults
func LoadFromEnv() Config {
	return NewConfig().WithEnv()
}

// WithEnv overlays the FEATURIZE_* environment variables onto c. Values that
// fail to parse are ignored.
func (c Config) WithEnv() Config {
	envString("FEATURIZE_ID_COLUMN", &c.IDColumn)
	envString("FEATURIZE_TARGET_COLUMN", &c.TargetColumn)
	envInt("FEATURIZE_PREFIX_LENGTH", &c.PrefixLength)
	envString("FEATURIZE_UNKNOWN_COLUMNS", &c.UnknownColumns)
	envInt("FEATURIZE_ROW_LIMIT", &c.RowLimit)

	envFloat("FEATURIZE_UPSAMPLE_RATIO", &c.UpsampleRatio)
	if val := os.Getenv("FEATURIZE_SEED"); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			c.Seed = parsed
		}
	}

	envBool("FEATURIZE_VARIANCE_FILTER", &c.VarianceFilter)
	envFloat("FEATURIZE_VARIANCE_THRESHOLD", &c.VarianceThreshold)
	envBool("FEATURIZE_POLYNOMIAL", &c.Polynomial)
	envBool("FEATURIZE_DROP_FIRST", &c.DropFirst)
	envBool("FEATURIZE_SPARSE_ENCODING", &c.SparseEncoding)
	envInt("FEATURIZE_MAX_CATEGORIES", &c.MaxCategories)

	envBool("FEATURIZE_PARALLEL", &c.Parallel)
	envInt("FEATURIZE_WORKER_POOL_SIZE", &c.WorkerPoolSize)

	envString("FEATURIZE_LOG_LEVEL", &c.LogLevel)
	envBool("FEATURIZE_METRICS_COLLECTION", &c.MetricsCollection)

	return c
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			*dst = parsed
		}
	}
}

// ClassifierOptions returns the feature classifier options
func (c Config) ClassifierOptions() (features.Options, error) {
	policy, err := features.ParseUnknownPolicy(c.UnknownColumns)
	if err != nil {
		return features.Options{}, err
	}
	return features.Options{PrefixLength: c.PrefixLength, Unknown: policy}, nil
}

// PipelineOptions returns the options used to assemble the per-type pipelines
func (c Config) PipelineOptions() transform.Options {
	return transform.Options{
		DropFirst:         c.DropFirst,
		Polynomial:        c.Polynomial,
		VarianceFilter:    c.VarianceFilter,
		VarianceThreshold: c.VarianceThreshold,
		Sparse:            c.SparseEncoding,
		MaxCategories:     c.MaxCategories,
	}
}

// ResampleOptions returns the upsampling options
func (c Config) ResampleOptions() resample.Options {
	return resample.Options{Ratio: c.UpsampleRatio, Seed: c.Seed}
}

// GetSystemInfo returns system information for configuration validation
func GetSystemInfo() SystemInfo {
	return SystemInfo{
		CPUCount:     runtime.NumCPU(),
		Architecture: runtime.GOARCH,
		OSType:       runtime.GOOS,
	}
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		systemInfo: GetSystemInfo(),
	}
}

// Validate validates a configuration and provides recommendations
func (cv *ConfigValidator) Validate(config Config) (Config, []string, error) {
	var warnings []string
	validated := config

	if err := config.Validate(); err != nil {
		return Config{}, warnings, err
	}

	if config.WorkerPoolSize > cv.systemInfo.CPUCount*2 {
		warnings = append(warnings,
			fmt.Sprintf("Worker pool size (%d) exceeds 2x CPU count (%d), may cause contention",
				config.WorkerPoolSize, cv.systemInfo.CPUCount))
	}

	if config.VarianceThreshold > 0 && !config.VarianceFilter {
		warnings = append(warnings,
			fmt.Sprintf("Variance threshold (%g) is ignored while the variance filter is disabled",
				config.VarianceThreshold))
	}

	if config.UpsampleRatio > 0.5 {
		warnings = append(warnings,
			fmt.Sprintf("Upsample ratio (%g) makes the minority class the majority", config.UpsampleRatio))
	}

	if config.Parallel && config.WorkerPoolSize == 0 {
		validated.WorkerPoolSize = min(cv.systemInfo.CPUCount, len(features.Types()))
		warnings = append(warnings,
			fmt.Sprintf("Auto-setting worker pool size to %d (one per pipeline, capped at CPU count)",
				validated.WorkerPoolSize))
	}

	return validated, warnings, nil
}
