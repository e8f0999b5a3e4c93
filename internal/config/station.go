package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical station defaults file.
const DefaultConfigPath = "config/station.defaults.json"

// StationConfig holds the tuning parameters for the fusion pipeline. Fields
// are pointers so a partial JSON file only overrides the values it names;
// the Get* accessors supply defaults for everything left nil.
type StationConfig struct {
	// Weight stability params
	StabilityCheckSamples   *int     `json:"stability_check_samples,omitempty"`
	StabilityThresholdGrams *float64 `json:"stability_threshold_grams,omitempty"`

	// Weight lookup params
	StableWeightQueryWindowSeconds *float64 `json:"stable_weight_query_window_seconds,omitempty"`
	MaxWaitTimeForWeightMs         *int     `json:"max_wait_time_for_weight_ms,omitempty"`
	WeightPollIntervalMs           *int     `json:"weight_poll_interval_ms,omitempty"`

	// Trigger params
	DuplicateIntervalMs *int `json:"duplicate_interval_ms,omitempty"`
	FusionDelayMs       *int `json:"fusion_delay_ms,omitempty"`

	// Collaborator timeouts
	PhotoTimeoutMs *int `json:"photo_timeout_ms,omitempty"`
	GateTimeoutMs  *int `json:"gate_timeout_ms,omitempty"`
}

// EmptyStationConfig returns a StationConfig with every field unset so all
// accessors fall back to their defaults.
func EmptyStationConfig() *StationConfig {
	return &StationConfig{}
}

// LoadStationConfig loads a StationConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func LoadStationConfig(path string) (*StationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyStationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *StationConfig) Validate() error {
	if c.StabilityCheckSamples != nil && *c.StabilityCheckSamples < 2 {
		return fmt.Errorf("stability_check_samples must be at least 2, got %d", *c.StabilityCheckSamples)
	}
	if c.StabilityThresholdGrams != nil && *c.StabilityThresholdGrams <= 0 {
		return fmt.Errorf("stability_threshold_grams must be positive, got %f", *c.StabilityThresholdGrams)
	}
	if c.StableWeightQueryWindowSeconds != nil && *c.StableWeightQueryWindowSeconds <= 0 {
		return fmt.Errorf("stable_weight_query_window_seconds must be positive, got %f", *c.StableWeightQueryWindowSeconds)
	}
	if c.MaxWaitTimeForWeightMs != nil && *c.MaxWaitTimeForWeightMs < 0 {
		return fmt.Errorf("max_wait_time_for_weight_ms must be non-negative, got %d", *c.MaxWaitTimeForWeightMs)
	}
	if c.WeightPollIntervalMs != nil && *c.WeightPollIntervalMs <= 0 {
		return fmt.Errorf("weight_poll_interval_ms must be positive, got %d", *c.WeightPollIntervalMs)
	}
	if c.DuplicateIntervalMs != nil && *c.DuplicateIntervalMs < 0 {
		return fmt.Errorf("duplicate_interval_ms must be non-negative, got %d", *c.DuplicateIntervalMs)
	}
	if c.FusionDelayMs != nil && *c.FusionDelayMs < 0 {
		return fmt.Errorf("fusion_delay_ms must be non-negative, got %d", *c.FusionDelayMs)
	}
	if c.PhotoTimeoutMs != nil && *c.PhotoTimeoutMs < 0 {
		return fmt.Errorf("photo_timeout_ms must be non-negative, got %d", *c.PhotoTimeoutMs)
	}
	if c.GateTimeoutMs != nil && *c.GateTimeoutMs < 0 {
		return fmt.Errorf("gate_timeout_ms must be non-negative, got %d", *c.GateTimeoutMs)
	}
	return nil
}

// GetStabilityCheckSamples returns the sliding window size or the default.
func (c *StationConfig) GetStabilityCheckSamples() int {
	if c.StabilityCheckSamples == nil {
		return 5
	}
	return *c.StabilityCheckSamples
}

// GetStabilityThresholdGrams returns the stability threshold or the default.
func (c *StationConfig) GetStabilityThresholdGrams() float64 {
	if c.StabilityThresholdGrams == nil {
		return 20.0
	}
	return *c.StabilityThresholdGrams
}

// GetStableWeightQueryWindow returns the backward lookup window.
func (c *StationConfig) GetStableWeightQueryWindow() time.Duration {
	if c.StableWeightQueryWindowSeconds == nil {
		return 5 * time.Second
	}
	return time.Duration(*c.StableWeightQueryWindowSeconds * float64(time.Second))
}

// GetMaxWaitTimeForWeight returns the forward weight wait budget.
func (c *StationConfig) GetMaxWaitTimeForWeight() time.Duration {
	if c.MaxWaitTimeForWeightMs == nil {
		return 2000 * time.Millisecond
	}
	return time.Duration(*c.MaxWaitTimeForWeightMs) * time.Millisecond
}

// GetWeightPollInterval returns the forward wait polling period.
func (c *StationConfig) GetWeightPollInterval() time.Duration {
	if c.WeightPollIntervalMs == nil {
		return 20 * time.Millisecond
	}
	return time.Duration(*c.WeightPollIntervalMs) * time.Millisecond
}

// GetDuplicateInterval returns the duplicate suppression window.
func (c *StationConfig) GetDuplicateInterval() time.Duration {
	if c.DuplicateIntervalMs == nil {
		return 500 * time.Millisecond
	}
	return time.Duration(*c.DuplicateIntervalMs) * time.Millisecond
}

// GetFusionDelay returns the post-trigger fusion delay.
func (c *StationConfig) GetFusionDelay() time.Duration {
	if c.FusionDelayMs == nil {
		return 300 * time.Millisecond
	}
	return time.Duration(*c.FusionDelayMs) * time.Millisecond
}

// GetPhotoTimeout returns the one-shot photo capture budget.
func (c *StationConfig) GetPhotoTimeout() time.Duration {
	if c.PhotoTimeoutMs == nil {
		return 5000 * time.Millisecond
	}
	return time.Duration(*c.PhotoTimeoutMs) * time.Millisecond
}

// GetGateTimeout returns the measurement gate acquire budget.
func (c *StationConfig) GetGateTimeout() time.Duration {
	if c.GateTimeoutMs == nil {
		return 1000 * time.Millisecond
	}
	return time.Duration(*c.GateTimeoutMs) * time.Millisecond
}
