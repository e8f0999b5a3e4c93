package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyStationConfig()

	if got := cfg.GetStabilityCheckSamples(); got != 5 {
		t.Errorf("GetStabilityCheckSamples() = %d, want 5", got)
	}
	if got := cfg.GetStabilityThresholdGrams(); got != 20.0 {
		t.Errorf("GetStabilityThresholdGrams() = %v, want 20", got)
	}
	if got := cfg.GetStableWeightQueryWindow(); got != 5*time.Second {
		t.Errorf("GetStableWeightQueryWindow() = %v, want 5s", got)
	}
	if got := cfg.GetMaxWaitTimeForWeight(); got != 2*time.Second {
		t.Errorf("GetMaxWaitTimeForWeight() = %v, want 2s", got)
	}
	if got := cfg.GetWeightPollInterval(); got != 20*time.Millisecond {
		t.Errorf("GetWeightPollInterval() = %v, want 20ms", got)
	}
	if got := cfg.GetDuplicateInterval(); got != 500*time.Millisecond {
		t.Errorf("GetDuplicateInterval() = %v, want 500ms", got)
	}
	if got := cfg.GetFusionDelay(); got != 300*time.Millisecond {
		t.Errorf("GetFusionDelay() = %v, want 300ms", got)
	}
	if got := cfg.GetPhotoTimeout(); got != 5*time.Second {
		t.Errorf("GetPhotoTimeout() = %v, want 5s", got)
	}
	if got := cfg.GetGateTimeout(); got != time.Second {
		t.Errorf("GetGateTimeout() = %v, want 1s", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "station.json", `{
		"stability_check_samples": 8,
		"duplicate_interval_ms": 750
	}`)

	cfg, err := LoadStationConfig(path)
	if err != nil {
		t.Fatalf("LoadStationConfig() error: %v", err)
	}

	if got := cfg.GetStabilityCheckSamples(); got != 8 {
		t.Errorf("GetStabilityCheckSamples() = %d, want 8", got)
	}
	if got := cfg.GetDuplicateInterval(); got != 750*time.Millisecond {
		t.Errorf("GetDuplicateInterval() = %v, want 750ms", got)
	}
	// Untouched fields keep defaults.
	if got := cfg.GetFusionDelay(); got != 300*time.Millisecond {
		t.Errorf("GetFusionDelay() = %v, want default 300ms", got)
	}
}

func TestLoadConfigRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "station.yaml", `{}`)
	if _, err := LoadStationConfig(path); err == nil {
		t.Error("LoadStationConfig() accepted a non-.json file")
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := writeConfig(t, "station.json", `{not json`)
	if _, err := LoadStationConfig(path); err == nil {
		t.Error("LoadStationConfig() accepted malformed JSON")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"window of one sample", `{"stability_check_samples": 1}`},
		{"zero threshold", `{"stability_threshold_grams": 0}`},
		{"negative query window", `{"stable_weight_query_window_seconds": -1}`},
		{"negative weight wait", `{"max_wait_time_for_weight_ms": -5}`},
		{"zero poll interval", `{"weight_poll_interval_ms": 0}`},
		{"negative duplicate interval", `{"duplicate_interval_ms": -1}`},
		{"negative fusion delay", `{"fusion_delay_ms": -1}`},
		{"negative photo timeout", `{"photo_timeout_ms": -1}`},
		{"negative gate timeout", `{"gate_timeout_ms": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "station.json", tt.contents)
			if _, err := LoadStationConfig(path); err == nil {
				t.Errorf("LoadStationConfig(%s) accepted invalid value", tt.contents)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadStationConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadStationConfig() succeeded on a missing file")
	}
}
