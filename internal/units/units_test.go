package units

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGramsToKilograms(t *testing.T) {
	tests := []struct {
		name     string
		grams    float64
		expected float64
	}{
		{"zero", 0, 0},
		{"default threshold", 20, 0.02},
		{"one kilogram", 1000, 1.0},
		{"fractional", 2.5, 0.0025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GramsToKilograms(tt.grams); !almostEqual(got, tt.expected) {
				t.Errorf("GramsToKilograms(%v) = %v, want %v", tt.grams, got, tt.expected)
			}
		})
	}
}

func TestKilogramsToGrams(t *testing.T) {
	if got := KilogramsToGrams(0.02); !almostEqual(got, 20) {
		t.Errorf("KilogramsToGrams(0.02) = %v, want 20", got)
	}
}

func TestMillimetersToCentimeters(t *testing.T) {
	tests := []struct {
		name     string
		mm       float64
		expected float64
	}{
		{"zero", 0, 0},
		{"whole", 350, 35},
		{"fractional", 125.5, 12.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MillimetersToCentimeters(tt.mm); !almostEqual(got, tt.expected) {
				t.Errorf("MillimetersToCentimeters(%v) = %v, want %v", tt.mm, got, tt.expected)
			}
		})
	}
}

func TestVolumeCm3(t *testing.T) {
	if got := VolumeCm3(30, 20, 10); !almostEqual(got, 6000) {
		t.Errorf("VolumeCm3(30,20,10) = %v, want 6000", got)
	}
	if got := VolumeCm3(0, 20, 10); got != 0 {
		t.Errorf("VolumeCm3 with zero dimension = %v, want 0", got)
	}
}

func TestNetWeightKg(t *testing.T) {
	tests := []struct {
		name     string
		gross    float64
		tare     float64
		expected float64
	}{
		{"no pallet", 4.5, 0, 4.5},
		{"with pallet", 12.0, 2.5, 9.5},
		{"tare exceeds gross floors at zero", 1.0, 2.5, 0},
		{"equal gross and tare", 2.5, 2.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NetWeightKg(tt.gross, tt.tare); !almostEqual(got, tt.expected) {
				t.Errorf("NetWeightKg(%v, %v) = %v, want %v", tt.gross, tt.tare, got, tt.expected)
			}
		})
	}
}
