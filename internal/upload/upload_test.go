package upload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/parcel.station/internal/fusion"
)

func TestRecordTopic(t *testing.T) {
	assert.Equal(t, "station/dock-07/packages", recordTopic("dock-07"))
}

func TestRecordPayloadShape(t *testing.T) {
	rec := &fusion.PackageRecord{
		ID:         "id-1",
		Barcode:    "PKG0001",
		CreateTime: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		WeightKg:   2.5,
		LengthCm:   30,
		WidthCm:    20,
		HeightCm:   10,
		VolumeCm3:  6000,
		Pallet:     fusion.PalletProfile{Name: "euro", TareWeightKg: 0.5},
		Status:     fusion.StatusSuccess,
	}

	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	for _, key := range []string{"id", "barcode", "create_time", "weight_kg", "volume_cm3", "pallet", "status"} {
		assert.Contains(t, decoded, key, "payload missing key %q", key)
	}
	assert.Equal(t, "success", decoded["status"])

	// Empty optional fields stay off the wire.
	assert.NotContains(t, decoded, "error_message")
	assert.NotContains(t, decoded, "image_path")
}
