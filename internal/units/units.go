// Package units provides shared conversions between the wire units reported
// by the station devices and the units stored on package records. The scale
// reports kilograms, thresholds are configured in grams, and the volume
// device reports millimetres while records store centimetres.
package units

// GramsToKilograms converts a gram value to kilograms.
func GramsToKilograms(grams float64) float64 {
	return grams / 1000.0
}

// KilogramsToGrams converts a kilogram value to grams.
func KilogramsToGrams(kg float64) float64 {
	return kg * 1000.0
}

// MillimetersToCentimeters converts a millimetre value to centimetres.
func MillimetersToCentimeters(mm float64) float64 {
	return mm / 10.0
}

// VolumeCm3 returns the rectangular volume for the given dimensions in
// centimetres.
func VolumeCm3(lengthCm, widthCm, heightCm float64) float64 {
	return lengthCm * widthCm * heightCm
}

// NetWeightKg subtracts the tare weight from a gross reading and floors the
// result at zero. A pallet heavier than the gross reading means the scale
// settled without a package on top.
func NetWeightKg(grossKg, tareKg float64) float64 {
	net := grossKg - tareKg
	if net < 0 {
		return 0
	}
	return net
}
