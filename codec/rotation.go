// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import "math"

// MicrodegreesPerDegree is the fixed-point scale used to quantize angles
// before they cross into a fingerprint or hash-chained envelope.
const MicrodegreesPerDegree = 1_000_000

// QuantizedEulerPoleRotation is the canonical fixed-precision representation
// of a plate rotation about an Euler pole: azimuth and elevation in
// microdegrees, wrapped/clamped per spec section 4.A, plus a rotation
// angle in microdegrees.
type QuantizedEulerPoleRotation struct {
	// AzimuthMicrodeg is wrapped to (-180e6, 180e6].
	AzimuthMicrodeg int32
	// ElevationMicrodeg is clamped to [-90e6, 90e6].
	ElevationMicrodeg int32
	// AngleMicrodeg is the rotation angle about the pole, wrapped to
	// (-180e6, 180e6].
	AngleMicrodeg int32
}

// QuantizeEulerPoleRotation converts floating-point degrees into the
// canonical quantized form, applying the wrap/clamp rules from spec section
// 4.A. It is the only sanctioned path for a rotation to enter a fingerprint
// or an event envelope.
func QuantizeEulerPoleRotation(azimuthDeg, elevationDeg, angleDeg float64) QuantizedEulerPoleRotation {
	return QuantizedEulerPoleRotation{
		AzimuthMicrodeg:   wrapMicrodeg(azimuthDeg),
		ElevationMicrodeg: clampMicrodeg(elevationDeg, -90, 90),
		AngleMicrodeg:     wrapMicrodeg(angleDeg),
	}
}

// AzimuthDegrees returns the azimuth as floating-point degrees, for display
// or solver consumption only; never feed this back into a fingerprint.
func (q QuantizedEulerPoleRotation) AzimuthDegrees() float64 {
	return float64(q.AzimuthMicrodeg) / MicrodegreesPerDegree
}

// ElevationDegrees returns the elevation as floating-point degrees.
func (q QuantizedEulerPoleRotation) ElevationDegrees() float64 {
	return float64(q.ElevationMicrodeg) / MicrodegreesPerDegree
}

// AngleDegrees returns the rotation angle as floating-point degrees.
func (q QuantizedEulerPoleRotation) AngleDegrees() float64 {
	return float64(q.AngleMicrodeg) / MicrodegreesPerDegree
}

// wrapMicrodeg wraps degrees into (-180, 180] and quantizes to microdegrees.
func wrapMicrodeg(deg float64) int32 {
	wrapped := math.Mod(deg, 360)
	switch {
	case wrapped <= -180:
		wrapped += 360
	case wrapped > 180:
		wrapped -= 360
	}
	return int32(math.Round(wrapped * MicrodegreesPerDegree))
}

// clampMicrodeg clamps degrees into [lo, hi] and quantizes to microdegrees.
func clampMicrodeg(deg, lo, hi float64) int32 {
	if deg < lo {
		deg = lo
	}
	if deg > hi {
		deg = hi
	}
	return int32(math.Round(deg * MicrodegreesPerDegree))
}
