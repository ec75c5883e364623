// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import "math"

// CompareFloat64Total implements the IEEE-754 total ordering predicate from
// spec section 4.A: NaN sorts after all numbers, NaN payload bits break
// ties among NaNs, and -0.0 < +0.0. It returns -1, 0, or 1 the way
// sort/cmp comparators do.
func CompareFloat64Total(a, b float64) int {
	au := totalOrderKey(a)
	bu := totalOrderKey(b)
	switch {
	case au < bu:
		return -1
	case au > bu:
		return 1
	default:
		return 0
	}
}

// totalOrderKey maps a float64's bit pattern to a uint64 whose natural
// ordering matches IEEE-754 totalOrder: negative numbers flip all bits
// (so they sort in reverse-magnitude, ascending toward zero), positive
// numbers flip only the sign bit (so they sort above all negatives and
// ascending by magnitude), and NaNs, having the largest magnitude bit
// patterns, land at the top of whichever half their sign occupies --
// since canonical fingerprint inputs are never negative NaNs, all NaNs
// here are positive and sort after every finite number.
func totalOrderKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}
