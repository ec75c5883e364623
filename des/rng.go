// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import (
	"math/rand"

	"github.com/luxfi/fantasim-core/streamid"
)

// DeriveRNG produces a fresh, deterministic RNG for one tick's dispatch
// step, derived from (ScenarioSeed, StreamIdentity, Tick) via a pure
// SplitMix64 mix (spec section 4.F), grounded in the teacher's
// utils/sampler.Source abstraction (math/rand.Source wrapped behind a
// Uint64() method). Two runs with the same inputs always produce
// bit-identical RNG output (testable property 7).
func DeriveRNG(scenarioSeed uint64, stream streamid.Identity, tick int64) *rand.Rand {
	state := scenarioSeed
	state = splitmix64(state)

	streamHash := stream.Hash()
	for i := 0; i+8 <= len(streamHash); i += 8 {
		var chunk uint64
		for j := 0; j < 8; j++ {
			chunk = (chunk << 8) | uint64(streamHash[i+j])
		}
		state = splitmix64(state ^ chunk)
	}

	state = splitmix64(state ^ uint64(tick))
	return rand.New(rand.NewSource(int64(state)))
}

// splitmix64 is the standard SplitMix64 output mixing function, used here
// purely as a deterministic state-mixing step (not as the RNG itself).
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
