// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import (
	"math/rand"

	"github.com/luxfi/fantasim-core/eventstore"
	"github.com/luxfi/fantasim-core/streamid"
	"github.com/luxfi/fantasim-core/topology"
)

// DesContext is everything a Driver needs: the stream being advanced, the
// tick it is being advanced to, a read-only materialized state view, the
// scheduler (so the driver may schedule further work), and this tick's
// deterministic RNG.
type DesContext struct {
	Stream      streamid.Identity
	CurrentTick int64
	State       topology.State
	Scheduler   *Scheduler
	Rng         *rand.Rand
}

// DriverOutput is whatever signal a Driver hands its paired Trigger. Its
// shape is driver-specific; the core only moves it opaquely from Driver
// to Trigger.
type DriverOutput struct {
	Signal any
}

// Driver reads materialized state and may schedule future work; it
// returns a DriverOutput for its paired Trigger to interpret.
type Driver func(ctx DesContext) (DriverOutput, error)

// Trigger consumes a Driver's output and emits zero or more not-yet-
// sequenced event drafts, using rng for any reproducible id generation.
type Trigger func(output DriverOutput, currentTick int64, rng *rand.Rand) ([]eventstore.Draft, error)

// handler is one registered (Driver, Trigger) pair for a Kind.
type handler struct {
	driver  Driver
	trigger Trigger
}
