// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSchedulerTieBreakOrdering is testable property 6 / scenario E3: a
// permutation of items sharing (When, Sphere, Kind) dequeues in insertion
// order, because Schedule assigns TieBreak itself rather than accepting it
// from the caller.
func TestSchedulerTieBreakOrdering(t *testing.T) {
	sched := NewScheduler()
	kind := Kind("RunPlateSolver")
	sched.Schedule(10, Geosphere, kind, []byte("X"))
	sched.Schedule(10, Geosphere, kind, []byte("Y"))
	sched.Schedule(10, Geosphere, kind, []byte("Z"))

	var order []string
	for {
		item, ok := sched.dequeue()
		if !ok {
			break
		}
		order = append(order, string(item.Payload))
	}
	require.Equal(t, []string{"X", "Y", "Z"}, order)
}

func TestSchedulerOrderingPrecedence(t *testing.T) {
	sched := NewScheduler()
	sched.Schedule(5, Geosphere, Kind("A"), []byte("tick5"))
	sched.Schedule(0, Noosphere, Kind("B"), []byte("noosphere"))
	sched.Schedule(0, Geosphere, Kind("Z"), []byte("geo-z"))
	sched.Schedule(0, Geosphere, Kind("A"), []byte("geo-a"))
	sched.Schedule(0, Biosphere, Kind("A"), []byte("bio"))

	var order []string
	for {
		item, ok := sched.dequeue()
		if !ok {
			break
		}
		order = append(order, string(item.Payload))
	}
	require.Equal(t, []string{"geo-a", "geo-z", "bio", "noosphere", "tick5"}, order)
}

func TestSchedulerPeekDoesNotRemove(t *testing.T) {
	sched := NewScheduler()
	sched.Schedule(1, Geosphere, Kind("A"), nil)
	require.Equal(t, 1, sched.Len())
	_, ok := sched.peek()
	require.True(t, ok)
	require.Equal(t, 1, sched.Len())
}
