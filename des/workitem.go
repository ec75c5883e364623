// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package des implements the discrete-event scheduler runtime (spec
// section 4.F): a single-threaded, cooperative priority queue of work
// items with a canonical total ordering, dispatched through
// driver/trigger pairs that emit event drafts appended via eventstore.
package des

// Sphere groups work items into the fixed priority bands spec section
// 4.F assigns: Geosphere runs before Biosphere, which runs before
// Noosphere, which runs before anything else at the same tick.
type Sphere string

const (
	Geosphere Sphere = "Geosphere"
	Biosphere Sphere = "Biosphere"
	Noosphere Sphere = "Noosphere"
)

// priority returns Sphere's fixed ordering weight (spec section 4.F).
func (s Sphere) priority() int {
	switch s {
	case Geosphere:
		return 100
	case Biosphere:
		return 200
	case Noosphere:
		return 300
	default:
		return 999
	}
}

// Kind discriminates a work item's driver/trigger registration. The core
// places no fixed enumeration on Kind (drivers are host-registered), so
// Kind's "raw enumerant value" (spec section 4.F) is its string form,
// compared byte-wise.
type Kind string

// WorkItem is one unit of scheduled work (spec section 3).
type WorkItem struct {
	When     int64
	Sphere   Sphere
	Kind     Kind
	TieBreak uint64
	Payload  []byte
}

// less implements the canonical total ordering (When, Sphere, Kind,
// TieBreak), ascending in that precedence (spec section 4.F).
func less(a, b WorkItem) bool {
	if a.When != b.When {
		return a.When < b.When
	}
	ap, bp := a.Sphere.priority(), b.Sphere.priority()
	if ap != bp {
		return ap < bp
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.TieBreak < b.TieBreak
}
