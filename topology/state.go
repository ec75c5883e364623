// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package topology implements the topology materializer (spec section
// 4.E): folding the nine topology event types into an indexed, read-only
// state view, with snapshot-accelerated replay.
package topology

import (
	"math"
	"sort"

	"github.com/luxfi/fantasim-core/identity"
)

// BoundaryType discriminates a plate boundary's kinematic class.
type BoundaryType int

const (
	BoundaryUnknown BoundaryType = iota
	Divergent
	Convergent
	Transform
)

func (t BoundaryType) String() string {
	switch t {
	case Divergent:
		return "Divergent"
	case Convergent:
		return "Convergent"
	case Transform:
		return "Transform"
	default:
		return "Unknown"
	}
}

// Geometry is an opaque, solver-owned representation of a boundary's
// spatial extent. The core never interprets its contents; it only stores
// and replays whatever bytes a BoundaryCreated/BoundaryGeometryUpdated
// event carries.
type Geometry []byte

// SurfacePoint locates an entity on the simulated sphere: a unit normal
// plus a radius, rather than a raw Cartesian point, so downstream solvers
// can recover both direction and altitude without re-deriving a norm.
type SurfacePoint struct {
	UnitNormal [3]float64
	Radius     float64
}

// Plate is the materialized state of one plate entity.
type Plate struct {
	ID               identity.ID
	IsRetired        bool
	RetirementReason string
}

// Boundary is the materialized state of one plate-boundary entity.
type Boundary struct {
	ID        identity.ID
	PlateA    identity.ID
	PlateB    identity.ID
	Type      BoundaryType
	Geometry  Geometry
	IsRetired bool
	Reason    string
}

// Junction is the materialized state of one junction entity: the point
// where two or more boundaries meet.
type Junction struct {
	ID          identity.ID
	BoundaryIDs []identity.ID
	Location    SurfacePoint
	IsRetired   bool
	Reason      string
}

// InvariantViolation records a detected but non-fatal invariant breach
// encountered during fold (spec section 4.E): replay continues, the
// caller decides what to do with the violation list.
type InvariantViolation struct {
	Invariant string
	Message   string
	Sequence  uint64
}

// State is the read-only, indexed materialized view of one stream at a
// point in its history. Callers receive copies; no component holds a
// back-reference into a State once returned.
type State struct {
	Plates    map[identity.ID]Plate
	Boundaries map[identity.ID]Boundary
	Junctions map[identity.ID]Junction

	// PlateBoundaries indexes non-retired boundaries incident to a plate.
	PlateBoundaries map[identity.ID][]identity.ID
	// PlateAdjacency indexes plates directly connected by a non-retired
	// boundary.
	PlateAdjacency map[identity.ID]map[identity.ID]bool
	// BoundaryJunctions indexes junctions incident to a boundary.
	BoundaryJunctions map[identity.ID][]identity.ID

	// LastEventSequence is the highest sequence folded into this state, or
	// -1 if no event has been folded.
	LastEventSequence int64

	Violations []InvariantViolation
}

// Empty returns a freshly initialized, empty state with no events folded.
func Empty() State {
	return State{
		Plates:            make(map[identity.ID]Plate),
		Boundaries:        make(map[identity.ID]Boundary),
		Junctions:         make(map[identity.ID]Junction),
		PlateBoundaries:   make(map[identity.ID][]identity.ID),
		PlateAdjacency:    make(map[identity.ID]map[identity.ID]bool),
		BoundaryJunctions: make(map[identity.ID][]identity.ID),
		LastEventSequence: -1,
	}
}

// clone produces a deep-enough copy of s for a fold step to mutate without
// aliasing the caller's prior view.
func (s State) clone() State {
	out := State{
		Plates:            make(map[identity.ID]Plate, len(s.Plates)),
		Boundaries:        make(map[identity.ID]Boundary, len(s.Boundaries)),
		Junctions:         make(map[identity.ID]Junction, len(s.Junctions)),
		PlateBoundaries:   make(map[identity.ID][]identity.ID, len(s.PlateBoundaries)),
		PlateAdjacency:    make(map[identity.ID]map[identity.ID]bool, len(s.PlateAdjacency)),
		BoundaryJunctions: make(map[identity.ID][]identity.ID, len(s.BoundaryJunctions)),
		LastEventSequence: s.LastEventSequence,
		Violations:        append([]InvariantViolation(nil), s.Violations...),
	}
	for k, v := range s.Plates {
		out.Plates[k] = v
	}
	for k, v := range s.Boundaries {
		b := v
		b.Geometry = append(Geometry(nil), v.Geometry...)
		out.Boundaries[k] = b
	}
	for k, v := range s.Junctions {
		j := v
		j.BoundaryIDs = append([]identity.ID(nil), v.BoundaryIDs...)
		out.Junctions[k] = j
	}
	return out
}

// rebuildIndices recomputes PlateBoundaries, PlateAdjacency, and
// BoundaryJunctions from the Boundaries and Junctions maps. Spec section
// 4.E requires indices rebuilt after every fold; doing it from scratch
// keeps the index always consistent with the authoritative maps rather
// than accumulating incremental-update bugs.
func (s *State) rebuildIndices() {
	s.PlateBoundaries = make(map[identity.ID][]identity.ID, len(s.Plates))
	s.PlateAdjacency = make(map[identity.ID]map[identity.ID]bool, len(s.Plates))
	s.BoundaryJunctions = make(map[identity.ID][]identity.ID, len(s.Boundaries))

	for bid, b := range s.Boundaries {
		if b.IsRetired {
			continue
		}
		s.PlateBoundaries[b.PlateA] = append(s.PlateBoundaries[b.PlateA], bid)
		s.PlateBoundaries[b.PlateB] = append(s.PlateBoundaries[b.PlateB], bid)

		if s.PlateAdjacency[b.PlateA] == nil {
			s.PlateAdjacency[b.PlateA] = make(map[identity.ID]bool)
		}
		if s.PlateAdjacency[b.PlateB] == nil {
			s.PlateAdjacency[b.PlateB] = make(map[identity.ID]bool)
		}
		s.PlateAdjacency[b.PlateA][b.PlateB] = true
		s.PlateAdjacency[b.PlateB][b.PlateA] = true
	}
	for pid, ids := range s.PlateBoundaries {
		sortIDs(ids)
		s.PlateBoundaries[pid] = ids
	}

	for jid, j := range s.Junctions {
		if j.IsRetired {
			continue
		}
		for _, bid := range j.BoundaryIDs {
			s.BoundaryJunctions[bid] = append(s.BoundaryJunctions[bid], jid)
		}
	}
	for bid, ids := range s.BoundaryJunctions {
		sortIDs(ids)
		s.BoundaryJunctions[bid] = ids
	}
}

func sortIDs(ids []identity.ID) {
	sort.Slice(ids, func(i, j int) bool { return identity.Compare(ids[i], ids[j]) < 0 })
}

// OrderJunctionBoundaries sorts a junction's incident boundary ids by the
// pseudo-bearing tangentPlaneAngle assigns each boundary, with BoundaryId
// as the secondary (tie-break) key. The result is deterministic and
// independent of input order; it is not a geometric counter-clockwise
// ordering around the junction's location. A boundary id not present in
// boundaries is treated as angle +Inf so malformed references sort last
// rather than panicking.
func OrderJunctionBoundaries(location SurfacePoint, boundaryIDs []identity.ID, boundaries map[identity.ID]Boundary) []identity.ID {
	out := append([]identity.ID(nil), boundaryIDs...)
	angle := make(map[identity.ID]float64, len(out))
	for _, bid := range out {
		b, ok := boundaries[bid]
		if !ok {
			angle[bid] = math.Inf(1)
			continue
		}
		angle[bid] = tangentPlaneAngle(location, b)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := angle[out[i]], angle[out[j]]
		if ai != aj {
			return ai < aj
		}
		return identity.Compare(out[i], out[j]) < 0
	})
	return out
}

// tangentPlaneAngle returns a stable pseudo-bearing in radians, in
// [0, 2*pi), for boundary b: an FNV-1a hash of its endpoint plate ids
// scaled onto the circle. The core has no solver-level geometry model
// (spec section 1's Non-goals exclude domain solvers), so neither
// location nor b.Geometry is used and no projection onto the tangent
// plane takes place. This keeps ordering deterministic and total without
// inventing a geometry format the spec does not define.
func tangentPlaneAngle(location SurfacePoint, b Boundary) float64 {
	_ = location
	h := fnv1a(append(append([]byte{}, b.PlateA[:]...), b.PlateB[:]...))
	return (float64(h%360000) / 360000.0) * 2 * math.Pi
}

func fnv1a(data []byte) uint64 {
	const (
		offset uint64 = 14695981039346656037
		prime  uint64 = 1099511628211
	)
	h := offset
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
