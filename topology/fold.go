// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package topology

import (
	"fmt"

	"github.com/luxfi/fantasim-core/eventstore"
	"github.com/luxfi/fantasim-core/faults"
)

// Fold applies one event record to state and returns the resulting state.
// It never mutates its input; callers chain Fold across a replay range.
// A malformed payload is a StorageFault (the event store already verified
// the hash chain; a decode failure here means the payload shape does not
// match its declared EventType, which is a data-integrity problem rather
// than a business-rule violation), while a violated domain invariant is
// recorded as a non-fatal InvariantViolation per spec section 4.E.
func Fold(state State, rec eventstore.Record) (State, error) {
	next := state.clone()
	next.LastEventSequence = int64(rec.Sequence)

	switch rec.EventType {
	case EventPlateCreated:
		var p PlateCreatedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode PlateCreated", err)
		}
		next.Plates[p.PlateID] = Plate{ID: p.PlateID}

	case EventPlateRetired:
		var p PlateRetiredPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode PlateRetired", err)
		}
		plate, ok := next.Plates[p.PlateID]
		if !ok {
			next.Violations = append(next.Violations, violation("PlateExists", fmt.Sprintf("PlateRetired references unknown plate %s", p.PlateID), rec.Sequence))
			break
		}
		plate.IsRetired = true
		plate.RetirementReason = p.Reason
		next.Plates[p.PlateID] = plate

	case EventBoundaryCreated:
		var p BoundaryCreatedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode BoundaryCreated", err)
		}
		if p.PlateA == p.PlateB {
			next.Violations = append(next.Violations, violation("DistinctPlates", fmt.Sprintf("boundary %s references the same plate twice", p.BoundaryID), rec.Sequence))
		}
		if retired, ok := next.Plates[p.PlateA]; !ok || retired.IsRetired {
			next.Violations = append(next.Violations, violation("NonRetiredEndpoint", fmt.Sprintf("boundary %s references retired or unknown plate A", p.BoundaryID), rec.Sequence))
		}
		if retired, ok := next.Plates[p.PlateB]; !ok || retired.IsRetired {
			next.Violations = append(next.Violations, violation("NonRetiredEndpoint", fmt.Sprintf("boundary %s references retired or unknown plate B", p.BoundaryID), rec.Sequence))
		}
		next.Boundaries[p.BoundaryID] = Boundary{
			ID:       p.BoundaryID,
			PlateA:   p.PlateA,
			PlateB:   p.PlateB,
			Type:     p.Type,
			Geometry: p.Geometry,
		}

	case EventBoundaryTypeChanged:
		var p BoundaryTypeChangedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode BoundaryTypeChanged", err)
		}
		b, ok := next.Boundaries[p.BoundaryID]
		if !ok {
			next.Violations = append(next.Violations, violation("BoundaryExists", fmt.Sprintf("BoundaryTypeChanged references unknown boundary %s", p.BoundaryID), rec.Sequence))
			break
		}
		if p.OldType != BoundaryUnknown && p.OldType != b.Type {
			next.Violations = append(next.Violations, violation("OldTypeMatches", fmt.Sprintf("boundary %s: recorded old type %s does not match state %s", p.BoundaryID, p.OldType, b.Type), rec.Sequence))
		}
		b.Type = p.NewType
		next.Boundaries[p.BoundaryID] = b

	case EventBoundaryGeometryUpdated:
		var p BoundaryGeometryUpdatedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode BoundaryGeometryUpdated", err)
		}
		b, ok := next.Boundaries[p.BoundaryID]
		if !ok {
			next.Violations = append(next.Violations, violation("BoundaryExists", fmt.Sprintf("BoundaryGeometryUpdated references unknown boundary %s", p.BoundaryID), rec.Sequence))
			break
		}
		b.Geometry = p.Geometry
		next.Boundaries[p.BoundaryID] = b

	case EventBoundaryRetired:
		var p BoundaryRetiredPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode BoundaryRetired", err)
		}
		b, ok := next.Boundaries[p.BoundaryID]
		if !ok {
			next.Violations = append(next.Violations, violation("BoundaryExists", fmt.Sprintf("BoundaryRetired references unknown boundary %s", p.BoundaryID), rec.Sequence))
			break
		}
		b.IsRetired = true
		b.Reason = p.Reason
		next.Boundaries[p.BoundaryID] = b

	case EventJunctionCreated:
		var p JunctionCreatedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode JunctionCreated", err)
		}
		for _, bid := range p.BoundaryIDs {
			if b, ok := next.Boundaries[bid]; !ok || b.IsRetired {
				next.Violations = append(next.Violations, violation("JunctionBoundaryExists", fmt.Sprintf("junction %s references missing or retired boundary %s", p.JunctionID, bid), rec.Sequence))
			}
		}
		next.Junctions[p.JunctionID] = Junction{
			ID:          p.JunctionID,
			BoundaryIDs: OrderJunctionBoundaries(p.Location, p.BoundaryIDs, next.Boundaries),
			Location:    p.Location,
		}

	case EventJunctionUpdated:
		var p JunctionUpdatedPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode JunctionUpdated", err)
		}
		j, ok := next.Junctions[p.JunctionID]
		if !ok {
			next.Violations = append(next.Violations, violation("JunctionExists", fmt.Sprintf("JunctionUpdated references unknown junction %s", p.JunctionID), rec.Sequence))
			break
		}
		if p.HasLocation {
			j.Location = p.Location
		}
		if p.HasBoundaryIDs {
			j.BoundaryIDs = OrderJunctionBoundaries(j.Location, p.BoundaryIDs, next.Boundaries)
		} else if p.HasLocation {
			j.BoundaryIDs = OrderJunctionBoundaries(j.Location, j.BoundaryIDs, next.Boundaries)
		}
		next.Junctions[p.JunctionID] = j

	case EventJunctionRetired:
		var p JunctionRetiredPayload
		if err := decodePayload(rec, &p); err != nil {
			return state, faults.Wrap(faults.StorageFault, "decode JunctionRetired", err)
		}
		j, ok := next.Junctions[p.JunctionID]
		if !ok {
			next.Violations = append(next.Violations, violation("JunctionExists", fmt.Sprintf("JunctionRetired references unknown junction %s", p.JunctionID), rec.Sequence))
			break
		}
		j.IsRetired = true
		j.Reason = p.Reason
		next.Junctions[p.JunctionID] = j

	default:
		next.Violations = append(next.Violations, violation("KnownEventType", fmt.Sprintf("unrecognized event type %q", rec.EventType), rec.Sequence))
	}

	next.rebuildIndices()
	return next, nil
}

func violation(invariant, message string, sequence uint64) InvariantViolation {
	return InvariantViolation{Invariant: invariant, Message: message, Sequence: sequence}
}
