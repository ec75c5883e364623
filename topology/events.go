// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package topology

import (
	"github.com/luxfi/fantasim-core/codec"
	"github.com/luxfi/fantasim-core/eventstore"
	"github.com/luxfi/fantasim-core/identity"
)

// Event type discriminators (spec section 3).
const (
	EventPlateCreated            = "PlateCreated"
	EventPlateRetired            = "PlateRetired"
	EventBoundaryCreated         = "BoundaryCreated"
	EventBoundaryTypeChanged     = "BoundaryTypeChanged"
	EventBoundaryGeometryUpdated = "BoundaryGeometryUpdated"
	EventBoundaryRetired         = "BoundaryRetired"
	EventJunctionCreated         = "JunctionCreated"
	EventJunctionUpdated         = "JunctionUpdated"
	EventJunctionRetired         = "JunctionRetired"
)

// PlateCreatedPayload is the decoded payload of a PlateCreated event.
type PlateCreatedPayload struct {
	PlateID identity.ID
}

// PlateRetiredPayload is the decoded payload of a PlateRetired event.
type PlateRetiredPayload struct {
	PlateID identity.ID
	Reason  string
}

// BoundaryCreatedPayload is the decoded payload of a BoundaryCreated event.
type BoundaryCreatedPayload struct {
	BoundaryID identity.ID
	PlateA     identity.ID
	PlateB     identity.ID
	Type       BoundaryType
	Geometry   Geometry
}

// BoundaryTypeChangedPayload is the decoded payload of a
// BoundaryTypeChanged event. OldType is optional (the zero value
// BoundaryUnknown means "not recorded"); when present the fold rule
// checks it against the boundary's current type and records an
// InvariantViolation on mismatch rather than failing replay.
type BoundaryTypeChangedPayload struct {
	BoundaryID identity.ID
	OldType    BoundaryType
	NewType    BoundaryType
}

// BoundaryGeometryUpdatedPayload is the decoded payload of a
// BoundaryGeometryUpdated event.
type BoundaryGeometryUpdatedPayload struct {
	BoundaryID identity.ID
	Geometry   Geometry
}

// BoundaryRetiredPayload is the decoded payload of a BoundaryRetired event.
type BoundaryRetiredPayload struct {
	BoundaryID identity.ID
	Reason     string
}

// JunctionCreatedPayload is the decoded payload of a JunctionCreated event.
type JunctionCreatedPayload struct {
	JunctionID  identity.ID
	BoundaryIDs []identity.ID
	Location    SurfacePoint
}

// JunctionUpdatedPayload is the decoded payload of a JunctionUpdated
// event. Either field may be left at its zero value to mean "unchanged";
// HasBoundaryIDs/HasLocation disambiguate "unchanged" from "set to the
// zero value".
type JunctionUpdatedPayload struct {
	JunctionID      identity.ID
	BoundaryIDs     []identity.ID
	HasBoundaryIDs  bool
	Location        SurfacePoint
	HasLocation     bool
}

// JunctionRetiredPayload is the decoded payload of a JunctionRetired event.
type JunctionRetiredPayload struct {
	JunctionID identity.ID
	Reason     string
}

// NewDraft canonically encodes payload and wraps it in an eventstore.Draft
// carrying the given event type, id, and tick. Callers (DES triggers)
// build drafts this way rather than hand-encoding payload bytes.
func NewDraft(eventID identity.ID, eventType string, tick int64, payload any) (eventstore.Draft, error) {
	encoded, err := codec.Encode(payload)
	if err != nil {
		return eventstore.Draft{}, err
	}
	return eventstore.Draft{
		EventID:   eventID,
		EventType: eventType,
		Tick:      tick,
		Payload:   encoded,
	}, nil
}

func decodePayload(rec eventstore.Record, out any) error {
	return codec.Decode(rec.Payload, out)
}
