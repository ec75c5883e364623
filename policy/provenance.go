// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/fantasim-core/identity"
)

// ProvenanceChain ties a derived query result back to the truth it was
// computed from (spec section 4.H): the source entities consulted, the
// kinematics model and rotation segments used, and the topology/tick
// context the query ran against.
type ProvenanceChain struct {
	SourceFeatureIDs  []identity.ID
	SourceBoundaryIDs []identity.ID
	SourceJunctionIDs []identity.ID

	KinematicsModel        string
	KinematicsModelVersion string
	RotationSegmentRefs    []string

	TopologyStreamHash    ids.ID
	TopologyReferenceTick int64
	QueryTick             int64
	QueryContractVersion  string
	SolverImplementation  string
}
