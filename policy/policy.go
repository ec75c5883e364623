// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package policy implements reconstruction-policy hashing, per-query-type
// validation, and provenance chains (spec section 4.H). Policies are
// explicit value-typed structs with named fields, following the
// teacher's context.Context / block.ChainContext parameterization
// style (spec section 9's "explicit config structs" design note) rather
// than dynamic keyword arguments or ambient global config.
package policy

import (
	"github.com/luxfi/fantasim-core/codec"
	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/identity"
)

// FrameKind discriminates a reference frame's kind (spec section 9: "sum
// types over class hierarchies" — Mantle | PlateAnchor | Absolute |
// CustomFrame).
type FrameKind int

const (
	FrameMantle FrameKind = iota
	FramePlateAnchor
	FrameAbsolute
	FrameCustom
)

func (k FrameKind) String() string {
	switch k {
	case FrameMantle:
		return "Mantle"
	case FramePlateAnchor:
		return "PlateAnchor"
	case FrameAbsolute:
		return "Absolute"
	case FrameCustom:
		return "CustomFrame"
	default:
		return "Unknown"
	}
}

// ReferenceFrame is the frame a reconstruction or velocity query is
// expressed in. AnchorPlateID is meaningful only when Kind ==
// FramePlateAnchor; CustomName only when Kind == FrameCustom.
type ReferenceFrame struct {
	Kind          FrameKind
	AnchorPlateID identity.ID
	CustomName    string
}

// Strictness controls how a solver reacts to partial or ambiguous input
// (spec section 4.H).
type Strictness int

const (
	Strict Strictness = iota
	Lenient
	Permissive
)

func (s Strictness) String() string {
	switch s {
	case Strict:
		return "Strict"
	case Lenient:
		return "Lenient"
	case Permissive:
		return "Permissive"
	default:
		return "Unknown"
	}
}

// BoundarySampling configures how densely a boundary is sampled for
// analytics queries. SpacingMicrodeg is a quantized angular spacing
// (microdegrees), matching spec section 4.A's "doubles are forbidden"
// discipline for anything that may enter a fingerprint.
type BoundarySampling struct {
	SpacingMicrodeg int32
}

// IntegrationPolicy configures numerical integration for motion-path and
// flowline queries.
type IntegrationPolicy struct {
	StepMicrodeg int32
	MaxSteps     int32
}

// QueryType discriminates which solver operation a ReconstructionPolicy
// is being validated against (spec section 4.H).
type QueryType string

const (
	Reconstruct       QueryType = "Reconstruct"
	QueryVelocity     QueryType = "QueryVelocity"
	BoundaryAnalytics QueryType = "BoundaryAnalytics"
	MotionPath        QueryType = "MotionPath"
	Flowline          QueryType = "Flowline"
)

// ReconstructionPolicy is the explicit, hashable policy value spec
// section 4.H describes. The Has* flags disambiguate "field intentionally
// absent" from "field set to its zero value", since KinematicsModel and
// PartitionToleranceMicrounits are always required but the others are
// only required for specific QueryTypes.
type ReconstructionPolicy struct {
	Frame    ReferenceFrame
	HasFrame bool

	KinematicsModel string

	PartitionToleranceMicrounits int64
	HasPartitionTolerance        bool

	BoundarySampling    BoundarySampling
	HasBoundarySampling bool

	IntegrationPolicy    IntegrationPolicy
	HasIntegrationPolicy bool

	Strictness Strictness
}

// ComputeHash canonically encodes p and returns its lowercase-hex SHA-256
// digest (spec section 4.H's PolicyHash).
func ComputeHash(p ReconstructionPolicy) (string, error) {
	return codec.HashValue(p)
}

// ValidateForQuery enforces spec section 4.H's per-query-type required
// fields: KinematicsModel and PartitionTolerance are always required;
// Reconstruct/QueryVelocity additionally require Frame; BoundaryAnalytics
// requires BoundarySampling; MotionPath/Flowline require IntegrationPolicy.
func ValidateForQuery(queryType QueryType, p ReconstructionPolicy) error {
	if p.KinematicsModel == "" {
		return faults.New(faults.Validation, "policy: KinematicsModel is required")
	}
	if !p.HasPartitionTolerance {
		return faults.New(faults.Validation, "policy: PartitionTolerance is required")
	}

	switch queryType {
	case Reconstruct, QueryVelocity:
		if !p.HasFrame {
			return faults.New(faults.Validation, "policy: Frame is required for "+string(queryType))
		}
	case BoundaryAnalytics:
		if !p.HasBoundarySampling {
			return faults.New(faults.Validation, "policy: BoundarySampling is required for BoundaryAnalytics")
		}
	case MotionPath, Flowline:
		if !p.HasIntegrationPolicy {
			return faults.New(faults.Validation, "policy: IntegrationPolicy is required for "+string(queryType))
		}
	default:
		return faults.New(faults.Validation, "policy: unknown query type "+string(queryType))
	}
	return nil
}
