// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache implements the derived-artifact cache (spec section 4.G):
// a content-addressed store mapping an input fingerprint to a manifest and
// payload, with single-flight generation and invalidation scoped to truth
// changes.
package cache

import (
	"github.com/luxfi/fantasim-core/identity"
)

// StorageMode discriminates whether a manifest's payload bytes are
// embedded inline next to the manifest or stored externally under a
// separate key. Spec section 4.G requires InputFingerprint and
// ContentHash to be identical across both modes (testable via
// TestStorageModeIndependence).
type StorageMode int

const (
	// External stores payload bytes under the stream's DerivedPayloadKey.
	External StorageMode = iota
	// Embedded stores payload bytes inline inside the manifest record;
	// no separate payload key is written.
	Embedded
)

func (m StorageMode) String() string {
	if m == Embedded {
		return "Embedded"
	}
	return "External"
}

// Storage describes where and how a manifest's payload bytes are kept.
type Storage struct {
	Mode          StorageMode
	ContentHash   string
	ContentLength int64
	// Inline holds the payload bytes when Mode == Embedded; nil otherwise.
	Inline []byte
}

// GeneratorInfo identifies the code that produced a derived artifact, plus
// its version, per spec section 3's Manifest.Generator.
type GeneratorInfo struct {
	ID      string
	Version string
}

// Manifest is the persisted, content-addressed record for one derived
// artifact (spec section 3).
type Manifest struct {
	ProductType       string
	ProductInstanceID identity.ID
	InputFingerprint  string
	SourceStream      string
	Sequence          uint64
	Generator         GeneratorInfo
	ParamsHash        string
	Storage           Storage
}

// ProvenanceDisclaimer is the fixed disclaimer every cache hit's
// provenance carries (spec section 4.G).
const ProvenanceDisclaimer = "derived, not truth"

// Provenance accompanies every derived product returned by GetOrCompute
// (spec section 4.G). Producing a derived product without it is a
// contract violation; GetOrCompute always returns one alongside the
// decoded value.
type Provenance struct {
	ProductInstanceID identity.ID
	ProductType       string
	SourceTruthHashes []string
	PolicyHash        string
	GeneratorID       string
	GeneratorVersion  string
	ComputedAtUnixMs  int64
	ComputationTimeMs int64
	Disclaimer        string
}
