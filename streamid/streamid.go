// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package streamid implements stream identity parsing/formatting and the
// key-space layout for event records, snapshots, capabilities, and
// derived-artifact manifests/payloads (spec sections 3 and 4.C).
package streamid

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/luxfi/fantasim-core/faults"
)

// domainTokenPattern matches a dot-notation domain token [A-Za-z0-9._]+;
// the no-leading, no-trailing and no-consecutive-dots constraint is
// enforced separately in validateDomain.
var domainTokenPattern = regexp.MustCompile(`^[A-Za-z0-9._]+$`)

// Identity is the stream identity 5-tuple from spec section 3.
type Identity struct {
	VariantID string
	BranchID  string
	LLevel    int64
	Domain    string
	Model     string
}

// New constructs and validates an Identity, normalizing Model to the "M"
// prefix form (spec section 3: "0" -> "M0", "m1" -> "M1").
func New(variantID, branchID string, lLevel int64, domain, model string) (Identity, error) {
	id := Identity{
		VariantID: variantID,
		BranchID:  branchID,
		LLevel:    lLevel,
		Domain:    domain,
		Model:     normalizeModel(model),
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func normalizeModel(model string) string {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "M") || strings.HasPrefix(trimmed, "m") {
		return "M" + trimmed[1:]
	}
	return "M" + trimmed
}

// Validate checks the invariants from spec section 3.
func (id Identity) Validate() error {
	if id.VariantID == "" {
		return faults.New(faults.Validation, "variant id must not be empty")
	}
	if id.BranchID == "" {
		return faults.New(faults.Validation, "branch id must not be empty")
	}
	if id.Model == "" || id.Model == "M" {
		return faults.New(faults.Validation, "model must not be empty")
	}
	if id.LLevel < 0 {
		return faults.New(faults.Validation, "l-level must be >= 0")
	}
	if err := validateDomain(id.Domain); err != nil {
		return err
	}
	return nil
}

func validateDomain(domain string) error {
	if domain == "" {
		return faults.New(faults.Validation, "domain must not be empty")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return faults.New(faults.Validation, "domain must not have leading or trailing dots")
	}
	if strings.Contains(domain, "..") {
		return faults.New(faults.Validation, "domain must not have consecutive dots")
	}
	if !domainTokenPattern.MatchString(domain) {
		return faults.New(faults.Validation, "domain must match [A-Za-z0-9._]+")
	}
	return nil
}

// URN returns the canonical urn:fantasim:<V>:<B>:L<n>:<Domain>:<M> form.
func (id Identity) URN() string {
	return fmt.Sprintf("urn:fantasim:%s:%s:L%d:%s:%s", id.VariantID, id.BranchID, id.LLevel, id.Domain, id.Model)
}

// Key returns the URN with the "urn:fantasim:" prefix dropped, used as the
// common prefix for every persisted key under this stream.
func (id Identity) Key() string {
	return strings.TrimPrefix(id.URN(), "urn:fantasim:")
}

// ParseURN parses a canonical stream URN back into an Identity.
func ParseURN(urn string) (Identity, error) {
	const prefix = "urn:fantasim:"
	if !strings.HasPrefix(urn, prefix) {
		return Identity{}, faults.New(faults.Validation, "urn missing urn:fantasim: prefix")
	}
	return parseKey(strings.TrimPrefix(urn, prefix))
}

func parseKey(key string) (Identity, error) {
	parts := strings.SplitN(key, ":", 5)
	if len(parts) != 5 {
		return Identity{}, faults.New(faults.Validation, "stream key must have 5 colon-separated components")
	}
	variantID, branchID, lLevelPart, domain, model := parts[0], parts[1], parts[2], parts[3], parts[4]
	if !strings.HasPrefix(lLevelPart, "L") {
		return Identity{}, faults.New(faults.Validation, "l-level component must start with L")
	}
	lLevel, err := strconv.ParseInt(strings.TrimPrefix(lLevelPart, "L"), 10, 64)
	if err != nil {
		return Identity{}, faults.Wrap(faults.Validation, "invalid l-level", err)
	}
	return New(variantID, branchID, lLevel, domain, model)
}

// Event record key: S:<V>:<B>:L<n>:<Domain>:<M>:E:<8-byte-be sequence>.
func (id Identity) EventKey(sequence uint64) []byte {
	var buf strings.Builder
	buf.WriteString("S:")
	buf.WriteString(id.Key())
	buf.WriteString(":E:")
	key := []byte(buf.String())
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, sequence)
	return append(key, seqBytes...)
}

// EventKeyPrefix returns the prefix shared by every event key in this
// stream, suitable as an Iterate seek bound.
func (id Identity) EventKeyPrefix() []byte {
	return []byte("S:" + id.Key() + ":E:")
}

// SnapshotKey: S:<...>:Snap:<seq>.
func (id Identity) SnapshotKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("S:%s:Snap:%d", id.Key(), sequence))
}

// SnapshotKeyPrefix returns the prefix shared by every snapshot key in this
// stream.
func (id Identity) SnapshotKeyPrefix() []byte {
	return []byte("S:" + id.Key() + ":Snap:")
}

// CapabilitiesKey: S:<...>:Meta:Caps.
func (id Identity) CapabilitiesKey() []byte {
	return []byte("S:" + id.Key() + ":Meta:Caps")
}

// DerivedManifestKey: S:<...>:Derived:<Product>:<fingerprint>:Manifest.
func (id Identity) DerivedManifestKey(productType, fingerprint string) []byte {
	return []byte(fmt.Sprintf("S:%s:Derived:%s:%s:Manifest", id.Key(), productType, fingerprint))
}

// DerivedPayloadKey: S:<...>:Derived:<Product>:<fingerprint>:Payload.
func (id Identity) DerivedPayloadKey(productType, fingerprint string) []byte {
	return []byte(fmt.Sprintf("S:%s:Derived:%s:%s:Payload", id.Key(), productType, fingerprint))
}

// DerivedKeyPrefix returns the prefix shared by every derived-artifact key
// of the given product type within this stream, suitable for
// invalidation scans.
func (id Identity) DerivedKeyPrefix(productType string) []byte {
	return []byte(fmt.Sprintf("S:%s:Derived:%s:", id.Key(), productType))
}
