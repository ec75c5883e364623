// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package streamid

import "encoding/binary"

// CapabilitiesVersion is the current (and only) capabilities byte-layout
// version (spec section 4.C / 6).
const CapabilitiesVersion byte = 0x01

// Capability flag bits (spec section 6).
const (
	FlagTickMonotoneFromGenesis uint64 = 1 << 0
	FlagTickPolicyRejectFromGenesis uint64 = 1 << 1
)

// Capabilities is the decoded form of the 9-byte S:<...>:Meta:Caps record.
type Capabilities struct {
	Flags uint64
}

// TickMonotone reports whether every append so far has been non-decreasing
// in Tick.
func (c Capabilities) TickMonotone() bool {
	return c.Flags&FlagTickMonotoneFromGenesis != 0
}

// TickPolicyReject reports whether the stream rejects ticks lower than the
// previous event's Tick, rather than silently downgrading monotonicity.
func (c Capabilities) TickPolicyReject() bool {
	return c.Flags&FlagTickPolicyRejectFromGenesis != 0
}

// EncodeCapabilities produces the canonical 9-byte record.
func EncodeCapabilities(c Capabilities) []byte {
	buf := make([]byte, 9)
	buf[0] = CapabilitiesVersion
	binary.LittleEndian.PutUint64(buf[1:], c.Flags)
	return buf
}

// DecodeCapabilities decodes a capabilities record. An unknown version
// byte decodes to "no capabilities" rather than an error, per spec
// section 4.C's version-forward rule.
func DecodeCapabilities(data []byte) Capabilities {
	if len(data) != 9 || data[0] != CapabilitiesVersion {
		return Capabilities{}
	}
	return Capabilities{Flags: binary.LittleEndian.Uint64(data[1:])}
}
