// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package identity_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/fantasim-core/identity"
)

func TestNewIsDeterministicForFixedSeed(t *testing.T) {
	src1 := rand.New(rand.NewSource(42))
	src2 := rand.New(rand.NewSource(42))

	id1 := identity.New(src1)
	id2 := identity.New(src2)
	require.Equal(t, id1, id2)
}

func TestNewStampsVersionAndVariant(t *testing.T) {
	src := rand.New(rand.NewSource(7))
	id := identity.New(src)
	require.Equal(t, byte(0x7), id[6]>>4)
	require.Equal(t, byte(0x2), id[8]>>6)
}

func TestDifferentSeedsDiffer(t *testing.T) {
	id1 := identity.New(rand.New(rand.NewSource(1)))
	id2 := identity.New(rand.New(rand.NewSource(2)))
	require.NotEqual(t, id1, id2)
}

func TestStringRoundTrip(t *testing.T) {
	id := identity.New(rand.New(rand.NewSource(99)))
	s := id.String()
	require.Len(t, s, 36)

	parsed, err := identity.ParseString(s)
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestCompareTotalOrder(t *testing.T) {
	a, err := identity.ParseString("00000000-0000-7000-8000-000000000001")
	require.NoError(t, err)
	b, err := identity.ParseString("00000000-0000-7000-8000-000000000002")
	require.NoError(t, err)
	require.Equal(t, -1, identity.Compare(a, b))
	require.Equal(t, 1, identity.Compare(b, a))
	require.Equal(t, 0, identity.Compare(a, a))
}
