// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/policy"
)

func basePolicy() policy.ReconstructionPolicy {
	return policy.ReconstructionPolicy{
		KinematicsModel:             "EarthByte2016",
		PartitionToleranceMicrounits: 1000,
		HasPartitionTolerance:       true,
	}
}

func TestValidateRequiresKinematicsModel(t *testing.T) {
	p := basePolicy()
	p.KinematicsModel = ""
	p.HasFrame = true
	err := policy.ValidateForQuery(policy.Reconstruct, p)
	require.Error(t, err)
	kind, ok := faults.KindOf(err)
	require.True(t, ok)
	require.Equal(t, faults.Validation, kind)
}

func TestValidateRequiresPartitionTolerance(t *testing.T) {
	p := basePolicy()
	p.HasPartitionTolerance = false
	p.HasFrame = true
	err := policy.ValidateForQuery(policy.Reconstruct, p)
	require.Error(t, err)
}

func TestValidateReconstructRequiresFrame(t *testing.T) {
	p := basePolicy()
	err := policy.ValidateForQuery(policy.Reconstruct, p)
	require.Error(t, err)

	p.HasFrame = true
	require.NoError(t, policy.ValidateForQuery(policy.Reconstruct, p))
}

func TestValidateQueryVelocityRequiresFrame(t *testing.T) {
	p := basePolicy()
	err := policy.ValidateForQuery(policy.QueryVelocity, p)
	require.Error(t, err)

	p.HasFrame = true
	require.NoError(t, policy.ValidateForQuery(policy.QueryVelocity, p))
}

func TestValidateBoundaryAnalyticsRequiresBoundarySampling(t *testing.T) {
	p := basePolicy()
	err := policy.ValidateForQuery(policy.BoundaryAnalytics, p)
	require.Error(t, err)

	p.HasBoundarySampling = true
	require.NoError(t, policy.ValidateForQuery(policy.BoundaryAnalytics, p))
}

func TestValidateMotionPathAndFlowlineRequireIntegrationPolicy(t *testing.T) {
	p := basePolicy()
	require.Error(t, policy.ValidateForQuery(policy.MotionPath, p))
	require.Error(t, policy.ValidateForQuery(policy.Flowline, p))

	p.HasIntegrationPolicy = true
	require.NoError(t, policy.ValidateForQuery(policy.MotionPath, p))
	require.NoError(t, policy.ValidateForQuery(policy.Flowline, p))
}

func TestValidateUnknownQueryType(t *testing.T) {
	p := basePolicy()
	p.HasFrame = true
	err := policy.ValidateForQuery(policy.QueryType("Bogus"), p)
	require.Error(t, err)
}

func TestComputeHashDeterministic(t *testing.T) {
	p := basePolicy()
	p.HasFrame = true
	p.Frame = policy.ReferenceFrame{Kind: policy.FramePlateAnchor}

	h1, err := policy.ComputeHash(p)
	require.NoError(t, err)
	h2, err := policy.ComputeHash(p)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}

func TestComputeHashDiffersOnStrictness(t *testing.T) {
	p := basePolicy()
	p.HasFrame = true
	h1, err := policy.ComputeHash(p)
	require.NoError(t, err)

	p.Strictness = policy.Permissive
	h2, err := policy.ComputeHash(p)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
