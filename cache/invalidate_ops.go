// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/identity"
	"github.com/luxfi/fantasim-core/streamid"
)

// InvalidateOnTopologyChange removes every derived-artifact manifest and
// payload scoped to the stream whose identity hashes to
// topologyStreamHash (spec section 4.G, scenario E6). Unknown hashes
// (never seen by a prior GetOrCompute call on this Cache) are a no-op.
func (c *Cache) InvalidateOnTopologyChange(topologyStreamHash ids.ID) error {
	c.mu.Lock()
	stream, known := c.streamByHash[topologyStreamHash]
	c.mu.Unlock()
	if !known {
		return nil
	}

	if err := c.deleteStreamDerivedEntries(stream); err != nil {
		return err
	}
	c.notify(InvalidationEvent{Reason: ReasonTopologyChange, TopologyStreamHash: topologyStreamHash})
	return nil
}

// InvalidateOnKinematicsChange removes every manifest and payload that was
// generated with key.KinematicsModelID == modelID (spec section 4.G).
func (c *Cache) InvalidateOnKinematicsChange(modelID string) error {
	c.mu.Lock()
	refs := c.byModel[modelID]
	delete(c.byModel, modelID)
	c.mu.Unlock()

	for ref := range refs {
		if err := c.deleteManifest(ref); err != nil {
			return err
		}
	}
	c.notify(InvalidationEvent{Reason: ReasonKinematicsChange, KinematicsModelID: modelID})
	return nil
}

// Invalidate removes the single manifest and payload identified by
// productInstanceID. Unknown ids are a no-op.
func (c *Cache) Invalidate(productInstanceID identity.ID) error {
	c.mu.Lock()
	ref, ok := c.byInstance[productInstanceID]
	delete(c.byInstance, productInstanceID)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.deleteManifest(ref); err != nil {
		return err
	}
	c.notify(InvalidationEvent{Reason: ReasonExplicit})
	return nil
}

// Clear removes every derived-artifact entry this Cache instance has
// observed (every stream seen by a prior GetOrCompute call) and resets
// its invalidation indices. A Cache only ever indexes artifacts it has
// itself produced or read, so Clear's scope is necessarily this process's
// view of the store, consistent with the rest of the invalidation index.
func (c *Cache) Clear() error {
	c.mu.Lock()
	streams := make([]streamid.Identity, 0, len(c.streamByHash))
	for _, s := range c.streamByHash {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	for _, s := range streams {
		if err := c.deleteStreamDerivedEntries(s); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.byModel = make(map[string]map[manifestRef]bool)
	c.byInstance = make(map[identity.ID]manifestRef)
	c.mu.Unlock()

	c.notify(InvalidationEvent{Reason: ReasonClear})
	return nil
}

// deleteStreamDerivedEntries deletes every key under stream's derived
// prefix (every product type and fingerprint at once).
func (c *Cache) deleteStreamDerivedEntries(stream streamid.Identity) error {
	prefix := []byte("S:" + stream.Key() + ":Derived:")
	it := c.kv.Iterate(prefix)
	defer it.Release()

	var keys [][]byte
	for it.Next() {
		key := it.Key()
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			break
		}
		keys = append(keys, append([]byte(nil), key...))
	}
	if err := it.Error(); err != nil {
		return faults.Wrap(faults.StorageFault, "cache: iterate derived entries", err)
	}

	if len(keys) == 0 {
		return nil
	}
	batch := c.kv.NewBatch()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return faults.Wrap(faults.StorageFault, "cache: stage delete", err)
		}
	}
	if err := batch.Write(); err != nil {
		return faults.Wrap(faults.StorageFault, "cache: commit deletes", err)
	}
	return nil
}

func (c *Cache) deleteManifest(ref manifestRef) error {
	batch := c.kv.NewBatch()
	if err := batch.Delete(ref.stream.DerivedManifestKey(ref.productType, ref.fingerprint)); err != nil {
		return faults.Wrap(faults.StorageFault, "cache: stage manifest delete", err)
	}
	if err := batch.Delete(ref.stream.DerivedPayloadKey(ref.productType, ref.fingerprint)); err != nil {
		return faults.Wrap(faults.StorageFault, "cache: stage payload delete", err)
	}
	if err := batch.Write(); err != nil {
		return faults.Wrap(faults.StorageFault, "cache: commit delete", err)
	}
	return nil
}
