// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/luxfi/ids"
	luxlog "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/luxfi/fantasim-core/codec"
	"github.com/luxfi/fantasim-core/faults"
	"github.com/luxfi/fantasim-core/identity"
	"github.com/luxfi/fantasim-core/kv"
	"github.com/luxfi/fantasim-core/streamid"
)

// ArtifactGenerationContext is everything a Generator needs to produce a
// derived artifact on a cache miss (spec section 4.G).
type ArtifactGenerationContext struct {
	Stream           streamid.Identity
	LastSequence     uint64
	InputFingerprint string
}

// Generator produces, serializes, and deserializes one derived product
// type. Concrete generators (plate reconstruction, polygonization,
// rasterization, ...) are external collaborators per spec section 1; the
// cache only calls through this interface.
type Generator interface {
	ID() string
	Version() string
	Generate(ctx ArtifactGenerationContext) (any, error)
	Serialize(artifact any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

// Key identifies one cache entry before its fingerprint is computed (spec
// section 4.G). KinematicsModelID is optional bookkeeping used only to
// scope InvalidateOnKinematicsChange; it does not participate in the
// fingerprint.
type Key struct {
	Stream            streamid.Identity
	ProductType       string
	LastSequence      uint64
	Params            any
	KinematicsModelID string
}

// Options configures a Cache at construction time.
type Options struct {
	// Mode selects whether new manifests store their payload embedded or
	// externally. Spec section 9 leaves payload compression
	// implementation-defined; Compressor (if set) runs before ContentHash
	// is computed, so compress-then-hash is structurally enforced.
	Mode         StorageMode
	Compressor   func([]byte) ([]byte, error)
	Decompressor func([]byte) ([]byte, error)
}

type manifestRef struct {
	stream      streamid.Identity
	productType string
	fingerprint string
}

// Cache is the derived-artifact cache (spec section 4.G): content-
// addressed manifest + payload storage over a kv.Store, with single-
// flight generation and invalidation scoped by topology stream hash,
// kinematics model id, or explicit product instance.
type Cache struct {
	kv   kv.Store
	opts Options
	log  luxlog.Logger
	sf   singleflight.Group

	mu           sync.Mutex
	streamByHash map[ids.ID]streamid.Identity
	byModel      map[string]map[manifestRef]bool
	byInstance   map[identity.ID]manifestRef
	subscribers  []Subscriber

	hitTotal  prometheus.Counter
	missTotal prometheus.Counter
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithLogger attaches a structured logger.
func WithLogger(l luxlog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithOptions sets the Cache's storage Options.
func WithOptions(o Options) Option {
	return func(c *Cache) { c.opts = o }
}

// WithRegisterer registers this cache's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.hitTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_cache_hit_total",
			Help: "Number of derived-artifact cache hits.",
		})
		c.missTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fantasim_cache_miss_total",
			Help: "Number of derived-artifact cache misses.",
		})
		if reg != nil {
			reg.MustRegister(c.hitTotal, c.missTotal)
		}
	}
}

// New constructs a Cache over store.
func New(store kv.Store, opts ...Option) *Cache {
	c := &Cache{
		kv:           store,
		log:          luxlog.NewNoOpLogger(),
		streamByHash: make(map[ids.ID]streamid.Identity),
		byModel:      make(map[string]map[manifestRef]bool),
		byInstance:   make(map[identity.ID]manifestRef),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fingerprintOf computes the spec section 4.A Envelope fingerprint for key.
func fingerprintOf(key Key, generatorID, generatorVersion string) (string, string, error) {
	paramsHash, err := codec.ParamsHash(key.Params)
	if err != nil {
		return "", "", err
	}
	fp, err := codec.Fingerprint(codec.Envelope{
		SourceStream:     key.Stream.URN(),
		BoundaryKind:     "sequence",
		LastSequence:     key.LastSequence,
		GeneratorID:      generatorID,
		GeneratorVersion: generatorVersion,
		ParamsHash:       paramsHash,
	})
	if err != nil {
		return "", "", err
	}
	return fp, paramsHash, nil
}

// GetOrCompute implements spec section 4.G's algorithm: compute the
// fingerprint, read the manifest (hit path) or single-flight-generate it
// (miss path), and return the decoded artifact with its provenance.
func (c *Cache) GetOrCompute(key Key, gen Generator) (any, Provenance, bool, error) {
	fingerprint, paramsHash, err := fingerprintOf(key, gen.ID(), gen.Version())
	if err != nil {
		return nil, Provenance{}, false, err
	}

	c.mu.Lock()
	c.streamByHash[key.Stream.Hash()] = key.Stream
	c.mu.Unlock()

	if value, prov, found, err := c.readManifest(key.Stream, key.ProductType, fingerprint, gen); err != nil {
		return nil, Provenance{}, false, err
	} else if found {
		if c.hitTotal != nil {
			c.hitTotal.Inc()
		}
		return value, prov, true, nil
	}

	if c.missTotal != nil {
		c.missTotal.Inc()
	}

	sfKey := key.Stream.Key() + "|" + key.ProductType + "|" + fingerprint
	result, err, _ := c.sf.Do(sfKey, func() (any, error) {
		// Re-check under single-flight: a concurrent caller on the same
		// key may have already committed the manifest while this goroutine
		// waited to be scheduled (testable property 10).
		if value, prov, found, err := c.readManifest(key.Stream, key.ProductType, fingerprint, gen); err != nil {
			return nil, err
		} else if found {
			return computeResult{value: value, provenance: prov, fromExisting: true}, nil
		}
		return c.generate(key, gen, fingerprint, paramsHash)
	})
	if err != nil {
		return nil, Provenance{}, false, err
	}
	cr := result.(computeResult)
	return cr.value, cr.provenance, false, nil
}

type computeResult struct {
	value        any
	provenance   Provenance
	fromExisting bool
}

func (c *Cache) generate(key Key, gen Generator, fingerprint, paramsHash string) (any, error) {
	start := time.Now()
	artifact, err := gen.Generate(ArtifactGenerationContext{
		Stream:           key.Stream,
		LastSequence:     key.LastSequence,
		InputFingerprint: fingerprint,
	})
	if err != nil {
		return nil, faults.Wrap(faults.GenerationFailure, "cache: generator failed for "+gen.ID(), err)
	}

	payload, err := gen.Serialize(artifact)
	if err != nil {
		return nil, faults.Wrap(faults.GenerationFailure, "cache: serialize failed for "+gen.ID(), err)
	}
	if c.opts.Compressor != nil {
		payload, err = c.opts.Compressor(payload)
		if err != nil {
			return nil, faults.Wrap(faults.GenerationFailure, "cache: compress failed for "+gen.ID(), err)
		}
	}
	contentHash := codec.Hash(payload)
	instanceID := identity.New(fingerprintSourceFrom(fingerprint))

	storage := Storage{
		Mode:          c.opts.Mode,
		ContentHash:   contentHash,
		ContentLength: int64(len(payload)),
	}
	if storage.Mode == Embedded {
		storage.Inline = payload
	}

	manifest := Manifest{
		ProductType:       key.ProductType,
		ProductInstanceID: instanceID,
		InputFingerprint:  fingerprint,
		SourceStream:      key.Stream.URN(),
		Sequence:          key.LastSequence,
		Generator:         GeneratorInfo{ID: gen.ID(), Version: gen.Version()},
		ParamsHash:        paramsHash,
		Storage:           storage,
	}
	encodedManifest, err := codec.Encode(manifest)
	if err != nil {
		return nil, faults.Wrap(faults.StorageFault, "cache: encode manifest", err)
	}

	batch := c.kv.NewBatch()
	if err := batch.Put(key.Stream.DerivedManifestKey(key.ProductType, fingerprint), encodedManifest); err != nil {
		return nil, faults.Wrap(faults.StorageFault, "cache: stage manifest", err)
	}
	if storage.Mode == External {
		if err := batch.Put(key.Stream.DerivedPayloadKey(key.ProductType, fingerprint), payload); err != nil {
			return nil, faults.Wrap(faults.StorageFault, "cache: stage payload", err)
		}
	}
	if err := batch.Write(); err != nil {
		return nil, faults.Wrap(faults.StorageFault, "cache: commit artifact", err)
	}

	ref := manifestRef{stream: key.Stream, productType: key.ProductType, fingerprint: fingerprint}
	c.mu.Lock()
	c.byInstance[instanceID] = ref
	if key.KinematicsModelID != "" {
		if c.byModel[key.KinematicsModelID] == nil {
			c.byModel[key.KinematicsModelID] = make(map[manifestRef]bool)
		}
		c.byModel[key.KinematicsModelID][ref] = true
	}
	c.mu.Unlock()

	c.log.Debug("cache generated artifact", "product", key.ProductType, "stream", key.Stream.URN(), "fingerprint", fingerprint)

	prov := Provenance{
		ProductInstanceID: instanceID,
		ProductType:       key.ProductType,
		SourceTruthHashes: []string{hex.EncodeToString(key.Stream.Hash()[:])},
		GeneratorID:       gen.ID(),
		GeneratorVersion:  gen.Version(),
		ComputedAtUnixMs:  time.Now().UnixMilli(),
		ComputationTimeMs: time.Since(start).Milliseconds(),
		Disclaimer:        ProvenanceDisclaimer,
	}
	return computeResult{value: artifact, provenance: prov}, nil
}

// readManifest attempts the cache-hit path: read manifest, read payload,
// verify ContentHash, and deserialize via gen.
func (c *Cache) readManifest(stream streamid.Identity, productType, fingerprint string, gen Generator) (any, Provenance, bool, error) {
	raw, found, err := c.kv.Get(stream.DerivedManifestKey(productType, fingerprint))
	if err != nil {
		return nil, Provenance{}, false, faults.Wrap(faults.StorageFault, "cache: read manifest", err)
	}
	if !found {
		return nil, Provenance{}, false, nil
	}
	var manifest Manifest
	if err := codec.Decode(raw, &manifest); err != nil {
		return nil, Provenance{}, false, faults.Wrap(faults.StorageFault, "cache: decode manifest", err)
	}

	var payload []byte
	if manifest.Storage.Mode == Embedded {
		payload = manifest.Storage.Inline
	} else {
		payloadRaw, found, err := c.kv.Get(stream.DerivedPayloadKey(productType, fingerprint))
		if err != nil {
			return nil, Provenance{}, false, faults.Wrap(faults.StorageFault, "cache: read payload", err)
		}
		if !found {
			return nil, Provenance{}, false, faults.New(faults.NotFound, "cache: manifest present but payload missing")
		}
		payload = payloadRaw
	}

	if codec.Hash(payload) != manifest.Storage.ContentHash {
		return nil, Provenance{}, false, faults.New(faults.PayloadHashMismatch, "cache: payload content hash mismatch")
	}

	value, err := gen.Deserialize(payload)
	if err != nil {
		return nil, Provenance{}, false, faults.Wrap(faults.StorageFault, "cache: deserialize payload", err)
	}

	prov := Provenance{
		ProductInstanceID: manifest.ProductInstanceID,
		ProductType:       manifest.ProductType,
		SourceTruthHashes: []string{hex.EncodeToString(stream.Hash()[:])},
		GeneratorID:       manifest.Generator.ID,
		GeneratorVersion:  manifest.Generator.Version,
		ComputedAtUnixMs:  time.Now().UnixMilli(),
		Disclaimer:        ProvenanceDisclaimer,
	}
	return value, prov, true, nil
}

// EnumerateKeys returns every key in the underlying store with the given
// prefix, for admin and eviction use (spec section 4.G).
func (c *Cache) EnumerateKeys(prefix []byte) kv.Iterator {
	return c.kv.Iterate(prefix)
}

// fingerprintSource is a deterministic identity.Source derived from a hex
// fingerprint string, so two independent calls that generate the same
// fingerprint assign the same ProductInstanceID (scenario E5).
type fingerprintSource struct {
	state uint64
}

func fingerprintSourceFrom(fingerprint string) *fingerprintSource {
	sum := sha256.Sum256([]byte(fingerprint))
	var seed uint64
	for i := 0; i < 8; i++ {
		seed = (seed << 8) | uint64(sum[i])
	}
	return &fingerprintSource{state: seed}
}

func (s *fingerprintSource) Uint64() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
