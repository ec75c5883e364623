// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec provides canonical encoding and fingerprinting for the
// fantasim core: ordered-map MessagePack, lowercase-hex SHA-256, and
// quantized numerics, so that independent implementations produce
// byte-identical output for the same logical value.
package codec

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Version is the codec's own wire version, mirroring the teacher's
// CodecVersion discriminator.
type Version uint16

// CurrentVersion is the only version this package currently emits.
const CurrentVersion Version = 1

// EmptyParamsHash is SHA256(0x80), the canonical hash of an empty map.
const EmptyParamsHash = "76be8b528d0075f7aae98d6fa57a6d3c83ae480a8469e668d7b0af968995ac71"

// DuplicateKeyError is returned when a staged KV list contains a repeated
// key.
type DuplicateKeyError struct{ Key string }

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("codec: duplicate key %q", e.Key)
}

// NonFiniteError is returned by CheckNoFloats (and so by ParamsHash) when
// a float is found anywhere within the value tree.
type NonFiniteError struct{ Path string }

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("codec: non-finite/float value at %s is forbidden in fingerprint input", e.Path)
}

// UnknownVersionError is returned by Decode for a version it does not
// recognize.
type UnknownVersionError struct{ Version Version }

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("codec: unknown version %d", e.Version)
}

// OrderedMap is a map encoded with deterministic, byte-wise sorted key
// order. Callers building dynamic documents (as opposed to static Go
// structs, which msgpack already encodes in struct-tag order) should use
// OrderedMap instead of map[string]any to get canonical key order and
// duplicate-key detection.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set adds key=value. Returns a DuplicateKeyError if key was already set.
func (m *OrderedMap) Set(key string, value any) error {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; exists {
		return &DuplicateKeyError{Key: key}
	}
	m.keys = append(m.keys, key)
	m.values[key] = value
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder, emitting keys in sorted
// byte-wise order regardless of insertion order.
func (m *OrderedMap) EncodeMsgpack(enc *msgpack.Encoder) error {
	sorted := make([]string, len(m.keys))
	copy(sorted, m.keys)
	sort.Strings(sorted)

	if err := enc.EncodeMapLen(len(sorted)); err != nil {
		return err
	}
	for _, k := range sorted {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := enc.Encode(m.values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Encode canonically encodes v to MessagePack bytes. Go struct values are
// encoded in their declared field order (msgpack's default), which is
// already deterministic; Go maps and *OrderedMap values are emitted with
// their keys sorted.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decodes canonical MessagePack bytes into v.
func Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Hash returns the lowercase-hex SHA-256 digest of b.
func Hash(b []byte) string {
	return hexSHA256(b)
}

// HashValue canonically encodes v and returns its lowercase-hex SHA-256
// digest in one step.
func HashValue(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}
