// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the fixed-arity fingerprint envelope from spec section 4.A:
// [source_stream, boundary_kind, last_sequence, generator_id,
//  generator_version, params_hash].
type Envelope struct {
	SourceStream      string
	BoundaryKind      string
	LastSequence      uint64
	GeneratorID       string
	GeneratorVersion  string
	ParamsHash        string
}

// EncodeMsgpack implements msgpack.CustomEncoder, emitting the envelope as a
// fixed-arity array (never a map) in exactly the field order above.
func (e Envelope) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(6); err != nil {
		return err
	}
	if err := enc.EncodeString(e.SourceStream); err != nil {
		return err
	}
	if err := enc.EncodeString(e.BoundaryKind); err != nil {
		return err
	}
	if err := enc.EncodeUint(e.LastSequence); err != nil {
		return err
	}
	if err := enc.EncodeString(e.GeneratorID); err != nil {
		return err
	}
	if err := enc.EncodeString(e.GeneratorVersion); err != nil {
		return err
	}
	return enc.EncodeString(e.ParamsHash)
}

// Fingerprint computes the lowercase-hex SHA-256 digest of the canonically
// encoded envelope. This is the cache key for derived artifacts (spec
// section 4.G) and the value the testable properties in spec section 8
// pin against.
func Fingerprint(e Envelope) (string, error) {
	b, err := Encode(e)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// ParamsHash canonically encodes params (after verifying it contains no
// floating-point values, per spec section 4.A) and returns its lowercase-hex
// SHA-256 digest. A nil or empty-map params yields EmptyParamsHash.
func ParamsHash(params any) (string, error) {
	if params == nil {
		return EmptyParamsHash, nil
	}
	if m, ok := params.(map[string]any); ok && len(m) == 0 {
		return EmptyParamsHash, nil
	}
	if err := CheckNoFloats(params, "$"); err != nil {
		return "", err
	}
	b, err := Encode(params)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// CheckNoFloats walks v (maps, slices, structs, pointers) and returns a
// *NonFiniteError at the first float32/float64 it finds. Doubles are
// forbidden in fingerprint inputs per spec section 4.A; callers must
// quantize to fixed-precision integers first.
func CheckNoFloats(v any, path string) error {
	return checkNoFloatsValue(reflect.ValueOf(v), path)
}

func checkNoFloatsValue(rv reflect.Value, path string) error {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return &NonFiniteError{Path: path}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return checkNoFloatsValue(rv.Elem(), path)
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprintf("%v", iter.Key().Interface())
			if err := checkNoFloatsValue(iter.Value(), path+"."+k); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkNoFloatsValue(rv.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			if err := checkNoFloatsValue(rv.Field(i), path+"."+t.Field(i).Name); err != nil {
				return err
			}
		}
	}
	return nil
}
