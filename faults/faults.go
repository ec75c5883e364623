// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package faults defines the fault taxonomy shared by every core subsystem.
package faults

import (
	"errors"
	"fmt"
)

// Kind discriminates the fault taxonomy from spec section 7.
type Kind uint8

const (
	// Unknown is the zero value; never intentionally returned.
	Unknown Kind = iota
	Validation
	ConcurrencyRace
	TickMonotonicityViolation
	HashChainBroken
	PayloadHashMismatch
	NotFound
	GenerationFailure
	Cancelled
	StorageFault
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "Validation"
	case ConcurrencyRace:
		return "ConcurrencyRace"
	case TickMonotonicityViolation:
		return "TickMonotonicityViolation"
	case HashChainBroken:
		return "HashChainBroken"
	case PayloadHashMismatch:
		return "PayloadHashMismatch"
	case NotFound:
		return "NotFound"
	case GenerationFailure:
		return "GenerationFailure"
	case Cancelled:
		return "Cancelled"
	case StorageFault:
		return "StorageFault"
	default:
		return "Unknown"
	}
}

// Fault is the concrete error type returned by every core subsystem.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// Is allows errors.Is(err, faults.ErrHashChainBroken) style checks by
// matching on Kind, ignoring Message and Cause; see the Err... sentinels
// below.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if errors.As(target, &other) {
		return f.Kind == other.Kind
	}
	return false
}

// New constructs a Fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap constructs a Fault of the given kind, wrapping cause.
func Wrap(kind Kind, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// sentinel returns a zero-message Fault of the given kind, used purely as an
// errors.Is() target.
func sentinel(kind Kind) *Fault { return &Fault{Kind: kind} }

// Sentinels for errors.Is comparisons against a specific Kind.
var (
	ErrValidation                = sentinel(Validation)
	ErrConcurrencyRace           = sentinel(ConcurrencyRace)
	ErrTickMonotonicityViolation = sentinel(TickMonotonicityViolation)
	ErrHashChainBroken           = sentinel(HashChainBroken)
	ErrPayloadHashMismatch       = sentinel(PayloadHashMismatch)
	ErrNotFound                  = sentinel(NotFound)
	ErrGenerationFailure         = sentinel(GenerationFailure)
	ErrCancelled                 = sentinel(Cancelled)
	ErrStorageFault              = sentinel(StorageFault)
)

// KindOf extracts the Kind from err, if err is (or wraps) a *Fault.
func KindOf(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return Unknown, false
}
