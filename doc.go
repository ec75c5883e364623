// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

/*
Package fantasim provides a deterministic, event-sourced simulation
substrate for plate-tectonic worlds.

# Overview

fantasim-core is not a solver: it does not compute plate kinematics,
stress fields, or any other domain physics. It is the substrate those
solvers are built on — an append-only, hash-chained event log; a
topology materializer that folds events into plate/boundary/junction
state; a discrete-event scheduler that advances simulated time; and a
content-addressed cache that memoizes whatever a downstream solver
derives from that state, with mandatory provenance on every derived
product.

# Architecture

  - codec/      canonical MessagePack encoding, fingerprinting, hashing
  - streamid/   stream identity (Variant/Branch/LLevel/Domain/Model) and key derivation
  - eventstore/ append-only hash-chained event log
  - topology/   event folding into plate/boundary/junction state
  - des/        discrete-event scheduler and tick-step runtime
  - cache/      content-addressed derived-artifact cache with provenance
  - policy/     reconstruction policy hashing and per-query validation
  - identity/   deterministic 128-bit entity identifiers
  - faults/     typed fault taxonomy
  - kv/         ordered key-value store abstraction (memkv, pebblekv)

Every derived product carries the disclaimer that it is derived, not
truth: the event log is the only source of truth, and anything the
cache serves is reconstructible from it.
*/
package fantasim
