// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol models a single governance protocol as a finite
// state machine: a flat arena of states, guarded transitions between
// them, and a pure decision function.
//
// States carry integer metadata fields (permission level, resource
// budget, risk tier) that guards and property predicates read.
// Transitions reference states by arena index, never by pointer, so a
// protocol contains no reference cycles and can be shared read-only
// across composers and verifiers.
//
// Protocols are built from a [Definition] via [New], which validates
// the definition exhaustively: every structural defect (undeclared
// state, inconsistent metadata, overlapping guards) is a construction
// error. A successfully constructed Protocol never produces an error
// afterwards — [Protocol.Step] is a pure function of its inputs.
//
// Guards and effects are closed forms, not opaque functions. A [Guard]
// is a single comparison against one metadata field; an [Effect] is a
// list of field updates. The closed forms make guard-overlap detection
// decidable (two guards on the same source and action must never be
// simultaneously satisfiable) and keep definitions serializable, so
// protocols can be authored as JSONC files as well as in code.
package protocol
