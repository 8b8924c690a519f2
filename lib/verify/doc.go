// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify checks property specs against a composed protocol
// model by exhaustive reachable-state exploration.
//
// One breadth-first pass over the composed state space is shared by
// every property in a [Verifier.Verify] call. The pass records, per
// reachable state, the enabled moves, the conflict resolution of
// proposing all enabled actions at once, and whether the state is a
// deadlock. Each property is then evaluated against those records:
// deadlock freedom against the stuck states, monotonic restriction
// against every traversed edge, priority ordering against every raced
// conflict decision.
//
// Breadth-first order means the action path recorded for each state is
// a minimal-length witness, so counterexamples are as short as the
// state space allows and identical across runs. Exploration is bounded
// by [Verifier.MaxStates]; exceeding the bound aborts the pass and
// marks every report inconclusive rather than silently truncating.
package verify
