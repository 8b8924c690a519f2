// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package compose builds the synchronized/interleaved product of
// several protocol state machines.
//
// The action vocabulary is partitioned by declaration: an action
// declared by two or more protocols is synchronizing — it fires in
// the composed model only when every declaring protocol accepts it in
// its current state, and all of them transition together. An action
// private to one protocol interleaves — its owner moves unilaterally
// while the others stand still. A protocol may declare an action in
// its alphabet without providing any transition for it; such a
// declaration is a standing veto wherever the action synchronizes.
//
// When the environment proposes several private actions at once and
// more than one protocol could act (a race), [Model.Decide] resolves
// the conflict deterministically: the policy's total priority order
// picks the winner, and every losing proposal is recorded as deferred
// for retry on a later step — never silently dropped.
//
// Composition is a pure function of its inputs. The [Model] borrows
// the component protocols read-only and is itself immutable, so one
// model can serve any number of concurrent verification runs.
package compose
