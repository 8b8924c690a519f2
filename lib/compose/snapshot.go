// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// Snapshot is the serializable, canonical description of a composed
// model: every component protocol in composition order plus the
// resolved policy. Fingerprinting encodes a Snapshot with the
// deterministic codec, so two models with identical structure always
// produce identical bytes.
type Snapshot struct {
	// Protocols are the component descriptions in composition order.
	Protocols []ProtocolSnapshot `json:"protocols"`

	// Priority is the resolved conflict-resolution order, highest
	// first.
	Priority []string `json:"priority"`

	// DisableDeferral records the policy's deferral switch.
	DisableDeferral bool `json:"disable_deferral,omitempty"`
}

// ProtocolSnapshot describes one component protocol by value, with
// transitions resolved back to state names.
type ProtocolSnapshot struct {
	// Name is the protocol identifier.
	Name string `json:"name"`

	// Initial is the start state name.
	Initial string `json:"initial"`

	// States is the state arena in declaration order.
	States []protocol.State `json:"states"`

	// Transitions lists the edges by state name, in declaration
	// order.
	Transitions []TransitionSnapshot `json:"transitions"`

	// Alphabet is the full sorted action alphabet, including
	// declared-only actions.
	Alphabet []string `json:"alphabet"`
}

// TransitionSnapshot is the name-based serializable form of one
// transition.
type TransitionSnapshot struct {
	// From is the source state name.
	From string `json:"from"`

	// To is the target state name.
	To string `json:"to"`

	// Action is the transition label.
	Action string `json:"action"`

	// Guard is the eligibility guard, nil when unconditional.
	Guard *protocol.Guard `json:"guard,omitempty"`

	// Effect is the metadata effect, empty when the target's
	// declaration is adopted unchanged.
	Effect protocol.Effect `json:"effect,omitempty"`
}

// Snapshot captures the model's canonical description.
func (m *Model) Snapshot() Snapshot {
	snapshot := Snapshot{
		Priority:        m.Priority(),
		DisableDeferral: m.policy.DisableDeferral,
	}
	for _, p := range m.protocols {
		ps := ProtocolSnapshot{
			Name:     p.Name(),
			Initial:  p.State(p.Initial()).Name,
			Alphabet: p.Alphabet(),
		}
		for i := 0; i < p.StateCount(); i++ {
			ps.States = append(ps.States, p.State(i))
		}
		for _, t := range p.Transitions() {
			ts := TransitionSnapshot{
				From:   p.State(t.From).Name,
				To:     p.State(t.To).Name,
				Action: t.Action,
				Effect: t.Effect,
			}
			if !t.Guard.IsZero() {
				guard := t.Guard
				ts.Guard = &guard
			}
			ps.Transitions = append(ps.Transitions, ts)
		}
		snapshot.Protocols = append(snapshot.Protocols, ps)
	}
	return snapshot
}
