// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// RejectReason describes why a step was rejected.
type RejectReason int

const (
	// ReasonNone means the step was accepted.
	ReasonNone RejectReason = iota

	// ReasonUnknownState means the state index is outside the arena.
	ReasonUnknownState

	// ReasonNoTransition means no transition with the action is
	// sourced at the state.
	ReasonNoTransition

	// ReasonGuardFailed means transitions with the action exist but
	// no guard was satisfied by the evaluation view.
	ReasonGuardFailed
)

// String returns a human-readable reason.
func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "accepted"
	case ReasonUnknownState:
		return "unknown state"
	case ReasonNoTransition:
		return "no matching transition"
	case ReasonGuardFailed:
		return "guard not satisfied"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating one action against one
// protocol state. Immutable; Step returns an identical Decision for
// identical inputs.
type Decision struct {
	// Protocol is the name of the deciding protocol.
	Protocol string

	// Action is the evaluated action label.
	Action string

	// Accepted reports whether a transition fired.
	Accepted bool

	// Reason explains a rejection. ReasonNone when accepted.
	Reason RejectReason

	// From is the arena index of the evaluated state.
	From int

	// Next is the arena index of the resulting state. Equals From
	// when the step was rejected.
	Next int

	// Meta is the metadata of the resulting state: the transition
	// effect applied to the source's metadata, which construction
	// guarantees equals the target state's declared metadata.
	Meta Metadata
}

// String renders the decision for log lines and test failures.
func (d Decision) String() string {
	if d.Accepted {
		return fmt.Sprintf("%s: %s accepted (state %d -> %d)", d.Protocol, d.Action, d.From, d.Next)
	}
	return fmt.Sprintf("%s: %s rejected (%s)", d.Protocol, d.Action, d.Reason)
}

// Step evaluates action in the given state under an optional stimulus
// context. Among the transitions sourced at the state with a matching
// action label, at most one guard can be satisfied — construction
// validation rejects overlapping guards — so the decision is
// deterministic. Returns a rejected decision when no transition
// matches or every guard fails.
//
// Step is a pure function: it never mutates the protocol and repeated
// calls with identical inputs return identical decisions.
func (p *Protocol) Step(state int, action string, ctx Metadata) Decision {
	decision := Decision{Protocol: p.name, Action: action, From: state, Next: state}
	if state < 0 || state >= len(p.states) {
		decision.Reason = ReasonUnknownState
		return decision
	}

	source := p.states[state]
	view := source.Meta.Merge(ctx)

	matched := false
	for _, ti := range p.outgoing[state] {
		t := p.transitions[ti]
		if t.Action != action {
			continue
		}
		matched = true
		if !t.Guard.Holds(view) {
			continue
		}
		decision.Accepted = true
		decision.Next = t.To
		if len(t.Effect) > 0 {
			decision.Meta = t.Effect.Apply(source.Meta)
		} else {
			decision.Meta = p.states[t.To].Meta
		}
		return decision
	}

	if matched {
		decision.Reason = ReasonGuardFailed
	} else {
		decision.Reason = ReasonNoTransition
	}
	return decision
}
