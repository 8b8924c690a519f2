// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario provides the standard governance protocol builders
// and the file formats for loading protocols and verification suites
// from disk.
//
// The built-in scenarios are three small governance protocols sharing
// one five-action alphabet: a trust ladder, a security posture, and a
// resource budget. Composed, they model an agent whose actions must
// clear all three governors at once. A fourth, deliberately broken
// protocol declares the whole alphabet without a single transition,
// deadlocking any composition it joins.
//
// Protocol definitions are authored on disk as JSONC (JSON extended
// with comments and trailing commas); verification suites as YAML.
package scenario

import (
	"fmt"

	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// The shared action alphabet. Every built-in protocol declares all
// five, so each action synchronizes across the full composition; an
// action a protocol declares but never transitions on is vetoed in
// every state of that protocol.
const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionExecute  = "execute"
	ActionDelete   = "delete"
	ActionEscalate = "escalate"
)

// Actions lists the shared alphabet in declaration order.
func Actions() []string {
	return []string{ActionRead, ActionWrite, ActionExecute, ActionDelete, ActionEscalate}
}

// mustBuild constructs a protocol from a definition known to be valid.
// The builders below are static data; a construction failure is a
// programming error.
func mustBuild(def protocol.Definition) *protocol.Protocol {
	p, err := protocol.New(def)
	if err != nil {
		panic(fmt.Sprintf("scenario: building %q: %v", def.Name, err))
	}
	return p
}

// Trust returns the trust-ladder protocol: three tiers of established
// trust, advanced by demonstrating benign writes and executions.
// Destructive actions are permitted only at the top tier, and
// escalation is never permitted.
func Trust() *protocol.Protocol {
	return mustBuild(protocol.Definition{
		Name:    "trust",
		Initial: "low",
		States: []protocol.State{
			{Name: "low", Terminal: true, Meta: protocol.Metadata{"tier": 1}},
			{Name: "medium", Terminal: true, Meta: protocol.Metadata{"tier": 2}},
			{Name: "high", Terminal: true, Meta: protocol.Metadata{"tier": 3}},
		},
		Transitions: []protocol.TransitionDef{
			{From: "low", To: "low", Action: ActionRead},
			{From: "low", To: "medium", Action: ActionWrite, Effect: protocol.Effect{
				{Field: "tier", Op: protocol.UpdateAdd, Value: 1},
			}},

			{From: "medium", To: "medium", Action: ActionRead},
			{From: "medium", To: "medium", Action: ActionWrite},
			{From: "medium", To: "high", Action: ActionExecute,
				Guard: &protocol.Guard{Field: "tier", Op: protocol.OpGreaterOrEqual, Value: 2},
				Effect: protocol.Effect{
					{Field: "tier", Op: protocol.UpdateAdd, Value: 1},
				}},

			{From: "high", To: "high", Action: ActionRead},
			{From: "high", To: "high", Action: ActionWrite},
			{From: "high", To: "high", Action: ActionExecute},
			{From: "high", To: "high", Action: ActionDelete},
		},
		Alphabet: Actions(),
	})
}

// Security returns the security-posture protocol. Execution raises the
// posture to elevated; a clean read lowers it back to normal. The
// lockdown state exists as the declared worst posture but nothing
// transitions into it.
func Security() *protocol.Protocol {
	return mustBuild(protocol.Definition{
		Name:    "security",
		Initial: "normal",
		States: []protocol.State{
			{Name: "normal", Terminal: true, Meta: protocol.Metadata{"risk": 1}},
			{Name: "elevated", Terminal: true, Meta: protocol.Metadata{"risk": 2}},
			{Name: "lockdown", Meta: protocol.Metadata{"risk": 3}},
		},
		Transitions: []protocol.TransitionDef{
			{From: "normal", To: "normal", Action: ActionRead},
			{From: "normal", To: "normal", Action: ActionWrite},
			{From: "normal", To: "elevated", Action: ActionExecute, Effect: protocol.Effect{
				{Field: "risk", Op: protocol.UpdateAdd, Value: 1},
			}},

			{From: "elevated", To: "normal", Action: ActionRead, Effect: protocol.Effect{
				{Field: "risk", Op: protocol.UpdateSub, Value: 1},
			}},
		},
		Alphabet: Actions(),
	})
}

// Budget returns the resource-budget protocol. Writes and deletes
// consume budget; reads and executions are free. Once the budget is in
// warning, only free actions remain.
func Budget() *protocol.Protocol {
	return mustBuild(protocol.Definition{
		Name:    "budget",
		Initial: "available",
		States: []protocol.State{
			{Name: "available", Terminal: true, Meta: protocol.Metadata{"budget": 2}},
			{Name: "warning", Terminal: true, Meta: protocol.Metadata{"budget": 1}},
			{Name: "exhausted", Terminal: true, Meta: protocol.Metadata{"budget": 0}},
		},
		Transitions: []protocol.TransitionDef{
			{From: "available", To: "available", Action: ActionRead},
			{From: "available", To: "available", Action: ActionExecute},
			{From: "available", To: "warning", Action: ActionWrite,
				Guard: &protocol.Guard{Field: "budget", Op: protocol.OpGreaterOrEqual, Value: 2},
				Effect: protocol.Effect{
					{Field: "budget", Op: protocol.UpdateSub, Value: 1},
				}},
			{From: "available", To: "warning", Action: ActionDelete,
				Guard: &protocol.Guard{Field: "budget", Op: protocol.OpGreaterOrEqual, Value: 2},
				Effect: protocol.Effect{
					{Field: "budget", Op: protocol.UpdateSub, Value: 1},
				}},

			{From: "warning", To: "warning", Action: ActionRead},
			{From: "warning", To: "warning", Action: ActionExecute},

			{From: "exhausted", To: "exhausted", Action: ActionRead},
		},
		Alphabet: Actions(),
	})
}

// DeadlockSink returns the deliberately broken protocol: a single
// non-terminal state declaring the full alphabet with no transitions.
// Every synchronizing action is vetoed, so any composition including
// it deadlocks immediately.
func DeadlockSink() *protocol.Protocol {
	return mustBuild(protocol.Definition{
		Name:    "sink",
		Initial: "sink",
		States: []protocol.State{
			{Name: "sink"},
		},
		Alphabet: Actions(),
	})
}

// StandardComposition returns fresh instances of the three standard
// governors in composition order: trust, security, budget.
func StandardComposition() []*protocol.Protocol {
	return []*protocol.Protocol{Trust(), Security(), Budget()}
}
