// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"testing"
)

// twoTier returns a minimal two-state definition used across tests:
// low --promote--> high, with a self-loop read on both states.
func twoTier() Definition {
	return Definition{
		Name:    "tier",
		Initial: "low",
		States: []State{
			{Name: "low", Meta: Metadata{"permission": 1}},
			{Name: "high", Terminal: true, Meta: Metadata{"permission": 2}},
		},
		Transitions: []TransitionDef{
			{From: "low", To: "low", Action: "read"},
			{From: "low", To: "high", Action: "promote",
				Effect: Effect{{Field: "permission", Op: UpdateAdd, Value: 1}}},
			{From: "high", To: "high", Action: "read"},
		},
	}
}

func build(t *testing.T, def Definition) *Protocol {
	t.Helper()
	p, err := New(def)
	if err != nil {
		t.Fatalf("New(%s): %v", def.Name, err)
	}
	return p
}

func TestNewValid(t *testing.T) {
	p := build(t, twoTier())

	if p.Name() != "tier" {
		t.Errorf("Name() = %q, want %q", p.Name(), "tier")
	}
	if p.StateCount() != 2 {
		t.Errorf("StateCount() = %d, want 2", p.StateCount())
	}
	if got := p.State(p.Initial()).Name; got != "low" {
		t.Errorf("initial state = %q, want %q", got, "low")
	}
	wantAlphabet := []string{"promote", "read"}
	gotAlphabet := p.Alphabet()
	if len(gotAlphabet) != len(wantAlphabet) {
		t.Fatalf("Alphabet() = %v, want %v", gotAlphabet, wantAlphabet)
	}
	for i := range wantAlphabet {
		if gotAlphabet[i] != wantAlphabet[i] {
			t.Errorf("Alphabet()[%d] = %q, want %q", i, gotAlphabet[i], wantAlphabet[i])
		}
	}
}

func TestNewValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"empty name", func(d *Definition) { d.Name = "" }},
		{"no states", func(d *Definition) { d.States = nil }},
		{"duplicate state", func(d *Definition) {
			d.States = append(d.States, State{Name: "low", Meta: Metadata{"permission": 9}})
		}},
		{"undeclared initial", func(d *Definition) { d.Initial = "missing" }},
		{"undeclared source", func(d *Definition) {
			d.Transitions = append(d.Transitions, TransitionDef{From: "ghost", To: "low", Action: "read"})
		}},
		{"undeclared target", func(d *Definition) {
			d.Transitions = append(d.Transitions, TransitionDef{From: "low", To: "ghost", Action: "read"})
		}},
		{"empty action", func(d *Definition) {
			d.Transitions = append(d.Transitions, TransitionDef{From: "low", To: "low"})
		}},
		{"metadata field mismatch", func(d *Definition) {
			d.States[1].Meta = Metadata{"risk": 1}
		}},
		{"effect disagrees with target", func(d *Definition) {
			d.Transitions[1].Effect = Effect{{Field: "permission", Op: UpdateSet, Value: 7}}
		}},
		{"empty declared alphabet entry", func(d *Definition) {
			d.Alphabet = []string{""}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := twoTier()
			tc.mutate(&def)
			_, err := New(def)
			if err == nil {
				t.Fatal("New() succeeded, want error")
			}
			var modelErr *ModelError
			if !errors.As(err, &modelErr) {
				t.Errorf("New() error type = %T, want *ModelError", err)
			}
		})
	}
}

func TestNewRejectsOverlappingGuards(t *testing.T) {
	def := twoTier()
	// Two transitions on (low, promote): one guarded permission >= 1,
	// one unguarded. Both satisfiable by the same view.
	def.Transitions = append(def.Transitions, TransitionDef{
		From: "low", To: "low", Action: "promote",
		Guard: &Guard{Field: "permission", Op: OpGreaterOrEqual, Value: 1},
	})
	if _, err := New(def); err == nil {
		t.Fatal("New() accepted overlapping guards, want error")
	}
}

func TestNewAcceptsDisjointGuards(t *testing.T) {
	def := Definition{
		Name:    "branch",
		Initial: "start",
		States: []State{
			{Name: "start", Meta: Metadata{"level": 0}},
			{Name: "left", Meta: Metadata{"level": 0}},
			{Name: "right", Meta: Metadata{"level": 0}},
		},
		Transitions: []TransitionDef{
			{From: "start", To: "left", Action: "go",
				Guard: &Guard{Field: "level", Op: OpLess, Value: 1}},
			{From: "start", To: "right", Action: "go",
				Guard: &Guard{Field: "level", Op: OpGreaterOrEqual, Value: 1}},
		},
	}
	p := build(t, def)

	// level=0 at start, so the left branch fires.
	decision := p.Step(p.Initial(), "go", nil)
	if !decision.Accepted {
		t.Fatalf("Step(go) rejected: %s", decision)
	}
	if got := p.State(decision.Next).Name; got != "left" {
		t.Errorf("Step(go) landed in %q, want %q", got, "left")
	}

	// A stimulus context overrides the metadata view and flips the
	// branch.
	decision = p.Step(p.Initial(), "go", Metadata{"level": 3})
	if got := p.State(decision.Next).Name; got != "right" {
		t.Errorf("Step(go, level=3) landed in %q, want %q", got, "right")
	}
}

func TestStepDeterminism(t *testing.T) {
	p := build(t, twoTier())

	first := p.Step(p.Initial(), "promote", nil)
	for i := 0; i < 10; i++ {
		again := p.Step(p.Initial(), "promote", nil)
		if again.Accepted != first.Accepted || again.Next != first.Next {
			t.Fatalf("Step() call %d = %s, first call = %s", i, again, first)
		}
	}
}

func TestStepRejections(t *testing.T) {
	p := build(t, twoTier())

	decision := p.Step(p.Initial(), "delete", nil)
	if decision.Accepted {
		t.Fatal("Step(delete) accepted, want rejection")
	}
	if decision.Reason != ReasonNoTransition {
		t.Errorf("Step(delete) reason = %v, want %v", decision.Reason, ReasonNoTransition)
	}
	if decision.Next != decision.From {
		t.Errorf("rejected step moved state: %d -> %d", decision.From, decision.Next)
	}

	decision = p.Step(99, "read", nil)
	if decision.Reason != ReasonUnknownState {
		t.Errorf("Step(99) reason = %v, want %v", decision.Reason, ReasonUnknownState)
	}
}

func TestStepGuardFailed(t *testing.T) {
	def := twoTier()
	def.Transitions[1].Guard = &Guard{Field: "permission", Op: OpGreaterOrEqual, Value: 5}
	def.Transitions[1].Effect = nil
	p := build(t, def)

	decision := p.Step(p.Initial(), "promote", nil)
	if decision.Accepted {
		t.Fatal("Step(promote) accepted, want guard failure")
	}
	if decision.Reason != ReasonGuardFailed {
		t.Errorf("reason = %v, want %v", decision.Reason, ReasonGuardFailed)
	}
}

func TestStepEffectMetadata(t *testing.T) {
	p := build(t, twoTier())

	decision := p.Step(p.Initial(), "promote", nil)
	if !decision.Accepted {
		t.Fatalf("Step(promote) rejected: %s", decision)
	}
	if got := decision.Meta["permission"]; got != 2 {
		t.Errorf("result metadata permission = %d, want 2", got)
	}
	// The effect-derived metadata equals the target's declaration.
	if !decision.Meta.Equal(p.State(decision.Next).Meta) {
		t.Errorf("effect metadata %s differs from target declaration %s",
			decision.Meta, p.State(decision.Next).Meta)
	}
}

func TestReachableActions(t *testing.T) {
	p := build(t, twoTier())

	got := p.ReachableActions(p.Initial())
	want := []string{"promote", "read"}
	if len(got) != len(want) {
		t.Fatalf("ReachableActions(low) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReachableActions(low)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := p.ReachableActions(99); got != nil {
		t.Errorf("ReachableActions(99) = %v, want nil", got)
	}
}

func TestDeclaredAlphabetWithoutTransitions(t *testing.T) {
	def := twoTier()
	def.Alphabet = []string{"delete"}
	p := build(t, def)

	if !p.Declares("delete") {
		t.Error("Declares(delete) = false, want true")
	}
	// Declared-only actions never appear as reachable.
	for _, action := range p.ReachableActions(p.Initial()) {
		if action == "delete" {
			t.Error("ReachableActions includes declared-only action")
		}
	}
}
