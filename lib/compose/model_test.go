// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"errors"
	"testing"

	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// mustProtocol builds a protocol or fails the test.
func mustProtocol(t *testing.T, def protocol.Definition) *protocol.Protocol {
	t.Helper()
	p, err := protocol.New(def)
	if err != nil {
		t.Fatalf("protocol.New(%s): %v", def.Name, err)
	}
	return p
}

// privatePair returns two protocols with disjoint single-action
// alphabets: "alpha" owns "left", "beta" owns "right".
func privatePair(t *testing.T) (*protocol.Protocol, *protocol.Protocol) {
	t.Helper()
	alpha := mustProtocol(t, protocol.Definition{
		Name:    "alpha",
		Initial: "a0",
		States: []protocol.State{
			{Name: "a0"},
			{Name: "a1", Terminal: true},
		},
		Transitions: []protocol.TransitionDef{
			{From: "a0", To: "a1", Action: "left"},
		},
	})
	beta := mustProtocol(t, protocol.Definition{
		Name:    "beta",
		Initial: "b0",
		States: []protocol.State{
			{Name: "b0"},
			{Name: "b1", Terminal: true},
		},
		Transitions: []protocol.TransitionDef{
			{From: "b0", To: "b1", Action: "right"},
		},
	})
	return alpha, beta
}

// syncPair returns two protocols sharing the action "go".
func syncPair(t *testing.T) (*protocol.Protocol, *protocol.Protocol) {
	t.Helper()
	one := mustProtocol(t, protocol.Definition{
		Name:    "one",
		Initial: "x0",
		States: []protocol.State{
			{Name: "x0"},
			{Name: "x1", Terminal: true},
		},
		Transitions: []protocol.TransitionDef{
			{From: "x0", To: "x1", Action: "go"},
		},
	})
	two := mustProtocol(t, protocol.Definition{
		Name:    "two",
		Initial: "y0",
		States: []protocol.State{
			{Name: "y0"},
			{Name: "y1", Terminal: true},
		},
		Transitions: []protocol.TransitionDef{
			{From: "y0", To: "y1", Action: "go"},
		},
	})
	return one, two
}

func TestComposeValidation(t *testing.T) {
	alpha, beta := privatePair(t)

	if _, err := Compose(nil, Policy{}); err == nil {
		t.Error("Compose(nil) succeeded, want error")
	}

	if _, err := Compose([]*protocol.Protocol{alpha, alpha}, Policy{}); err == nil {
		t.Error("Compose with duplicate names succeeded, want error")
	}

	cases := []struct {
		name     string
		priority []string
	}{
		{"unknown name", []string{"alpha", "gamma"}},
		{"duplicate name", []string{"alpha", "alpha"}},
		{"omitted protocol", []string{"alpha"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compose([]*protocol.Protocol{alpha, beta}, Policy{Priority: tc.priority})
			if err == nil {
				t.Fatal("Compose succeeded, want error")
			}
			var composeErr *Error
			if !errors.As(err, &composeErr) {
				t.Errorf("error type = %T, want *compose.Error", err)
			}
		})
	}
}

func TestComposeDefaults(t *testing.T) {
	alpha, beta := privatePair(t)
	m, err := Compose([]*protocol.Protocol{alpha, beta}, Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	// Empty policy priority falls back to declaration order.
	priority := m.Priority()
	if len(priority) != 2 || priority[0] != "alpha" || priority[1] != "beta" {
		t.Errorf("Priority() = %v, want [alpha beta]", priority)
	}

	if got := m.StateBound(); got != 4 {
		t.Errorf("StateBound() = %d, want 4", got)
	}

	if sync := m.Synchronizing(); len(sync) != 0 {
		t.Errorf("Synchronizing() = %v, want none", sync)
	}
	owner, ok := m.Owner("left")
	if !ok || m.Protocol(owner).Name() != "alpha" {
		t.Errorf("Owner(left) = %d, %v; want alpha's index", owner, ok)
	}
}

func TestVocabularyPartition(t *testing.T) {
	one, two := syncPair(t)
	m, err := Compose([]*protocol.Protocol{one, two}, Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	sync := m.Synchronizing()
	if len(sync) != 1 || sync[0] != "go" {
		t.Errorf("Synchronizing() = %v, want [go]", sync)
	}
	if _, ok := m.Owner("go"); ok {
		t.Error("Owner(go) reported an owner for a synchronizing action")
	}
	if got := m.Participants("go"); len(got) != 2 {
		t.Errorf("Participants(go) = %v, want both protocols", got)
	}
}

func TestCompStateIdentity(t *testing.T) {
	one, two := syncPair(t)
	m, err := Compose([]*protocol.Protocol{one, two}, Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	initial := m.Initial()
	if initial.Key() != "0,0" {
		t.Errorf("initial Key() = %q, want %q", initial.Key(), "0,0")
	}

	moves := m.Successors(initial)
	if len(moves) != 1 {
		t.Fatalf("Successors(initial) = %d moves, want 1", len(moves))
	}
	next := moves[0].To
	if next.Key() != "1,1" {
		t.Errorf("successor Key() = %q, want %q", next.Key(), "1,1")
	}
	if next.Equal(initial) {
		t.Error("successor Equal(initial) = true, want false")
	}
	if !m.GloballyTerminal(next) {
		t.Error("GloballyTerminal(1,1) = false, want true")
	}
	if m.GloballyTerminal(initial) {
		t.Error("GloballyTerminal(0,0) = true, want false")
	}

	names := m.StateNames(next)
	if names["one"] != "x1" || names["two"] != "y1" {
		t.Errorf("StateNames = %v, want x1/y1", names)
	}
}

func TestDeclaresField(t *testing.T) {
	alpha := mustProtocol(t, protocol.Definition{
		Name:    "metered",
		Initial: "s",
		States: []protocol.State{
			{Name: "s", Meta: protocol.Metadata{"budget": 3}},
		},
		Transitions: []protocol.TransitionDef{
			{From: "s", To: "s", Action: "tick"},
		},
	})
	m, err := Compose([]*protocol.Protocol{alpha}, Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !m.DeclaresField("budget") {
		t.Error("DeclaresField(budget) = false, want true")
	}
	if m.DeclaresField("permission") {
		t.Error("DeclaresField(permission) = true, want false")
	}
}
