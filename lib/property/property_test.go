// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"strings"
	"testing"

	"github.com/protocheck-foundation/protocheck/lib/compose"
	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

func testModel(t *testing.T) *compose.Model {
	t.Helper()
	first, err := protocol.New(protocol.Definition{
		Name:    "first",
		Initial: "s",
		States: []protocol.State{
			{Name: "s", Meta: protocol.Metadata{"permission": 1}},
		},
		Transitions: []protocol.TransitionDef{
			{From: "s", To: "s", Action: "tick"},
		},
	})
	if err != nil {
		t.Fatalf("protocol.New(first): %v", err)
	}
	second, err := protocol.New(protocol.Definition{
		Name:    "second",
		Initial: "s",
		States: []protocol.State{
			{Name: "s"},
		},
		Transitions: []protocol.TransitionDef{
			{From: "s", To: "s", Action: "tock"},
		},
	})
	if err != nil {
		t.Fatalf("protocol.New(second): %v", err)
	}
	m, err := compose.Compose([]*protocol.Protocol{first, second}, compose.Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return m
}

func TestConstructorValidation(t *testing.T) {
	if _, err := MonotonicRestriction("", NonIncreasing); err == nil {
		t.Error("MonotonicRestriction(\"\") succeeded, want error")
	}
	if _, err := MonotonicRestriction("permission", Direction(9)); err == nil {
		t.Error("MonotonicRestriction with bogus direction succeeded, want error")
	}
	if _, err := PriorityOrdering(nil); err == nil {
		t.Error("PriorityOrdering(nil) succeeded, want error")
	}
	if _, err := PriorityOrdering([]string{"a", "a"}); err == nil {
		t.Error("PriorityOrdering with duplicate succeeded, want error")
	}
	if _, err := PriorityOrdering([]string{"a", ""}); err == nil {
		t.Error("PriorityOrdering with empty name succeeded, want error")
	}
}

func TestSpecNames(t *testing.T) {
	if got := DeadlockFreedom().Name(); got != "deadlock_freedom" {
		t.Errorf("DeadlockFreedom().Name() = %q", got)
	}

	mono, err := MonotonicRestriction("risk", NonIncreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}
	if got := mono.Name(); got != "monotonic_restriction(risk non_increasing)" {
		t.Errorf("monotonic Name() = %q", got)
	}

	prio, err := PriorityOrdering([]string{"first", "second"})
	if err != nil {
		t.Fatalf("PriorityOrdering: %v", err)
	}
	if got := prio.Name(); !strings.Contains(got, "first > second") {
		t.Errorf("priority Name() = %q, want the order rendered", got)
	}
}

func TestValidateAgainstModel(t *testing.T) {
	m := testModel(t)

	if err := DeadlockFreedom().Validate(m); err != nil {
		t.Errorf("deadlock freedom Validate: %v", err)
	}

	mono, err := MonotonicRestriction("permission", NonDecreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}
	if err := mono.Validate(m); err != nil {
		t.Errorf("Validate(permission): %v", err)
	}

	missing, err := MonotonicRestriction("undeclared", NonDecreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}
	if err := missing.Validate(m); err == nil {
		t.Error("Validate(undeclared field) succeeded, want error")
	}

	good, err := PriorityOrdering([]string{"second", "first"})
	if err != nil {
		t.Fatalf("PriorityOrdering: %v", err)
	}
	if err := good.Validate(m); err != nil {
		t.Errorf("Validate(permutation): %v", err)
	}

	for _, order := range [][]string{
		{"first"},                   // omits second
		{"first", "ghost"},          // unknown protocol
		{"first", "second", "more"}, // wrong length
	} {
		spec := Spec{Kind: KindPriorityOrdering, Priority: order}
		if err := spec.Validate(m); err == nil {
			t.Errorf("Validate(%v) succeeded, want error", order)
		}
	}
}

func TestParseRoundTrips(t *testing.T) {
	for _, kind := range []Kind{KindDeadlockFreedom, KindMonotonicRestriction, KindPriorityOrdering} {
		parsed, err := ParseKind(kind.String())
		if err != nil {
			t.Errorf("ParseKind(%s): %v", kind, err)
		}
		if parsed != kind {
			t.Errorf("ParseKind(%s) = %v", kind, parsed)
		}
	}
	if _, err := ParseKind("liveness"); err == nil {
		t.Error("ParseKind(liveness) succeeded, want error")
	}

	for _, direction := range []Direction{NonIncreasing, NonDecreasing} {
		parsed, err := ParseDirection(direction.String())
		if err != nil {
			t.Errorf("ParseDirection(%s): %v", direction, err)
		}
		if parsed != direction {
			t.Errorf("ParseDirection(%s) = %v", direction, parsed)
		}
	}
	if _, err := ParseDirection("upward"); err == nil {
		t.Error("ParseDirection(upward) succeeded, want error")
	}
}

func TestViolationDescriptions(t *testing.T) {
	state := map[string]string{"first": "s", "second": "s"}

	deadlock := DeadlockViolation(DeadlockFreedom(), state, nil)
	if !strings.Contains(deadlock.Description, "(initial state)") {
		t.Errorf("deadlock at initial state: %q", deadlock.Description)
	}

	mono, err := MonotonicRestriction("permission", NonIncreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}
	violation := MonotonicViolation(mono, state, []string{"write"}, "promote", "first", 1, 2)
	if violation.Change == nil || violation.Change.Before != 1 || violation.Change.After != 2 {
		t.Errorf("monotonic Change = %+v", violation.Change)
	}
	if !strings.Contains(violation.Description, "write -> ") && !strings.Contains(violation.Description, "write") {
		t.Errorf("monotonic description omits path: %q", violation.Description)
	}

	prio, err := PriorityOrdering([]string{"first", "second"})
	if err != nil {
		t.Fatalf("PriorityOrdering: %v", err)
	}
	pv := PriorityViolation(prio, state, []string{"a", "b"}, "tock", "second", "first")
	if pv.Protocol != "second" || pv.Action != "tock" {
		t.Errorf("priority violation = %+v", pv)
	}
	if !strings.Contains(pv.Description, "a -> b") {
		t.Errorf("priority description omits path: %q", pv.Description)
	}
}
