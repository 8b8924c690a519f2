// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/protocheck-foundation/protocheck/lib/compose"
	"github.com/protocheck-foundation/protocheck/lib/property"
	"github.com/protocheck-foundation/protocheck/lib/protocol"
	"github.com/protocheck-foundation/protocheck/lib/verify"
)

func quietVerifier() *verify.Verifier {
	return &verify.Verifier{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestBuildersDeclareFullAlphabet(t *testing.T) {
	for _, p := range []*protocol.Protocol{Trust(), Security(), Budget(), DeadlockSink()} {
		for _, action := range Actions() {
			if !p.Declares(action) {
				t.Errorf("%s does not declare %q", p.Name(), action)
			}
		}
	}
}

func TestStandardCompositionNames(t *testing.T) {
	protocols := StandardComposition()
	want := []string{"trust", "security", "budget"}
	if len(protocols) != len(want) {
		t.Fatalf("got %d protocols, want %d", len(protocols), len(want))
	}
	for i, name := range want {
		if got := protocols[i].Name(); got != name {
			t.Errorf("protocol %d = %q, want %q", i, got, name)
		}
	}
}

func TestStandardCompositionProperties(t *testing.T) {
	m, err := compose.Compose(StandardComposition(), compose.Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	tier, err := property.MonotonicRestriction("tier", property.NonDecreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}
	budget, err := property.MonotonicRestriction("budget", property.NonIncreasing)
	if err != nil {
		t.Fatalf("MonotonicRestriction: %v", err)
	}

	reports, err := quietVerifier().Verify(m, []property.Spec{
		property.DeadlockFreedom(), tier, budget,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for _, r := range reports {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Spec.Name(), r.Err)
			continue
		}
		if !r.Result.Holds {
			t.Errorf("%s failed: %v", r.Spec.Name(), r.Result.Violations)
		}
	}
}

func TestDeadlockSinkBreaksComposition(t *testing.T) {
	protocols := append(StandardComposition(), DeadlockSink())
	m, err := compose.Compose(protocols, compose.Policy{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	reports, err := quietVerifier().Verify(m, []property.Spec{property.DeadlockFreedom()})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	r := reports[0]
	if r.Err != nil {
		t.Fatalf("report error: %v", r.Err)
	}
	if r.Result.Holds {
		t.Fatal("deadlock freedom held with the sink composed in")
	}
	violation := r.Result.Violations[0]
	if len(violation.Path) != 0 {
		t.Errorf("witness path = %v, want the initial state", violation.Path)
	}
	if got := violation.State["sink"]; got != "sink" {
		t.Errorf("sink state = %q", got)
	}
}

func TestParseJSONC(t *testing.T) {
	def, err := Parse([]byte(`{
		// a minimal two-state protocol
		"name": "demo",
		"initial": "a",
		"states": [
			{"name": "a"},
			{"name": "b", "terminal": true},
		],
		"transitions": [
			{"from": "a", "to": "b", "action": "go"},
		],
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "demo" || def.Initial != "a" {
		t.Errorf("definition = %+v", def)
	}
	if issues := Validate(def); len(issues) != 0 {
		t.Errorf("Validate issues: %v", issues)
	}
	if _, err := protocol.New(*def); err != nil {
		t.Errorf("protocol.New: %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"name": `)); err == nil {
		t.Error("Parse of truncated input succeeded, want error")
	}
}

func TestValidateIssues(t *testing.T) {
	def := &protocol.Definition{
		Initial: "ghost",
		States: []protocol.State{
			{Name: "a"},
			{Name: "a"},
		},
		Transitions: []protocol.TransitionDef{
			{From: "a", To: "missing", Action: ""},
		},
		Alphabet: []string{""},
	}

	issues := Validate(def)
	wantSubstrings := []string{
		"no name",
		"declared twice",
		"initial state",
		"no action",
		"undeclared target",
		"alphabet entry",
	}
	for _, want := range wantSubstrings {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no issue mentions %q in %v", want, issues)
		}
	}
}
