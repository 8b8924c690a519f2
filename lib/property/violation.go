// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
	"strings"
)

// FieldChange records a metadata field moving across one transition.
type FieldChange struct {
	// Field is the selected metadata field.
	Field string `json:"field"`

	// Before is the field value in the source component state.
	Before int64 `json:"before"`

	// After is the field value in the target component state.
	After int64 `json:"after"`
}

// Violation is one concrete witness of a property violation. Plain
// and serializable: downstream report layers render these directly.
type Violation struct {
	// Property is the report name of the violated spec.
	Property string `json:"property"`

	// Description is the human-readable summary.
	Description string `json:"description"`

	// State maps protocol names to component state names at the
	// offending composed state.
	State map[string]string `json:"state"`

	// Path is the action sequence from the initial composed state to
	// the offending state. Breadth-first exploration makes this a
	// minimal-length counterexample trace.
	Path []string `json:"path,omitempty"`

	// Action is the offending action label, where one is implicated.
	Action string `json:"action,omitempty"`

	// Protocol is the implicated component protocol, where one is.
	Protocol string `json:"protocol,omitempty"`

	// Change is the offending field movement. Monotonic restriction
	// only.
	Change *FieldChange `json:"change,omitempty"`
}

// pathString renders an action path for descriptions.
func pathString(path []string) string {
	if len(path) == 0 {
		return "(initial state)"
	}
	return strings.Join(path, " -> ")
}

// DeadlockViolation builds the witness for a stuck composed state.
func DeadlockViolation(spec Spec, state map[string]string, path []string) Violation {
	return Violation{
		Property: spec.Name(),
		Description: fmt.Sprintf("deadlock: no enabled action after %s",
			pathString(path)),
		State: state,
		Path:  path,
	}
}

// MonotonicViolation builds the witness for a transition moving a
// field against the declared direction.
func MonotonicViolation(spec Spec, state map[string]string, path []string, action, protocol string, before, after int64) Violation {
	return Violation{
		Property: spec.Name(),
		Description: fmt.Sprintf("monotonic restriction: %s moved %q from %d to %d on %q after %s (declared %s)",
			protocol, spec.Field, before, after, action, pathString(path), spec.Direction),
		State:    state,
		Path:     path,
		Action:   action,
		Protocol: protocol,
		Change:   &FieldChange{Field: spec.Field, Before: before, After: after},
	}
}

// PriorityViolation builds the witness for a raced decision that
// favored a lower-priority protocol over an available higher-priority
// proposal.
func PriorityViolation(spec Spec, state map[string]string, path []string, action, selected, expected string) Violation {
	return Violation{
		Property: spec.Name(),
		Description: fmt.Sprintf("priority ordering: selected %q (%q) over higher-priority %q after %s",
			selected, action, expected, pathString(path)),
		State:    state,
		Path:     path,
		Action:   action,
		Protocol: selected,
	}
}
