// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

// Package property declares the checkable formal properties of
// composed protocol models.
//
// A [Spec] is a pure declaration — a kind tag plus kind-specific
// parameters — with no search logic of its own; the verify package
// evaluates specs during its exhaustive exploration. Constructors
// validate parameters eagerly (a construction error), while
// [Spec.Validate] checks a spec against a concrete composed model (a
// verification-time error scoped to that property alone).
package property

import (
	"fmt"
	"strings"

	"github.com/protocheck-foundation/protocheck/lib/compose"
)

// Kind is the category of a formal property.
type Kind int

const (
	// KindDeadlockFreedom: every reachable, non-globally-terminal
	// composed state has at least one enabled move.
	KindDeadlockFreedom Kind = iota

	// KindMonotonicRestriction: along every reachable transition, a
	// selected metadata field never moves against the declared
	// direction.
	KindMonotonicRestriction

	// KindPriorityOrdering: every raced decision selected the
	// protocol consistent with an explicit total priority order.
	KindPriorityOrdering
)

// String returns the snake_case property name used in reports.
func (k Kind) String() string {
	switch k {
	case KindDeadlockFreedom:
		return "deadlock_freedom"
	case KindMonotonicRestriction:
		return "monotonic_restriction"
	case KindPriorityOrdering:
		return "priority_ordering"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the snake_case property name.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "deadlock_freedom":
		return KindDeadlockFreedom, nil
	case "monotonic_restriction":
		return KindMonotonicRestriction, nil
	case "priority_ordering":
		return KindPriorityOrdering, nil
	default:
		return 0, fmt.Errorf("unknown property kind %q", name)
	}
}

// Direction is the allowed movement of a monotonic field.
type Direction int

const (
	// NonIncreasing allows a field to stay or fall, never rise.
	NonIncreasing Direction = iota

	// NonDecreasing allows a field to stay or rise, never fall.
	NonDecreasing
)

// String returns "non_increasing" or "non_decreasing".
func (d Direction) String() string {
	if d == NonDecreasing {
		return "non_decreasing"
	}
	return "non_increasing"
}

// ParseDirection parses a direction name.
func ParseDirection(name string) (Direction, error) {
	switch name {
	case "non_increasing":
		return NonIncreasing, nil
	case "non_decreasing":
		return NonDecreasing, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want non_increasing or non_decreasing)", name)
	}
}

// Spec is a fully specified property: a kind tag with the parameters
// that kind requires. Construct through the constructor functions,
// which validate the parameters; a zero Spec is a valid
// deadlock-freedom spec.
type Spec struct {
	// Kind selects the property.
	Kind Kind

	// Field is the metadata field selector. Monotonic restriction
	// only.
	Field string

	// Direction is the allowed movement of Field. Monotonic
	// restriction only.
	Direction Direction

	// Priority is the explicit total order over protocol names,
	// highest first. Priority ordering only.
	Priority []string
}

// Name returns the report name for the spec, qualified by its
// parameters where that aids reading ("monotonic_restriction(risk
// non_increasing)").
func (s Spec) Name() string {
	switch s.Kind {
	case KindMonotonicRestriction:
		return fmt.Sprintf("%s(%s %s)", s.Kind, s.Field, s.Direction)
	case KindPriorityOrdering:
		return fmt.Sprintf("%s(%s)", s.Kind, strings.Join(s.Priority, " > "))
	default:
		return s.Kind.String()
	}
}

// DeadlockFreedom returns the deadlock-freedom spec. It has no
// parameters and cannot fail.
func DeadlockFreedom() Spec {
	return Spec{Kind: KindDeadlockFreedom}
}

// MonotonicRestriction returns a spec requiring the metadata field to
// move only in the given direction along every reachable transition.
func MonotonicRestriction(field string, direction Direction) (Spec, error) {
	if field == "" {
		return Spec{}, fmt.Errorf("monotonic restriction requires a field selector")
	}
	if direction != NonIncreasing && direction != NonDecreasing {
		return Spec{}, fmt.Errorf("unknown direction %d", int(direction))
	}
	return Spec{Kind: KindMonotonicRestriction, Field: field, Direction: direction}, nil
}

// PriorityOrdering returns a spec requiring every raced decision to
// have selected the protocol consistent with the given order (highest
// first). The order must be non-empty and free of duplicates; whether
// it matches the composed protocol set is checked per model by
// [Spec.Validate].
func PriorityOrdering(order []string) (Spec, error) {
	if len(order) == 0 {
		return Spec{}, fmt.Errorf("priority ordering requires a non-empty order")
	}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if name == "" {
			return Spec{}, fmt.Errorf("priority ordering contains an empty protocol name")
		}
		if seen[name] {
			return Spec{}, fmt.Errorf("priority ordering names protocol %q twice", name)
		}
		seen[name] = true
	}
	spec := Spec{Kind: KindPriorityOrdering, Priority: make([]string, len(order))}
	copy(spec.Priority, order)
	return spec, nil
}

// Validate checks the spec against a concrete composed model: the
// monotonic field selector must be declared by at least one component
// protocol, and a priority order must be an exact permutation of the
// composed protocol set. This failure mode is scoped to the property;
// it never invalidates the model or other specs.
func (s Spec) Validate(m *compose.Model) error {
	switch s.Kind {
	case KindDeadlockFreedom:
		return nil

	case KindMonotonicRestriction:
		if s.Field == "" {
			return fmt.Errorf("monotonic restriction requires a field selector")
		}
		if !m.DeclaresField(s.Field) {
			return fmt.Errorf("no composed protocol declares metadata field %q", s.Field)
		}
		return nil

	case KindPriorityOrdering:
		names := m.Names()
		if len(s.Priority) != len(names) {
			return fmt.Errorf("priority order has %d names, composed model has %d protocols",
				len(s.Priority), len(names))
		}
		known := make(map[string]bool, len(names))
		for _, name := range names {
			known[name] = true
		}
		for _, name := range s.Priority {
			if !known[name] {
				return fmt.Errorf("priority order names protocol %q not present in the composed model", name)
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown property kind %d", int(s.Kind))
	}
}
