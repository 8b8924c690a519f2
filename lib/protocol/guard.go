// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"math"
)

// CompareOp is a comparison operator in a guard. The zero value is
// reserved so that a zero [Guard] means "no guard".
type CompareOp int

const (
	// OpEqual matches when the field equals the guard value.
	OpEqual CompareOp = iota + 1

	// OpNotEqual matches when the field differs from the guard value.
	OpNotEqual

	// OpLess matches when the field is strictly below the guard value.
	OpLess

	// OpLessOrEqual matches when the field is at most the guard value.
	OpLessOrEqual

	// OpGreater matches when the field is strictly above the guard value.
	OpGreater

	// OpGreaterOrEqual matches when the field is at least the guard value.
	OpGreaterOrEqual
)

// String returns the operator's surface syntax ("==", "<", ...).
func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// MarshalText implements encoding.TextMarshaler so guards serialize
// with their surface syntax in JSONC definitions.
func (op CompareOp) MarshalText() ([]byte, error) {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return []byte(op.String()), nil
	}
	return nil, fmt.Errorf("unknown comparison operator %d", int(op))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *CompareOp) UnmarshalText(text []byte) error {
	switch string(text) {
	case "==":
		*op = OpEqual
	case "!=":
		*op = OpNotEqual
	case "<":
		*op = OpLess
	case "<=":
		*op = OpLessOrEqual
	case ">":
		*op = OpGreater
	case ">=":
		*op = OpGreaterOrEqual
	default:
		return fmt.Errorf("unknown comparison operator %q", string(text))
	}
	return nil
}

// Guard is a single comparison over one metadata field. A transition
// with a zero Guard is unconditional. Guards evaluate over the source
// state's metadata overlaid with the caller's context (context wins).
//
// Guards are deliberately a closed form rather than a predicate
// function: the composer and verifier must be able to decide, at
// construction time, whether two guards on the same source and action
// can be simultaneously satisfiable.
type Guard struct {
	// Field is the metadata field the comparison reads.
	Field string `json:"field"`

	// Op is the comparison operator.
	Op CompareOp `json:"op"`

	// Value is the right-hand side of the comparison.
	Value int64 `json:"value"`
}

// IsZero reports whether the guard is absent (always satisfied).
func (g Guard) IsZero() bool {
	return g == Guard{}
}

// Holds evaluates the guard against an evaluation view. A guard on a
// field missing from the view fails: an undeclared field is not
// implicitly zero.
func (g Guard) Holds(view Metadata) bool {
	if g.IsZero() {
		return true
	}
	value, ok := view[g.Field]
	if !ok {
		return false
	}
	switch g.Op {
	case OpEqual:
		return value == g.Value
	case OpNotEqual:
		return value != g.Value
	case OpLess:
		return value < g.Value
	case OpLessOrEqual:
		return value <= g.Value
	case OpGreater:
		return value > g.Value
	case OpGreaterOrEqual:
		return value >= g.Value
	default:
		return false
	}
}

// String renders the guard as "field op value", or "(none)" for the
// zero guard.
func (g Guard) String() string {
	if g.IsZero() {
		return "(none)"
	}
	return fmt.Sprintf("%s %s %d", g.Field, g.Op, g.Value)
}

// guardRange is the solution set of a single guard over one field:
// the closed interval [lo, hi] minus at most one excluded point.
type guardRange struct {
	lo, hi   int64
	excluded *int64
}

// solutionRange returns the set of field values satisfying the guard.
// The empty set is represented by lo > hi.
func (g Guard) solutionRange() guardRange {
	full := guardRange{lo: math.MinInt64, hi: math.MaxInt64}
	switch g.Op {
	case OpEqual:
		return guardRange{lo: g.Value, hi: g.Value}
	case OpNotEqual:
		v := g.Value
		full.excluded = &v
		return full
	case OpLess:
		if g.Value == math.MinInt64 {
			return guardRange{lo: 1, hi: 0}
		}
		return guardRange{lo: math.MinInt64, hi: g.Value - 1}
	case OpLessOrEqual:
		return guardRange{lo: math.MinInt64, hi: g.Value}
	case OpGreater:
		if g.Value == math.MaxInt64 {
			return guardRange{lo: 1, hi: 0}
		}
		return guardRange{lo: g.Value + 1, hi: math.MaxInt64}
	case OpGreaterOrEqual:
		return guardRange{lo: g.Value, hi: math.MaxInt64}
	default:
		return full
	}
}

// Overlaps reports whether some evaluation view satisfies both
// guards. Guards on different fields always overlap (both can hold at
// once); guards on the same field overlap when their solution sets
// intersect. A zero guard overlaps everything.
func (g Guard) Overlaps(h Guard) bool {
	if g.IsZero() || h.IsZero() {
		return true
	}
	if g.Field != h.Field {
		return true
	}
	a, b := g.solutionRange(), h.solutionRange()

	lo := max(a.lo, b.lo)
	hi := min(a.hi, b.hi)
	if lo > hi {
		return false
	}

	// The intersection interval is non-empty; it is void only if it
	// consists entirely of excluded points (at most one per guard).
	for _, excluded := range []*int64{a.excluded, b.excluded} {
		if excluded != nil && lo == hi && *excluded == lo {
			return false
		}
	}
	if a.excluded != nil && b.excluded != nil &&
		*a.excluded != *b.excluded &&
		hi-lo == 1 &&
		(*a.excluded == lo || *a.excluded == hi) &&
		(*b.excluded == lo || *b.excluded == hi) {
		return false
	}
	return true
}

// UpdateOp is a field update operator in an effect.
type UpdateOp int

const (
	// UpdateSet assigns the update value to the field.
	UpdateSet UpdateOp = iota + 1

	// UpdateAdd adds the update value to the field.
	UpdateAdd

	// UpdateSub subtracts the update value from the field.
	UpdateSub
)

// String returns "set", "add", or "sub".
func (op UpdateOp) String() string {
	switch op {
	case UpdateSet:
		return "set"
	case UpdateAdd:
		return "add"
	case UpdateSub:
		return "sub"
	default:
		return fmt.Sprintf("update(%d)", int(op))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (op UpdateOp) MarshalText() ([]byte, error) {
	switch op {
	case UpdateSet, UpdateAdd, UpdateSub:
		return []byte(op.String()), nil
	}
	return nil, fmt.Errorf("unknown update operator %d", int(op))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *UpdateOp) UnmarshalText(text []byte) error {
	switch string(text) {
	case "set":
		*op = UpdateSet
	case "add":
		*op = UpdateAdd
	case "sub":
		*op = UpdateSub
	default:
		return fmt.Errorf("unknown update operator %q", string(text))
	}
	return nil
}

// Update mutates a single metadata field.
type Update struct {
	// Field is the metadata field to update.
	Field string `json:"field"`

	// Op is the update operator.
	Op UpdateOp `json:"op"`

	// Value is the operand.
	Value int64 `json:"value"`
}

// Effect is an ordered list of field updates. A transition's effect,
// applied to its source state's metadata, must reproduce the target
// state's declared metadata — [New] validates this, which keeps
// metadata a pure function of the state and the composed state space
// finite.
type Effect []Update

// Apply returns a copy of m with every update applied in order. The
// input is not modified.
func (e Effect) Apply(m Metadata) Metadata {
	result := m.Clone()
	if result == nil {
		result = Metadata{}
	}
	for _, update := range e {
		switch update.Op {
		case UpdateSet:
			result[update.Field] = update.Value
		case UpdateAdd:
			result[update.Field] += update.Value
		case UpdateSub:
			result[update.Field] -= update.Value
		}
	}
	return result
}
