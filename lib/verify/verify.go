// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"
	"log/slog"

	"github.com/protocheck-foundation/protocheck/lib/compose"
	"github.com/protocheck-foundation/protocheck/lib/property"
)

// DefaultMaxStates is the exploration bound when the verifier does not
// set one.
const DefaultMaxStates = 10000

// ErrorKind classifies per-report verification errors.
type ErrorKind int

const (
	// ErrInvalidSpec marks a property spec that does not apply to the
	// composed model (unknown field, wrong priority order). Other
	// specs in the same call are unaffected.
	ErrInvalidSpec ErrorKind = iota + 1

	// ErrBoundExceeded marks an exploration that hit the state bound
	// before exhausting the reachable set. Every report in the call is
	// inconclusive.
	ErrBoundExceeded
)

// String returns the kind's report name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidSpec:
		return "invalid_spec"
	case ErrBoundExceeded:
		return "bound_exceeded"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a per-report verification error. A report carries either a
// result or one of these, never both.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Detail describes it.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string { return "verify: " + e.Detail }

// Result is the conclusive outcome of checking one property.
type Result struct {
	// Holds is true when no violation was found over the full
	// reachable state space.
	Holds bool

	// Violations are all witnesses found, in discovery order. Paths
	// are minimal-length by breadth-first construction.
	Violations []property.Violation

	// RecordsChecked counts the exploration records the property was
	// evaluated against: reachable states for deadlock freedom,
	// traversed edges for monotonic restriction, raced conflict
	// decisions for priority ordering.
	RecordsChecked int
}

// Report pairs a property spec with its outcome.
type Report struct {
	// Spec is the property checked.
	Spec property.Spec

	// Result is the conclusive outcome, nil when Err is set.
	Result *Result

	// Err is the per-property failure, nil when Result is set.
	Err *Error
}

// Verifier checks property specs against composed models. The zero
// value verifies sequentially with the default state bound.
type Verifier struct {
	// MaxStates bounds exploration; zero or negative means
	// DefaultMaxStates.
	MaxStates int

	// Workers sets the parallelism of per-state expansion. Values
	// below two mean sequential. Results are identical either way.
	Workers int

	// Logger receives exploration progress and bound warnings. Nil
	// means slog.Default.
	Logger *slog.Logger
}

func (v *Verifier) maxStates() int {
	if v.MaxStates > 0 {
		return v.MaxStates
	}
	return DefaultMaxStates
}

func (v *Verifier) workers() int {
	if v.Workers > 1 {
		return v.Workers
	}
	return 1
}

func (v *Verifier) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// Verify checks every spec against the model over one shared
// exploration. Reports come back in spec order. A spec that does not
// apply to the model gets an ErrInvalidSpec report; hitting the state
// bound makes every remaining report ErrBoundExceeded. The returned
// error is reserved for model-level failures that invalidate the whole
// call, such as a blocked synchronizing action under a no-deferral
// policy.
func (v *Verifier) Verify(m *compose.Model, specs []property.Spec) ([]Report, error) {
	if m == nil {
		return nil, fmt.Errorf("verify: nil model")
	}

	reports := make([]Report, len(specs))
	anyValid := false
	for i, spec := range specs {
		reports[i].Spec = spec
		if err := spec.Validate(m); err != nil {
			reports[i].Err = &Error{Kind: ErrInvalidSpec, Detail: err.Error()}
			continue
		}
		anyValid = true
	}
	if !anyValid {
		return reports, nil
	}

	log := v.logger()
	log.Debug("exploring composed state space",
		"protocols", m.Size(),
		"state_bound", m.StateBound(),
		"max_states", v.maxStates(),
		"workers", v.workers())

	exp, err := v.explore(m)
	if err != nil {
		return nil, err
	}
	if exp.bounded {
		log.Warn("state bound exceeded, results inconclusive",
			"max_states", v.maxStates(),
			"state_bound", m.StateBound())
		detail := fmt.Sprintf("exploration exceeded the %d state bound before exhausting the reachable set", v.maxStates())
		for i := range reports {
			if reports[i].Err == nil {
				reports[i].Err = &Error{Kind: ErrBoundExceeded, Detail: detail}
			}
		}
		return reports, nil
	}

	log.Debug("exploration complete",
		"states", exp.states,
		"edges", len(exp.edges),
		"deadlocks", len(exp.deadlocks))

	for i := range reports {
		if reports[i].Err != nil {
			continue
		}
		reports[i].Result = v.evaluate(m, reports[i].Spec, exp)
	}
	return reports, nil
}

// evaluate checks one validated spec against the exploration records.
func (v *Verifier) evaluate(m *compose.Model, spec property.Spec, exp *exploration) *Result {
	switch spec.Kind {
	case property.KindDeadlockFreedom:
		return evalDeadlock(m, spec, exp)
	case property.KindMonotonicRestriction:
		return evalMonotonic(m, spec, exp)
	case property.KindPriorityOrdering:
		return evalPriority(m, spec, exp)
	default:
		// Validate rejects unknown kinds before evaluation.
		panic(fmt.Sprintf("verify: unknown property kind %d", int(spec.Kind)))
	}
}

func evalDeadlock(m *compose.Model, spec property.Spec, exp *exploration) *Result {
	result := &Result{RecordsChecked: exp.states}
	for _, stuck := range exp.deadlocks {
		result.Violations = append(result.Violations,
			property.DeadlockViolation(spec, m.StateNames(stuck.state), stuck.path))
	}
	result.Holds = len(result.Violations) == 0
	return result
}

func evalMonotonic(m *compose.Model, spec property.Spec, exp *exploration) *Result {
	result := &Result{RecordsChecked: len(exp.edges)}
	for _, edge := range exp.edges {
		move := edge.move
		for _, p := range move.Participants {
			proto := m.Protocol(p)
			before, ok := proto.State(move.From.Component(p)).Meta[spec.Field]
			if !ok {
				continue
			}
			after := proto.State(move.To.Component(p)).Meta[spec.Field]

			offending := false
			switch spec.Direction {
			case property.NonIncreasing:
				offending = after > before
			case property.NonDecreasing:
				offending = after < before
			}
			if !offending {
				continue
			}

			path := append(append([]string(nil), edge.path...), move.Action)
			result.Violations = append(result.Violations, property.MonotonicViolation(
				spec, m.StateNames(move.To), path, move.Action, proto.Name(), before, after))
		}
	}
	result.Holds = len(result.Violations) == 0
	return result
}

func evalPriority(m *compose.Model, spec property.Spec, exp *exploration) *Result {
	rank := make(map[string]int, len(spec.Priority))
	for i, name := range spec.Priority {
		rank[name] = i
	}
	// moveRank is the best (lowest) rank among a move's participants
	// under the spec's order, paired with the protocol holding it.
	moveRank := func(move compose.Move) (int, string) {
		best := len(spec.Priority)
		bestName := ""
		for _, p := range move.Participants {
			name := m.Protocol(p).Name()
			if r, ok := rank[name]; ok && r < best {
				best, bestName = r, name
			}
		}
		return best, bestName
	}

	result := &Result{}
	for _, record := range exp.decisions {
		decision := record.decision
		if !decision.Raced || decision.Selected == nil {
			continue
		}
		result.RecordsChecked++

		selectedRank, selectedName := moveRank(*decision.Selected)
		bestRank, bestName := selectedRank, selectedName
		for _, candidate := range decision.Candidates {
			if r, name := moveRank(candidate); r < bestRank {
				bestRank, bestName = r, name
			}
		}
		if bestRank >= selectedRank {
			continue
		}
		result.Violations = append(result.Violations, property.PriorityViolation(
			spec, m.StateNames(decision.State), record.path,
			decision.Selected.Action, selectedName, bestName))
	}
	result.Holds = len(result.Violations) == 0
	return result
}
