// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"sort"
)

// State is one state of a protocol. Immutable once the protocol is
// constructed.
type State struct {
	// Name uniquely identifies the state within its protocol.
	Name string `json:"name"`

	// Terminal marks a valid end state. A composed state is globally
	// terminal only when every component state is terminal.
	Terminal bool `json:"terminal,omitempty"`

	// Meta holds the state's metadata fields. Every state of a
	// protocol declares the same field set.
	Meta Metadata `json:"metadata,omitempty"`
}

// Transition is a directed edge in the state arena. From and To are
// arena indices, resolved from state names at construction.
type Transition struct {
	// From is the arena index of the source state.
	From int

	// To is the arena index of the target state.
	To int

	// Action is the label that triggers the transition. Labels shared
	// across protocols synchronize during composition.
	Action string

	// Guard restricts when the transition is eligible. The zero
	// guard is unconditional.
	Guard Guard

	// Effect derives the target's metadata from the source's. It must
	// agree with the target state's declared metadata.
	Effect Effect
}

// Definition is the buildable, serializable form of a protocol.
// Scenario builders construct Definitions in code; the scenario
// package also parses them from JSONC files.
type Definition struct {
	// Name is a short identifier for the protocol ("trust",
	// "security", "budget").
	Name string `json:"name"`

	// Initial is the name of the start state.
	Initial string `json:"initial"`

	// States declares the state arena, in order.
	States []State `json:"states"`

	// Transitions declares the edges, by state name.
	Transitions []TransitionDef `json:"transitions"`

	// Alphabet optionally declares action labels beyond those
	// appearing on transitions. A protocol that declares an action
	// without any transition for it vetoes that action wherever it
	// would synchronize — this is how a restrictive protocol blocks
	// actions it never performs itself.
	Alphabet []string `json:"alphabet,omitempty"`
}

// TransitionDef is the name-based form of a transition used in
// definitions.
type TransitionDef struct {
	// From is the source state name.
	From string `json:"from"`

	// To is the target state name.
	To string `json:"to"`

	// Action is the transition label.
	Action string `json:"action"`

	// Guard restricts eligibility; nil means unconditional.
	Guard *Guard `json:"guard,omitempty"`

	// Effect derives the target metadata; empty means the target's
	// declared metadata is adopted unchanged.
	Effect Effect `json:"effect,omitempty"`
}

// ModelError reports a malformed protocol definition. All ModelErrors
// surface at construction time; a constructed Protocol never fails.
type ModelError struct {
	// Protocol is the name from the offending definition.
	Protocol string

	// Detail describes the structural defect.
	Detail string
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("protocol %q: %s", e.Protocol, e.Detail)
}

func modelErrorf(name, format string, args ...any) *ModelError {
	return &ModelError{Protocol: name, Detail: fmt.Sprintf(format, args...)}
}

// Protocol is a validated, immutable finite state machine. Safe for
// concurrent read access; the composer and verifier never mutate it.
type Protocol struct {
	name        string
	states      []State
	initial     int
	transitions []Transition

	// outgoing[state] lists transition indices sourced at state,
	// sorted by action label then declaration order.
	outgoing [][]int

	// alphabet is the sorted union of transition labels and extra
	// declared actions.
	alphabet []string
}

// New validates a definition and builds a Protocol. It rejects:
// empty or duplicate state names, an undeclared initial state,
// transitions referencing undeclared states, states with differing
// metadata field sets, effects that do not reproduce the target's
// declared metadata, and overlapping guards — two transitions on the
// same (source, action) whose guards could be satisfied by the same
// evaluation view. Nondeterminism is a model-construction error, not
// a runtime resolution policy.
func New(def Definition) (*Protocol, error) {
	if def.Name == "" {
		return nil, modelErrorf("", "definition has no name")
	}
	if len(def.States) == 0 {
		return nil, modelErrorf(def.Name, "definition has no states")
	}

	indexByName := make(map[string]int, len(def.States))
	for i, state := range def.States {
		if state.Name == "" {
			return nil, modelErrorf(def.Name, "state %d has no name", i)
		}
		if _, dup := indexByName[state.Name]; dup {
			return nil, modelErrorf(def.Name, "duplicate state %q", state.Name)
		}
		indexByName[state.Name] = i
	}

	initial, ok := indexByName[def.Initial]
	if !ok {
		return nil, modelErrorf(def.Name, "initial state %q is not declared", def.Initial)
	}

	// Every state must declare the same metadata field set so that
	// field selectors in property specs are meaningful at every
	// point of every path.
	fields := def.States[0].Meta.Fields()
	for _, state := range def.States[1:] {
		stateFields := state.Meta.Fields()
		if len(stateFields) != len(fields) {
			return nil, modelErrorf(def.Name,
				"state %q declares metadata fields %v, state %q declares %v",
				def.States[0].Name, fields, state.Name, stateFields)
		}
		for i := range fields {
			if stateFields[i] != fields[i] {
				return nil, modelErrorf(def.Name,
					"state %q declares metadata fields %v, state %q declares %v",
					def.States[0].Name, fields, state.Name, stateFields)
			}
		}
	}

	p := &Protocol{
		name:     def.Name,
		states:   make([]State, len(def.States)),
		initial:  initial,
		outgoing: make([][]int, len(def.States)),
	}
	for i, state := range def.States {
		p.states[i] = State{Name: state.Name, Terminal: state.Terminal, Meta: state.Meta.Clone()}
	}

	for i, td := range def.Transitions {
		from, ok := indexByName[td.From]
		if !ok {
			return nil, modelErrorf(def.Name,
				"transition %d references undeclared source state %q", i, td.From)
		}
		to, ok := indexByName[td.To]
		if !ok {
			return nil, modelErrorf(def.Name,
				"transition %d references undeclared target state %q", i, td.To)
		}
		if td.Action == "" {
			return nil, modelErrorf(def.Name, "transition %d has no action", i)
		}

		t := Transition{From: from, To: to, Action: td.Action, Effect: td.Effect}
		if td.Guard != nil {
			t.Guard = *td.Guard
		}

		// Effect consistency: applying the effect to the source's
		// declared metadata must reproduce the target's declared
		// metadata. Without an effect the target metadata is adopted
		// as declared, so there is nothing to check.
		if len(t.Effect) > 0 {
			produced := t.Effect.Apply(p.states[from].Meta)
			if !produced.Equal(p.states[to].Meta) {
				return nil, modelErrorf(def.Name,
					"transition %d (%s --%s--> %s): effect produces %s, target declares %s",
					i, td.From, td.Action, td.To, produced, p.states[to].Meta)
			}
		}

		p.transitions = append(p.transitions, t)
		p.outgoing[from] = append(p.outgoing[from], len(p.transitions)-1)
	}

	// Fixed enumeration order: by action label, then declaration
	// order. Keeps Step and successor enumeration reproducible.
	for _, indices := range p.outgoing {
		sort.SliceStable(indices, func(a, b int) bool {
			return p.transitions[indices[a]].Action < p.transitions[indices[b]].Action
		})
	}

	// Guard overlap: within one (source, action) group, at most one
	// guard may be satisfiable for any evaluation view.
	for state, indices := range p.outgoing {
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				a, b := p.transitions[indices[i]], p.transitions[indices[j]]
				if a.Action != b.Action {
					continue
				}
				if a.Guard.Overlaps(b.Guard) {
					return nil, modelErrorf(def.Name,
						"state %q action %q: guards %s and %s can be simultaneously satisfied",
						p.states[state].Name, a.Action, a.Guard, b.Guard)
				}
			}
		}
	}

	alphabet := make(map[string]bool)
	for _, t := range p.transitions {
		alphabet[t.Action] = true
	}
	for _, action := range def.Alphabet {
		if action == "" {
			return nil, modelErrorf(def.Name, "declared alphabet contains an empty action")
		}
		alphabet[action] = true
	}
	p.alphabet = make([]string, 0, len(alphabet))
	for action := range alphabet {
		p.alphabet = append(p.alphabet, action)
	}
	sort.Strings(p.alphabet)

	return p, nil
}

// Name returns the protocol's identifier.
func (p *Protocol) Name() string { return p.name }

// StateCount returns the size of the state arena.
func (p *Protocol) StateCount() int { return len(p.states) }

// State returns the state at an arena index. The returned value
// shares the protocol's metadata map; callers must not modify it.
func (p *Protocol) State(index int) State { return p.states[index] }

// Initial returns the arena index of the start state.
func (p *Protocol) Initial() int { return p.initial }

// Transitions returns a copy of the transition arena in declaration
// order. Used for canonical model encodings and diagnostics.
func (p *Protocol) Transitions() []Transition {
	transitions := make([]Transition, len(p.transitions))
	copy(transitions, p.transitions)
	return transitions
}

// Alphabet returns the sorted action labels this protocol declares,
// including extra alphabet declarations without transitions.
func (p *Protocol) Alphabet() []string { return p.alphabet }

// Declares reports whether action is in the protocol's alphabet.
func (p *Protocol) Declares(action string) bool {
	i := sort.SearchStrings(p.alphabet, action)
	return i < len(p.alphabet) && p.alphabet[i] == action
}

// ReachableActions returns the sorted distinct action labels with at
// least one transition sourced at the given state. The verifier uses
// this to enumerate successors without per-protocol knowledge.
func (p *Protocol) ReachableActions(state int) []string {
	if state < 0 || state >= len(p.states) {
		return nil
	}
	var actions []string
	var last string
	for _, ti := range p.outgoing[state] {
		action := p.transitions[ti].Action
		if action != last || len(actions) == 0 {
			actions = append(actions, action)
			last = action
		}
	}
	return actions
}
