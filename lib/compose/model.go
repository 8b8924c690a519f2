// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/protocheck-foundation/protocheck/lib/protocol"
)

// Policy configures composition: the conflict-resolution priority and
// the deferral behavior for blocked synchronizing proposals.
type Policy struct {
	// Priority is a total order over protocol names, highest
	// authority first. Empty means declaration order. When
	// non-empty it must be an exact permutation of the composed
	// protocol names.
	Priority []string

	// DisableDeferral makes a jointly proposed but blocked
	// synchronizing action a hard error instead of a deferred
	// proposal. The default (deferral) retries the proposal on a
	// later step.
	DisableDeferral bool
}

// Error reports an infeasible or ill-specified composition.
type Error struct {
	// Detail describes the defect.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string { return "compose: " + e.Detail }

func errorf(format string, args ...any) *Error {
	return &Error{Detail: fmt.Sprintf(format, args...)}
}

// CompState is a joint state of the composed model: one arena index
// per component protocol, in composition order. Two composed states
// are equal exactly when all component indices are equal — derived
// annotations like the most recent actor are trace data, not
// identity, so the reachable state count stays bounded by the product
// of the component state counts.
type CompState struct {
	components []int
}

// Component returns the arena index of protocol i's state.
func (cs CompState) Component(i int) int { return cs.components[i] }

// Len returns the number of component protocols.
func (cs CompState) Len() int { return len(cs.components) }

// Key returns the canonical identity string used as the visited-set
// key during exploration.
func (cs CompState) Key() string {
	var b strings.Builder
	for i, c := range cs.components {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// Equal reports component-wise equality.
func (cs CompState) Equal(other CompState) bool {
	if len(cs.components) != len(other.components) {
		return false
	}
	for i, c := range cs.components {
		if other.components[i] != c {
			return false
		}
	}
	return true
}

// with returns a copy of cs with the given components replaced.
func (cs CompState) with(replacements map[int]int) CompState {
	components := make([]int, len(cs.components))
	copy(components, cs.components)
	for i, c := range replacements {
		components[i] = c
	}
	return CompState{components: components}
}

// Model is an immutable composed protocol model. Safe for concurrent
// use; all methods are read-only.
type Model struct {
	protocols []*protocol.Protocol
	names     []string

	// priority is the resolved total order, highest first; rank maps
	// a protocol name to its position in it.
	priority []string
	rank     map[string]int

	// actions is the sorted union alphabet; participants maps each
	// action to the sorted indices of protocols declaring it.
	actions      []string
	participants map[string][]int

	policy Policy
}

// Compose builds a composed model from an ordered list of protocols
// and a policy. Pure: neither input is retained mutably nor modified.
// Fails when the list is empty, protocol names collide, or the policy
// priority is not a permutation of the protocol names.
func Compose(protocols []*protocol.Protocol, policy Policy) (*Model, error) {
	if len(protocols) == 0 {
		return nil, errorf("at least one protocol is required")
	}

	m := &Model{
		protocols:    make([]*protocol.Protocol, len(protocols)),
		names:        make([]string, len(protocols)),
		participants: make(map[string][]int),
		policy:       policy,
	}
	copy(m.protocols, protocols)

	seen := make(map[string]bool, len(protocols))
	for i, p := range protocols {
		name := p.Name()
		if seen[name] {
			return nil, errorf("duplicate protocol name %q", name)
		}
		seen[name] = true
		m.names[i] = name

		for _, action := range p.Alphabet() {
			m.participants[action] = append(m.participants[action], i)
		}
	}

	m.actions = make([]string, 0, len(m.participants))
	for action := range m.participants {
		m.actions = append(m.actions, action)
	}
	sort.Strings(m.actions)

	priority, err := resolvePriority(m.names, policy.Priority)
	if err != nil {
		return nil, err
	}
	m.priority = priority
	m.rank = make(map[string]int, len(priority))
	for i, name := range priority {
		m.rank[name] = i
	}

	return m, nil
}

// resolvePriority validates that requested is a permutation of names,
// or falls back to declaration order when empty.
func resolvePriority(names, requested []string) ([]string, error) {
	if len(requested) == 0 {
		order := make([]string, len(names))
		copy(order, names)
		return order, nil
	}

	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}

	seen := make(map[string]bool, len(requested))
	for _, name := range requested {
		if !known[name] {
			return nil, errorf("priority order names unknown protocol %q", name)
		}
		if seen[name] {
			return nil, errorf("priority order names protocol %q twice", name)
		}
		seen[name] = true
	}
	if len(requested) != len(names) {
		for _, name := range names {
			if !seen[name] {
				return nil, errorf("priority order omits protocol %q", name)
			}
		}
	}

	order := make([]string, len(requested))
	copy(order, requested)
	return order, nil
}

// Size returns the number of component protocols.
func (m *Model) Size() int { return len(m.protocols) }

// Names returns the protocol names in composition order.
func (m *Model) Names() []string {
	names := make([]string, len(m.names))
	copy(names, m.names)
	return names
}

// Protocol returns component i.
func (m *Model) Protocol(i int) *protocol.Protocol { return m.protocols[i] }

// Priority returns the resolved priority order, highest first.
func (m *Model) Priority() []string {
	order := make([]string, len(m.priority))
	copy(order, m.priority)
	return order
}

// Rank returns the priority rank of a protocol name (0 is highest).
// The second result is false for unknown names.
func (m *Model) Rank(name string) (int, bool) {
	rank, ok := m.rank[name]
	return rank, ok
}

// Actions returns the sorted union alphabet.
func (m *Model) Actions() []string {
	actions := make([]string, len(m.actions))
	copy(actions, m.actions)
	return actions
}

// Synchronizing returns the sorted actions declared by two or more
// protocols.
func (m *Model) Synchronizing() []string {
	var sync []string
	for _, action := range m.actions {
		if len(m.participants[action]) > 1 {
			sync = append(sync, action)
		}
	}
	return sync
}

// Owner returns the index of the single protocol declaring a private
// action. The second result is false for synchronizing or unknown
// actions.
func (m *Model) Owner(action string) (int, bool) {
	decls := m.participants[action]
	if len(decls) != 1 {
		return 0, false
	}
	return decls[0], true
}

// Participants returns the sorted indices of protocols declaring the
// action. Nil for unknown actions.
func (m *Model) Participants(action string) []int {
	decls := m.participants[action]
	if decls == nil {
		return nil
	}
	out := make([]int, len(decls))
	copy(out, decls)
	return out
}

// DeclaresField reports whether any component protocol's states carry
// the metadata field. Property constructors use this to validate
// field selectors.
func (m *Model) DeclaresField(field string) bool {
	for _, p := range m.protocols {
		if _, ok := p.State(p.Initial()).Meta[field]; ok {
			return true
		}
	}
	return false
}

// Initial returns the joint initial state.
func (m *Model) Initial() CompState {
	components := make([]int, len(m.protocols))
	for i, p := range m.protocols {
		components[i] = p.Initial()
	}
	return CompState{components: components}
}

// GloballyTerminal reports whether every component state is terminal.
func (m *Model) GloballyTerminal(cs CompState) bool {
	for i, p := range m.protocols {
		if !p.State(cs.components[i]).Terminal {
			return false
		}
	}
	return true
}

// StateNames maps each protocol name to its component state name in
// cs. Used for witness records.
func (m *Model) StateNames(cs CompState) map[string]string {
	names := make(map[string]string, len(m.protocols))
	for i, p := range m.protocols {
		names[p.Name()] = p.State(cs.components[i]).Name
	}
	return names
}

// StateBound returns the product of the component state counts — the
// hard ceiling on the reachable composed state count.
func (m *Model) StateBound() int {
	bound := 1
	for _, p := range m.protocols {
		bound *= p.StateCount()
	}
	return bound
}
