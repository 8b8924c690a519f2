// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"fmt"
	"sort"
)

// Move is one enabled joint or private transition of the composed
// model.
type Move struct {
	// Action is the label that fires.
	Action string

	// Sync is true for synchronizing moves (two or more declaring
	// protocols step together).
	Sync bool

	// Participants are the indices of the protocols that step, in
	// composition order. A private move has exactly one participant.
	Participants []int

	// From and To are the composed states before and after the move.
	From, To CompState
}

// Actor returns the index of the highest-priority participant — for
// a private move, its owner. Trace annotations record this as the
// most recent actor; it is derived data, never part of state
// identity.
func (mv Move) Actor(m *Model) int {
	best := mv.Participants[0]
	bestRank := len(m.priority)
	for _, p := range mv.Participants {
		if rank, ok := m.rank[m.names[p]]; ok && rank < bestRank {
			best, bestRank = p, rank
		}
	}
	return best
}

// Successors enumerates every enabled move from cs, in lexicographic
// action order. Each action yields at most one move: a synchronizing
// action fires only when every declaring protocol accepts it in its
// current component state; a private action fires when its owner
// accepts. Guard determinism within each protocol makes the whole
// enumeration deterministic, which keeps counterexample traces stable
// across runs.
func (m *Model) Successors(cs CompState) []Move {
	var moves []Move
	for _, action := range m.actions {
		if move, enabled := m.moveFor(cs, action); enabled {
			moves = append(moves, move)
		}
	}
	return moves
}

// Enabled returns the sorted actions with an enabled move from cs.
func (m *Model) Enabled(cs CompState) []string {
	var actions []string
	for _, action := range m.actions {
		if _, enabled := m.moveFor(cs, action); enabled {
			actions = append(actions, action)
		}
	}
	return actions
}

// moveFor evaluates one action against cs and returns the enabled
// move, if any.
func (m *Model) moveFor(cs CompState, action string) (Move, bool) {
	decls := m.participants[action]
	if len(decls) == 0 {
		return Move{}, false
	}

	replacements := make(map[int]int, len(decls))
	for _, p := range decls {
		decision := m.protocols[p].Step(cs.components[p], action, nil)
		if !decision.Accepted {
			return Move{}, false
		}
		replacements[p] = decision.Next
	}

	participants := make([]int, len(decls))
	copy(participants, decls)
	return Move{
		Action:       action,
		Sync:         len(decls) > 1,
		Participants: participants,
		From:         cs,
		To:           cs.with(replacements),
	}, true
}

// Proposal records the fate of one proposed action that did not fire.
type Proposal struct {
	// Action is the proposed label.
	Action string

	// Protocol is the component most relevant to the outcome: the
	// owner of a losing private proposal, or the first protocol
	// blocking a synchronizing one. Empty when no protocol declares
	// the action.
	Protocol string

	// Reason is a human-readable explanation.
	Reason string
}

// Decision resolves one environment stimulus — a set of simultaneously
// proposed actions — against a composed state.
type Decision struct {
	// State is the composed state the stimulus was applied to.
	State CompState

	// Candidates are all enabled moves among the proposed actions,
	// in resolution order: highest-priority actor first, then
	// lexicographic action. The first candidate is the selection.
	Candidates []Move

	// Selected is the move the composed model takes, nil when no
	// proposed action is enabled.
	Selected *Move

	// Raced is true when the stimulus enabled moves by different
	// participant sets, so the priority order decided the selection.
	// The priority-ordering property audits exactly these decisions.
	Raced bool

	// Deferred are proposals that could not fire this step but are
	// retried later: blocked synchronizing actions and private
	// proposals that lost a race. Never silently dropped.
	Deferred []Proposal

	// Rejected are proposals no protocol can ever act on from this
	// state (undeclared action, no transition, guard failure).
	Rejected []Proposal
}

// Decide resolves the proposed actions against cs under the model's
// policy. Proposals are deduplicated and considered in sorted order.
// When several proposals are enabled at once, the highest-priority
// actor's move is selected and the rest are deferred. A blocked
// synchronizing proposal (some declaring protocols accept, the rest
// cannot) defers by default; with deferral disabled it is a
// composition error.
func (m *Model) Decide(cs CompState, proposed []string) (Decision, error) {
	actions := dedupSorted(proposed)
	decision := Decision{State: cs}

	for _, action := range actions {
		decls := m.participants[action]
		if len(decls) == 0 {
			decision.Rejected = append(decision.Rejected, Proposal{
				Action: action,
				Reason: "no protocol declares this action",
			})
			continue
		}

		move, enabled := m.moveFor(cs, action)
		if enabled {
			decision.Candidates = append(decision.Candidates, move)
			continue
		}

		if len(decls) > 1 {
			// Synchronizing action with at least one declaring
			// protocol unable to take it. When any participant has a
			// transition for it, the proposal is deferred (or, with
			// deferral disabled, infeasible); when no participant
			// does, the action is plainly rejected here.
			blocking, anyAccepts := m.syncBlocker(cs, action, decls)
			if !anyAccepts {
				decision.Rejected = append(decision.Rejected, Proposal{
					Action:   action,
					Protocol: blocking,
					Reason:   "no declaring protocol can take this action",
				})
				continue
			}
			if m.policy.DisableDeferral {
				return Decision{}, errorf(
					"synchronizing action %q proposed but blocked by protocol %q, and deferral is disabled",
					action, blocking)
			}
			decision.Deferred = append(decision.Deferred, Proposal{
				Action:   action,
				Protocol: blocking,
				Reason:   fmt.Sprintf("synchronizing action blocked by protocol %q; deferred for retry", blocking),
			})
			continue
		}

		owner := m.names[decls[0]]
		stepDecision := m.protocols[decls[0]].Step(cs.components[decls[0]], action, nil)
		decision.Rejected = append(decision.Rejected, Proposal{
			Action:   action,
			Protocol: owner,
			Reason:   stepDecision.Reason.String(),
		})
	}

	if len(decision.Candidates) == 0 {
		return decision, nil
	}

	// Resolution order: priority rank of the acting protocol, then
	// action label. The first candidate wins; the rest defer.
	sort.SliceStable(decision.Candidates, func(a, b int) bool {
		ra := m.candidateRank(decision.Candidates[a])
		rb := m.candidateRank(decision.Candidates[b])
		if ra != rb {
			return ra < rb
		}
		return decision.Candidates[a].Action < decision.Candidates[b].Action
	})

	decision.Selected = &decision.Candidates[0]
	for _, candidate := range decision.Candidates[1:] {
		if !equalParticipants(candidate.Participants, decision.Selected.Participants) {
			decision.Raced = true
			break
		}
	}
	winner := m.names[decision.Selected.Actor(m)]
	for _, loser := range decision.Candidates[1:] {
		decision.Deferred = append(decision.Deferred, Proposal{
			Action:   loser.Action,
			Protocol: m.names[loser.Actor(m)],
			Reason:   fmt.Sprintf("lost conflict to higher-priority protocol %q; deferred for retry", winner),
		})
	}
	return decision, nil
}

// candidateRank is the priority rank of the move's highest-priority
// participant.
func (m *Model) candidateRank(move Move) int {
	best := len(m.priority)
	for _, p := range move.Participants {
		if rank, ok := m.rank[m.names[p]]; ok && rank < best {
			best = rank
		}
	}
	return best
}

// syncBlocker returns the name of the first declaring protocol (in
// composition order) that cannot take the action from cs, and whether
// any declaring protocol accepts it.
func (m *Model) syncBlocker(cs CompState, action string, decls []int) (blocking string, anyAccepts bool) {
	for _, p := range decls {
		decision := m.protocols[p].Step(cs.components[p], action, nil)
		if decision.Accepted {
			anyAccepts = true
			continue
		}
		if blocking == "" {
			blocking = m.names[p]
		}
	}
	return blocking, anyAccepts
}

// equalParticipants reports element-wise equality of two sorted
// participant index lists.
func equalParticipants(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// dedupSorted returns the input sorted with duplicates removed,
// without modifying the input.
func dedupSorted(actions []string) []string {
	if len(actions) == 0 {
		return nil
	}
	sorted := make([]string, len(actions))
	copy(sorted, actions)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, action := range sorted[1:] {
		if action != out[len(out)-1] {
			out = append(out, action)
		}
	}
	return out
}
