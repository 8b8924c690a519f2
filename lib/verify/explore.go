// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"golang.org/x/sync/errgroup"

	"github.com/protocheck-foundation/protocheck/lib/compose"
)

// node is one frontier entry: a composed state and the minimal action
// path that reached it.
type node struct {
	state compose.CompState
	path  []string
}

// edgeRecord is one traversed move together with the minimal path to
// its source state.
type edgeRecord struct {
	move compose.Move
	path []string
}

// decisionRecord is the conflict resolution observed at one expanded
// state: all enabled actions proposed at once.
type decisionRecord struct {
	decision compose.Decision
	path     []string
}

// exploration is the outcome of one bounded breadth-first pass.
type exploration struct {
	// states is the number of distinct composed states visited.
	states int

	// deadlocks are the non-globally-terminal states with no enabled
	// move, with their minimal paths, in discovery order.
	deadlocks []node

	// edges are all traversed moves in discovery order.
	edges []edgeRecord

	// decisions are the conflict resolutions at every expanded state
	// with at least one enabled move, in discovery order.
	decisions []decisionRecord

	// bounded is true when the pass was aborted at the state bound.
	bounded bool
}

// expansion is the pure, per-state part of one BFS step: everything a
// worker can compute without touching the visited set.
type expansion struct {
	moves    []compose.Move
	decision compose.Decision
	deadlock bool
	err      error
}

// expand computes the moves, conflict decision, and deadlock status of
// one composed state. Read-only on the model, safe to run in parallel.
func expand(m *compose.Model, cs compose.CompState) expansion {
	moves := m.Successors(cs)
	if len(moves) == 0 {
		return expansion{deadlock: !m.GloballyTerminal(cs)}
	}

	actions := make([]string, len(moves))
	for i, move := range moves {
		actions[i] = move.Action
	}
	decision, err := m.Decide(cs, actions)
	return expansion{moves: moves, decision: decision, err: err}
}

// explore runs the bounded breadth-first pass. The frontier is
// expanded level by level; with more than one worker the per-state
// expansion runs in parallel, but the results of each level are merged
// in frontier order, so discovery order, recorded paths, and the
// visited set are identical to the sequential run.
func (v *Verifier) explore(m *compose.Model) (*exploration, error) {
	limit := v.maxStates()
	workers := v.workers()

	out := &exploration{}
	visited := map[string]bool{m.Initial().Key(): true}
	frontier := []node{{state: m.Initial()}}
	out.states = 1

	for len(frontier) > 0 {
		expansions := make([]expansion, len(frontier))
		if workers > 1 && len(frontier) > 1 {
			var group errgroup.Group
			group.SetLimit(workers)
			for i := range frontier {
				i := i
				group.Go(func() error {
					expansions[i] = expand(m, frontier[i].state)
					return nil
				})
			}
			group.Wait()
		} else {
			for i := range frontier {
				expansions[i] = expand(m, frontier[i].state)
			}
		}

		var next []node
		for i, exp := range expansions {
			if exp.err != nil {
				return nil, exp.err
			}
			current := frontier[i]

			if exp.deadlock {
				out.deadlocks = append(out.deadlocks, current)
			}
			if len(exp.moves) > 0 {
				out.decisions = append(out.decisions, decisionRecord{
					decision: exp.decision,
					path:     current.path,
				})
			}

			for _, move := range exp.moves {
				out.edges = append(out.edges, edgeRecord{move: move, path: current.path})

				key := move.To.Key()
				if visited[key] {
					continue
				}
				if out.states >= limit {
					out.bounded = true
					return out, nil
				}
				visited[key] = true
				out.states++

				path := make([]string, len(current.path)+1)
				copy(path, current.path)
				path[len(current.path)] = move.Action
				next = append(next, node{state: move.To, path: path})
			}
		}
		frontier = next
	}

	return out, nil
}
