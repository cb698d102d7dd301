// Package workflow executes the assessment state machine: a fixed graph of
// nodes joined by static edges and router outcomes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// ErrInvalidGraph is returned when a graph fails validation at construction.
var ErrInvalidGraph = errors.New("invalid workflow graph")

// NodeFunc runs one node. It returns a superset of its input.
type NodeFunc func(ctx context.Context, s models.State) (models.State, error)

// Node is a vertex of the graph. Terminal nodes end the run and must carry
// a closing disposition.
type Node struct {
	Name        string
	Run         NodeFunc
	Terminal    bool
	Disposition models.ReportingStatus
}

// Router picks the outcome label that selects the next node.
type Router struct {
	Name  string
	Route func(models.State) string
}

// Graph is the static workflow definition.
type Graph struct {
	Entry string
	// Scoring names the node run ahead of a terminal node when the state
	// has not been scored yet. Empty disables the guard.
	Scoring     string
	Nodes       map[string]Node
	Edges       map[string]string
	Routers     map[string]Router
	Transitions map[string]map[string]string
}

// Validate checks that every node has exactly one way out, every outcome
// leads to a known node, terminals close the run and the graph is acyclic.
func (g Graph) Validate() error {
	if _, ok := g.Nodes[g.Entry]; !ok {
		return fmt.Errorf("%w: entry node %q not declared", ErrInvalidGraph, g.Entry)
	}
	if g.Scoring != "" {
		n, ok := g.Nodes[g.Scoring]
		if !ok || n.Terminal {
			return fmt.Errorf("%w: scoring node %q must be a declared non-terminal node", ErrInvalidGraph, g.Scoring)
		}
	}

	for _, name := range g.nodeNames() {
		n := g.Nodes[name]
		if n.Name != name {
			return fmt.Errorf("%w: node %q registered as %q", ErrInvalidGraph, n.Name, name)
		}
		if n.Run == nil {
			return fmt.Errorf("%w: node %q has no function", ErrInvalidGraph, name)
		}

		edge, hasEdge := g.Edges[name]
		router, hasRouter := g.Routers[name]

		if n.Terminal {
			if hasEdge || hasRouter {
				return fmt.Errorf("%w: terminal node %q has an outgoing transition", ErrInvalidGraph, name)
			}
			if !n.Disposition.IsClosing() {
				return fmt.Errorf("%w: terminal node %q: %w", ErrInvalidGraph, name, models.ErrInvalidDisposition)
			}
			continue
		}

		switch {
		case hasEdge && hasRouter:
			return fmt.Errorf("%w: node %q has both a static edge and a router", ErrInvalidGraph, name)
		case hasEdge:
			if _, ok := g.Nodes[edge]; !ok {
				return fmt.Errorf("%w: edge %s -> %q targets an unknown node", ErrInvalidGraph, name, edge)
			}
		case hasRouter:
			if router.Route == nil || router.Name == "" {
				return fmt.Errorf("%w: router after %q is incomplete", ErrInvalidGraph, name)
			}
			outcomes := g.Transitions[name]
			if len(outcomes) == 0 {
				return fmt.Errorf("%w: router after %q declares no outcomes", ErrInvalidGraph, name)
			}
			for outcome, target := range outcomes {
				if _, ok := g.Nodes[target]; !ok {
					return fmt.Errorf("%w: outcome %s:%s targets unknown node %q", ErrInvalidGraph, router.Name, outcome, target)
				}
			}
		default:
			return fmt.Errorf("%w: node %q has no way out", ErrInvalidGraph, name)
		}
	}

	for name := range g.Transitions {
		if _, ok := g.Routers[name]; !ok {
			return fmt.Errorf("%w: outcomes declared for %q without a router", ErrInvalidGraph, name)
		}
	}
	return g.checkAcyclic()
}

// successors lists every node reachable in one step from name.
func (g Graph) successors(name string) []string {
	if next, ok := g.Edges[name]; ok {
		return []string{next}
	}
	out := make([]string, 0, len(g.Transitions[name]))
	for _, target := range g.Transitions[name] {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

func (g Graph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(g.Nodes))

	var visit func(string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			return fmt.Errorf("%w: cycle through %q", ErrInvalidGraph, name)
		case done:
			return nil
		}
		marks[name] = visiting
		for _, next := range g.successors(name) {
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[name] = done
		return nil
	}

	for _, name := range g.nodeNames() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g Graph) nodeNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
