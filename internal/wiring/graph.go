// Package wiring builds the data-flow graph implied by a resolved
// tree's wiring and checks it for cycles (spec.md §4.6). Unlike the
// runtime traversal this package's teacher ancestor performed, this
// graph is built once, checked once, and discarded — nothing here
// executes anything.
package wiring

import (
	"sort"
	"strings"

	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

// Graph is the producer/consumer graph extracted from a resolved IR:
// nodes keyed by stack_path, edges running producer -> consumer.
//
// History/Prev references are deliberately excluded from edges: they
// name the same static producer a loop or iterate body's *own* forward
// step already depends on, just read back from a prior iteration, so
// treating them as ordinary same-execution edges would report every
// generate_team-style feedback loop as a CircularDependency. They
// still count toward consumed, so a node read only via "@history"/
// "@prev" is not reported as an orphan.
type Graph struct {
	nodes    map[string]*ir.Node
	edges    map[string][]string
	consumed map[string]bool
}

// Build walks root, which must already be resolved (internal/resolve
// has rewritten every internal input to "Name#producer_path"), and
// constructs the graph.
func Build(root *ir.Node) *Graph {
	g := &Graph{nodes: map[string]*ir.Node{}, edges: map[string][]string{}, consumed: map[string]bool{}}
	root.Walk(func(n *ir.Node) {
		g.nodes[n.StackPath] = n
	})
	root.Walk(func(n *ir.Node) {
		for _, in := range n.Wiring.Inputs {
			producerPath, ok := producerPathOf(in)
			if !ok {
				continue // symbolic ($ dynamic var) or external Project Document reference, no internal edge
			}
			g.edges[producerPath] = append(g.edges[producerPath], n.StackPath)
			g.consumed[producerPath] = true
		}
		for _, refs := range n.Wiring.History {
			for _, in := range refs {
				if producerPath, ok := producerPathOf(in); ok {
					g.consumed[producerPath] = true
				}
			}
		}
		for _, in := range n.Wiring.Prev {
			if producerPath, ok := producerPathOf(in); ok {
				g.consumed[producerPath] = true
			}
		}
	})
	return g
}

func producerPathOf(input string) (string, bool) {
	hashIdx := strings.IndexByte(input, '#')
	if hashIdx < 0 {
		return "", false
	}
	return input[hashIdx+1:], true
}

type color int

const (
	white color = iota
	gray
	black
)

// Check runs a three-color depth-first search over g. A back-edge
// (an edge into a gray node) means the data-flow graph has a cycle;
// Check reports it as CircularDependency with the full cycle path.
func (g *Graph) Check() *compileerr.CompileError {
	colors := make(map[string]color, len(g.nodes))
	var stack []string

	var visit func(path string) *compileerr.CompileError
	visit = func(path string) *compileerr.CompileError {
		colors[path] = gray
		stack = append(stack, path)
		for _, next := range g.edges[path] {
			switch colors[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				cycle := append(append([]string{}, stack...), next)
				return compileerr.New(compileerr.CircularDependency, path, "cycle: %s", strings.Join(cycle, " -> "))
			}
		}
		stack = stack[:len(stack)-1]
		colors[path] = black
		return nil
	}

	// Sorted traversal order keeps which node reports a cycle
	// deterministic across runs (invariant 1).
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if colors[p] == white {
			if err := visit(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReconfirmReferences re-checks that every internal input resolved by
// internal/resolve still names a real node in g. This should never
// fire in a correct compiler; it exists as a defense against a
// resolver bug reaching the wiring stage undetected (spec.md §4.6).
func (g *Graph) ReconfirmReferences() *compileerr.CompileError {
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		n := g.nodes[path]
		for _, in := range n.Wiring.Inputs {
			producerPath, ok := producerPathOf(in)
			if !ok {
				continue
			}
			if _, exists := g.nodes[producerPath]; !exists {
				return compileerr.New(compileerr.UndefinedReference, path, "resolved input %q references missing node %q", in, producerPath)
			}
		}
		for name, refs := range n.Wiring.History {
			for _, in := range refs {
				producerPath, ok := producerPathOf(in)
				if ok {
					if _, exists := g.nodes[producerPath]; !exists {
						return compileerr.New(compileerr.UndefinedReference, path, "resolved @history input %q (%s) references missing node %q", name, in, producerPath)
					}
				}
			}
		}
		for name, in := range n.Wiring.Prev {
			producerPath, ok := producerPathOf(in)
			if ok {
				if _, exists := g.nodes[producerPath]; !exists {
					return compileerr.New(compileerr.UndefinedReference, path, "resolved @prev input %q (%s) references missing node %q", name, in, producerPath)
				}
			}
		}
	}
	return nil
}

// Orphans returns the stack paths of nodes that declare an output no
// node in the tree consumes. Not an error: the IR may have terminal
// outputs meant for an external consumer (spec.md §4.6).
func (g *Graph) Orphans() []string {
	var out []string
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		n := g.nodes[path]
		if n.Wiring.Output == "" {
			continue
		}
		if !g.consumed[path] {
			out = append(out, path)
		}
	}
	return out
}
