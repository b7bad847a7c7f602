// Package resolve maps every logical input name in a desugared tree to
// its physical producer, or to an external Project Document reference,
// per the visibility rules in spec.md §4.5. It runs after
// internal/expand and before internal/wiring.
package resolve

import (
	"fmt"
	"strings"

	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

var dynamicVars = map[string]bool{
	"$LOOP": true, "$HISTORY": true, "$PREV": true,
	"$KEY": true, "$ITEM": true,
}

var loopScopedVars = map[string]bool{"$LOOP": true, "$HISTORY": true, "$PREV": true}
var iterateScopedVars = map[string]bool{"$KEY": true, "$ITEM": true}

// visEntry is one node made visible to some later point in the tree,
// tagged with the scope it became visible in. Ties among candidate
// producers are broken by preferring the entry with the largest scope
// (spec.md §4.5 step 3: "siblings beat ancestors").
type visEntry struct {
	node  *ir.Node
	scope int
}

type resolver struct {
	nextScope int
	report    *compileerr.Report
}

// Resolve rewrites every internal wiring.inputs entry in root to
// "Name#producer_stack_path", external Project Document references to
// their normalized "Name:ResourceID@Version" form, and validates every
// dynamic-variable and modifier usage. It mutates root in place and
// returns the batched violations, if any (spec.md §7 propagation
// policy: Resolve collects all errors before returning).
func Resolve(root *ir.Node) *compileerr.Report {
	r := &resolver{report: &compileerr.Report{}}
	r.resolveNode(root, nil, nil, nil)
	return r.report
}

func (r *resolver) newScope() int {
	r.nextScope++
	return r.nextScope
}

// resolveNode resolves n's own wiring, then descends into its
// children. loopVisible is the set of producers reachable by an
// "@history"/"@prev" modifier from anywhere in n's subtree: nil until
// a loop or iterate is entered, at which point it is set to that
// body's full producer set; a nested loop or iterate replaces it with
// its own body's set for its descendants (spec.md §4.5 line 136 — a modifier reaches across the whole
// recurring body, not just document-order-earlier siblings).
func (r *resolver) resolveNode(n *ir.Node, visible []visEntry, ancestorOps []ir.OpCode, loopVisible []visEntry) {
	r.resolveWiring(n, visible, ancestorOps, loopVisible)

	scope := r.newScope()
	childVisible := append(append([]visEntry{}, visible...), visEntry{n, scope})
	childAncestors := append(append([]ir.OpCode{}, ancestorOps...), n.OpCode)

	childLoopVisible := loopVisible
	if n.OpCode == ir.OpLoop || n.OpCode == ir.OpIterate {
		full := childVisible
		for _, c := range n.Children {
			full = appendSubtree(full, c, scope)
		}
		childLoopVisible = full
	}

	r.resolveChildren(n.OpCode, n.Children, childVisible, scope, childAncestors, childLoopVisible)
}

func (r *resolver) resolveChildren(parentOp ir.OpCode, children []*ir.Node, visible []visEntry, scope int, ancestorOps []ir.OpCode, loopVisible []visEntry) {
	if parentOp == ir.OpParallel {
		// Cousins are mutually invisible: every arm resolves against the
		// same base visibility, none sees another arm's output.
		for _, c := range children {
			r.resolveNode(c, visible, ancestorOps, loopVisible)
		}
		return
	}
	local := visible
	for _, c := range children {
		r.resolveNode(c, local, ancestorOps, loopVisible)
		local = appendSubtree(local, c, scope)
	}
}

func appendSubtree(visible []visEntry, n *ir.Node, scope int) []visEntry {
	out := append(visible, visEntry{n, scope})
	for _, c := range n.Children {
		out = appendSubtree(out, c, scope)
	}
	return out
}

// resolveWiring resolves every entry of n.Wiring.Inputs in place.
// Plain and external references stay in Inputs, rewritten to satisfy
// invariant 4; a modifier-tagged reference is pulled out of Inputs
// entirely and recorded in n.Wiring.History or n.Wiring.Prev, since
// neither invariant-4 shape has room for a modifier suffix.
func (r *resolver) resolveWiring(n *ir.Node, visible []visEntry, ancestorOps []ir.OpCode, loopVisible []visEntry) {
	plain := make([]string, 0, len(n.Wiring.Inputs))
	for _, raw := range n.Wiring.Inputs {
		if strings.HasPrefix(raw, "$") {
			r.checkDynamicVar(n, raw, ancestorOps)
			plain = append(plain, raw)
			continue
		}

		name, mod := ir.SplitModifier(raw)
		if mod != ir.ModifierNone && !inLoopOrIterate(ancestorOps) {
			r.report.Add(compileerr.New(compileerr.InvalidModifier, n.StackPath, "modifier on %q is only valid inside loop/iterate", raw))
			plain = append(plain, raw)
			continue
		}

		search := visible
		if mod != ir.ModifierNone {
			search = loopVisible
		}
		resolved, err := r.resolveName(name, search)
		if err != nil {
			err.Path = n.StackPath
			r.report.Add(err)
			plain = append(plain, raw)
			continue
		}

		switch mod {
		case ir.ModifierHistory:
			if n.Wiring.History == nil {
				n.Wiring.History = map[string][]string{}
			}
			n.Wiring.History[name] = append(n.Wiring.History[name], resolved)
		case ir.ModifierPrev:
			if n.Wiring.Prev == nil {
				n.Wiring.Prev = map[string]string{}
			}
			n.Wiring.Prev[name] = resolved
		default:
			plain = append(plain, resolved)
		}
	}
	n.Wiring.Inputs = plain
}

// resolveName resolves a bare (modifier-stripped) artifact name to its
// "Name#producer_path" or "Name:ResID@Version" form.
func (r *resolver) resolveName(name string, visible []visEntry) (string, *compileerr.CompileError) {
	if ir.ClassifyName(name) == ir.ClassProjectDocument {
		docName, resourceID, version, ok := ir.ProjectDocRef(name)
		if !ok {
			return "", compileerr.New(compileerr.UndefinedReference, "", "malformed project document reference %q", name)
		}
		return fmt.Sprintf("%s:%s@%s", docName, resourceID, version), nil
	}

	producer, err := r.findProducer(name, visible)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%s", name, producer.StackPath), nil
}

func (r *resolver) findProducer(name string, visible []visEntry) (*ir.Node, *compileerr.CompileError) {
	var matches []visEntry
	nearest := -1
	for _, v := range visible {
		if v.node.Wiring.Output != name {
			continue
		}
		if v.scope > nearest {
			nearest = v.scope
			matches = []visEntry{v}
		} else if v.scope == nearest {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return nil, compileerr.New(compileerr.UndefinedReference, "", "no visible producer of %q", name)
	case 1:
		return matches[0].node, nil
	default:
		for _, m := range matches {
			if m.node.OpCode == ir.OpScopeResolve {
				return m.node, nil
			}
		}
		return nil, compileerr.New(compileerr.AmbiguousProducer, "", "multiple visible producers of %q with no scope_resolve to mediate", name)
	}
}

func (r *resolver) checkDynamicVar(n *ir.Node, token string, ancestorOps []ir.OpCode) {
	if !dynamicVars[token] {
		r.report.Add(compileerr.New(compileerr.UnboundDynamicVariable, n.StackPath, "unknown dynamic variable %q", token))
		return
	}
	switch {
	case loopScopedVars[token] && !containsOp(ancestorOps, ir.OpLoop):
		r.report.Add(compileerr.New(compileerr.UnboundDynamicVariable, n.StackPath, "%s used outside a loop", token))
	case iterateScopedVars[token] && !containsOp(ancestorOps, ir.OpIterate):
		r.report.Add(compileerr.New(compileerr.UnboundDynamicVariable, n.StackPath, "%s used outside an iterate", token))
	}
}

func inLoopOrIterate(ancestorOps []ir.OpCode) bool {
	return containsOp(ancestorOps, ir.OpLoop) || containsOp(ancestorOps, ir.OpIterate)
}

func containsOp(ops []ir.OpCode, target ir.OpCode) bool {
	for _, op := range ops {
		if op == target {
			return true
		}
	}
	return false
}
