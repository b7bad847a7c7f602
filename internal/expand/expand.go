// Package expand rewrites sugar opcodes into primitive subtrees,
// merges briefing blocks, and assigns stack paths (spec.md §4.4). It
// runs after internal/syntax has accepted the tree and before
// internal/resolve looks for producers.
package expand

import (
	"fmt"

	"odlc/internal/ir"
)

// Expand desugars root and returns a tree containing only primitive
// opcodes, every node carrying a stack_path.
func Expand(root *ir.Node) (*ir.Node, error) {
	expanded, err := expandNode(root, briefingContext{})
	if err != nil {
		return nil, err
	}
	assignPaths(expanded, "root")
	if err := assertPrimitiveClosure(expanded); err != nil {
		return nil, err
	}
	return expanded, nil
}

func expandNode(n *ir.Node, ctx briefingContext) (*ir.Node, error) {
	switch n.OpCode {
	case ir.OpWorker, ir.OpDialogue, ir.OpApprover:
		clone := cloneLeaf(n)
		applyBriefing(clone, ctx, nil)
		return clone, nil
	case ir.OpSerial, ir.OpParallel, ir.OpLoop, ir.OpIterate:
		children, _, err := expandChildren(n.Children, ctx)
		if err != nil {
			return nil, err
		}
		clone := cloneLeaf(n)
		clone.Children = children
		return clone, nil
	case ir.OpApprovalGate:
		return expandApprovalGate(n, ctx)
	case ir.OpGenerateTeam:
		return expandGenerateTeam(n, ctx)
	case ir.OpEnsemble:
		return expandEnsemble(n, ctx)
	case ir.OpFanOut:
		return expandFanOut(n, ctx)
	case ir.OpScopeResolve, ir.OpIteratorInit:
		return cloneLeaf(n), nil
	default:
		return nil, fmt.Errorf("expand: unexpected opcode %q at %s", n.OpCode, n.StackPath)
	}
}

// expandChildren separates "briefing" sibling entries from real
// children, folds them into ctx, and expands the rest under the
// combined context.
func expandChildren(children []*ir.Node, ctx briefingContext) ([]*ir.Node, briefingContext, error) {
	var local briefingContext
	local.global = map[string]any{}
	local.perAgent = map[string]map[string]any{}
	var normal []*ir.Node
	for _, c := range children {
		if string(c.OpCode) == "briefing" {
			local = local.extend(briefingFromNode(c))
			continue
		}
		normal = append(normal, c)
	}
	combined := ctx.extend(local)
	out := make([]*ir.Node, 0, len(normal))
	for _, c := range normal {
		expanded, err := expandNode(c, combined)
		if err != nil {
			return nil, briefingContext{}, err
		}
		out = append(out, expanded)
	}
	return out, combined, nil
}

func expandApprovalGate(n *ir.Node, ctx briefingContext) (*ir.Node, error) {
	approver, _ := n.Params["approver"].(string)
	target, _ := n.Params["target"].(string)

	children, _, err := expandChildren(n.Children, ctx)
	if err != nil {
		return nil, err
	}

	approverNode := &ir.Node{
		OpCode: ir.OpApprover,
		Params: map[string]any{"approver": approver, "target": target},
	}
	approverNode.Params["briefing"] = ctx.resolve(approver, map[string]any{"mode": "approve"})

	// max_attempts is optional; 0 means "retry until accepted", left to
	// the executor since termination on accept/reject is a runtime
	// concern the compiler only structures, not evaluates (spec.md §5).
	count := 0
	if v, ok := n.Params["max_attempts"].(int); ok {
		count = v
	}

	body := &ir.Node{OpCode: ir.OpSerial, Children: append(children, approverNode)}
	return &ir.Node{
		OpCode:   ir.OpLoop,
		Params:   map[string]any{"count": count},
		Children: []*ir.Node{body},
	}, nil
}

func expandGenerateTeam(n *ir.Node, ctx briefingContext) (*ir.Node, error) {
	generator, ok := n.Params["generator"].(*ir.Node)
	if !ok {
		return nil, fmt.Errorf("expand: generate_team.generator missing or malformed at %s", n.StackPath)
	}
	validators, _ := n.Params["validators"].([]*ir.Node)

	localCtx := ctx.extend(briefingFromParam(n.Params["briefing"]))

	loopCount, _ := n.Params["loop"].(int)

	genWorker := cloneLeaf(generator)
	genWorker.Wiring.Inputs = append(append([]string{}, n.Wiring.Inputs...), "__verdicts@prev")
	genWorker.Wiring.Output = "__draft"
	applyBriefing(genWorker, localCtx, map[string]any{"mode": "generate"})

	verdictParallel := &ir.Node{OpCode: ir.OpParallel}
	verdictNames := make([]string, 0, len(validators))
	for i, v := range validators {
		vw := cloneLeaf(v)
		vw.Wiring.Inputs = append(append([]string{}, v.Wiring.Inputs...), "__draft")
		vw.Wiring.Output = fmt.Sprintf("__verdict_%d", i)
		applyBriefing(vw, localCtx, map[string]any{"mode": "validate"})
		verdictParallel.Children = append(verdictParallel.Children, vw)
		verdictNames = append(verdictNames, vw.Wiring.Output)
	}

	gateParams := map[string]any{"agent": "__gate", "mode": "gate"}
	if aw, ok := n.Params["accept_when"]; ok {
		gateParams["accept_when"] = aw
	}
	gateWorker := &ir.Node{
		OpCode: ir.OpWorker,
		Params: gateParams,
		Wiring: ir.Wiring{Inputs: verdictNames, Output: "__verdicts"},
	}

	body := &ir.Node{OpCode: ir.OpSerial, Children: []*ir.Node{genWorker, verdictParallel, gateWorker}}
	loop := &ir.Node{OpCode: ir.OpLoop, Params: map[string]any{"count": loopCount}, Children: []*ir.Node{body}}

	// Loop exhaustion without an accepted verdict binds the last draft
	// produced, per the Open Question resolution recorded in DESIGN.md.
	scopeResolve := &ir.Node{
		OpCode: ir.OpScopeResolve,
		Params: map[string]any{"selects": "__draft"},
		Wiring: ir.Wiring{Inputs: []string{"__draft"}, Output: n.Wiring.Output},
	}

	return &ir.Node{OpCode: ir.OpSerial, Children: []*ir.Node{loop, scopeResolve}}, nil
}

func expandEnsemble(n *ir.Node, ctx briefingContext) (*ir.Node, error) {
	generators, _ := n.Params["generators"].([]*ir.Node)
	consolidator, ok := n.Params["consolidator"].(*ir.Node)
	if !ok {
		return nil, fmt.Errorf("expand: ensemble.consolidator missing or malformed at %s", n.StackPath)
	}
	samples, _ := n.Params["samples"].(int)
	if samples == 0 {
		samples = 1
	}

	localCtx := ctx.extend(briefingFromParam(n.Params["briefing"]))

	parallel := &ir.Node{OpCode: ir.OpParallel}
	var draftNames []string
	for g, gen := range generators {
		for s := 0; s < samples; s++ {
			w := cloneLeaf(gen)
			w.Wiring.Output = fmt.Sprintf("__draft_g%d_s%d", g, s)
			applyBriefing(w, localCtx, map[string]any{"mode": "generate"})
			parallel.Children = append(parallel.Children, w)
			draftNames = append(draftNames, w.Wiring.Output)
		}
	}

	consolidatorWorker := cloneLeaf(consolidator)
	consolidatorWorker.Wiring.Inputs = draftNames
	consolidatorWorker.Wiring.Output = n.Wiring.Output
	applyBriefing(consolidatorWorker, localCtx, map[string]any{"mode": "consolidate"})

	return &ir.Node{OpCode: ir.OpSerial, Children: []*ir.Node{parallel, consolidatorWorker}}, nil
}

func expandFanOut(n *ir.Node, ctx briefingContext) (*ir.Node, error) {
	source, _ := n.Params["source"].(string)
	itemKey, _ := n.Params["item_key"].(string)
	strategy, _ := n.Params["strategy"].(string)
	worker, ok := n.Params["worker"].(*ir.Node)
	if !ok {
		return nil, fmt.Errorf("expand: fan_out.worker missing or malformed at %s", n.StackPath)
	}

	// $KEY and $ITEM stay symbolic in the template; only Resolve binds
	// them, and only for the compile-time-known parts (spec.md §4.4).
	template := cloneLeaf(worker)
	applyBriefing(template, ctx, map[string]any{"mode": "generate"})

	initNode := &ir.Node{
		OpCode: ir.OpIteratorInit,
		Params: map[string]any{"item_key": itemKey},
		Wiring: ir.Wiring{Inputs: []string{source}},
	}
	iterateNode := &ir.Node{
		OpCode:   ir.OpIterate,
		Params:   map[string]any{"strategy": strategy, "item_key": itemKey},
		Children: []*ir.Node{template},
	}

	return &ir.Node{OpCode: ir.OpSerial, Children: []*ir.Node{initNode, iterateNode}}, nil
}

func cloneLeaf(n *ir.Node) *ir.Node {
	return &ir.Node{OpCode: n.OpCode, Params: cloneParams(n.Params), Wiring: n.Wiring}
}

func cloneParams(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// assignPaths is a pure function of tree shape and per-opcode sibling
// index (spec.md §4.4, invariant 8): renaming params.agent never
// changes a stack_path.
func assignPaths(n *ir.Node, path string) {
	n.StackPath = path
	counts := map[ir.OpCode]int{}
	for _, c := range n.Children {
		idx := counts[c.OpCode]
		counts[c.OpCode] = idx + 1
		assignPaths(c, fmt.Sprintf("%s/%s_%d", path, c.OpCode, idx))
	}
}

func assertPrimitiveClosure(n *ir.Node) error {
	var err error
	n.Walk(func(node *ir.Node) {
		if err == nil && !ir.Primitives[node.OpCode] {
			err = fmt.Errorf("expand: sugar opcode %q survived expansion at %s", node.OpCode, node.StackPath)
		}
	})
	return err
}
