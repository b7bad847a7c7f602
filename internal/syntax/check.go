// Package syntax applies per-opcode structural rules to a normalized
// surface.Tree/ir.Node, batching every violation into a
// compileerr.Report rather than failing on the first one (spec.md §4.3,
// §7 propagation policy).
package syntax

import (
	"github.com/expr-lang/expr"

	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

// acceptWhenEnv is the schema-only type environment accept_when
// expressions are checked against. It is never populated with real
// verdict data; expr.Compile only needs it to type-check.
type acceptWhenEnv struct {
	Verdicts []Verdict
}

// Verdict mirrors the shape of one validator's output artifact, for
// accept_when's type environment only.
type Verdict struct {
	Approved bool
	Agent    string
	Message  string
}

// Check validates a desugar-ready tree and returns every violation it
// finds. A Report with no errors (HasErrors false) means the tree passed.
func Check(root *ir.Node) *compileerr.Report {
	report := &compileerr.Report{}
	checkNode(root, report)
	return report
}

func checkNode(n *ir.Node, report *compileerr.Report) {
	checkOpcode(n, report)
	for _, c := range n.Children {
		checkNode(c, report)
	}
}

func checkOpcode(n *ir.Node, report *compileerr.Report) {
	if schema, ok := resolvedSchemas[string(n.OpCode)]; ok {
		if err := schema.Validate(scalarParams(n.Params)); err != nil {
			report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s: %v", n.OpCode, err))
		}
	}

	switch n.OpCode {
	case ir.OpWorker:
		checkOutputName(n, report)
	case ir.OpGenerateTeam:
		checkNested(n, "generator", false, report)
		checkNestedList(n, "validators", 1, report)
		checkOutputName(n, report)
		checkAcceptWhen(n, report)
	case ir.OpApprovalGate:
		if len(n.Children) == 0 {
			report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "approval_gate.contents needs at least one entry"))
		}
	case ir.OpEnsemble:
		checkNestedList(n, "generators", 1, report)
		checkNested(n, "consolidator", true, report)
		checkOutputName(n, report)
	case ir.OpFanOut:
		checkNested(n, "worker", true, report)
		checkNoNestedFanOut(n, report)
	case ir.OpSerial, ir.OpParallel, ir.OpLoop:
		if len(n.Children) == 0 {
			report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s needs at least one child", n.OpCode))
		}
	}

	checkInputNames(n, report)
}

func checkOutputName(n *ir.Node, report *compileerr.Report) {
	if n.Wiring.Output == "" {
		report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s requires wiring.output", n.OpCode))
		return
	}
	checkArtifactName(n.Wiring.Output, n, report, true)
}

func checkInputNames(n *ir.Node, report *compileerr.Report) {
	for _, in := range n.Wiring.Inputs {
		name, _ := ir.SplitModifier(in)
		checkArtifactName(name, n, report, false)
	}
}

func checkArtifactName(name string, n *ir.Node, report *compileerr.Report, isOutput bool) {
	switch ir.ClassifyName(name) {
	case ir.ClassReserved:
		report.Add(compileerr.New(compileerr.ReservedName, n.StackPath, "artifact name %q is reserved", name))
	case ir.ClassPrivate:
		report.Add(compileerr.New(compileerr.PrivateName, n.StackPath, "artifact name %q is private", name))
	case ir.ClassProjectDocument:
		if isOutput {
			report.Add(compileerr.New(compileerr.ExternalWriteAttempt, n.StackPath, "cannot write to project document %q", name))
		}
	}
}

func checkNested(n *ir.Node, key string, required bool, report *compileerr.Report) {
	v, ok := n.Params[key]
	if !ok {
		if required {
			report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s.%s is required", n.OpCode, key))
		}
		return
	}
	child, ok := v.(*ir.Node)
	if !ok {
		report.Add(compileerr.New(compileerr.MalformedNode, n.StackPath, "%s.%s did not normalize to a node", n.OpCode, key))
		return
	}
	checkNode(child, report)
}

func checkNestedList(n *ir.Node, key string, minLen int, report *compileerr.Report) {
	v, ok := n.Params[key]
	if !ok {
		report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s.%s is required", n.OpCode, key))
		return
	}
	list, ok := v.([]*ir.Node)
	if !ok {
		report.Add(compileerr.New(compileerr.MalformedNode, n.StackPath, "%s.%s did not normalize to a node list", n.OpCode, key))
		return
	}
	if len(list) < minLen {
		report.Add(compileerr.New(compileerr.MissingRequiredField, n.StackPath, "%s.%s needs at least %d entries", n.OpCode, key, minLen))
	}
	for _, child := range list {
		checkNode(child, report)
	}
}

// checkNoNestedFanOut rejects a fan_out whose worker template contains
// another fan_out anywhere in its subtree (spec.md §4.3).
func checkNoNestedFanOut(n *ir.Node, report *compileerr.Report) {
	worker, ok := n.Params["worker"].(*ir.Node)
	if !ok {
		return
	}
	worker.Walk(func(descendant *ir.Node) {
		if descendant.OpCode == ir.OpFanOut {
			report.Add(compileerr.New(compileerr.NestedFanOut, n.StackPath, "fan_out found nested inside fan_out at %s", descendant.StackPath))
		}
	})
}

// checkAcceptWhen compiles generate_team's optional accept_when
// expression against a schema-only environment, never evaluating it.
func checkAcceptWhen(n *ir.Node, report *compileerr.Report) {
	raw, ok := n.Params["accept_when"]
	if !ok {
		return
	}
	code, ok := raw.(string)
	if !ok {
		report.Add(compileerr.New(compileerr.InvalidAcceptExpression, n.StackPath, "accept_when must be a string, got %T", raw))
		return
	}
	_, err := expr.Compile(code, expr.Env(acceptWhenEnv{}), expr.AsBool())
	if err != nil {
		report.Add(compileerr.New(compileerr.InvalidAcceptExpression, n.StackPath, "accept_when: %v", err))
	}
}
