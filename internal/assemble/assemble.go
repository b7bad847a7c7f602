// Package assemble performs the final mechanical copy of a resolved,
// wiring-checked tree into the frozen IR record spec.md §6 defines as
// the compiler's output shape. Every failure here indicates a bug in
// an earlier stage, not a user error (spec.md §4.7).
package assemble

import (
	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

// Wiring is the frozen form of ir.Wiring: inputs already rewritten to
// "Name#stack_path" or "Name:ResID@Version" by internal/resolve, with
// "@history"/"@prev" references split out into History/Prev.
type Wiring struct {
	Inputs  []string            `json:"inputs,omitempty"`
	History map[string][]string `json:"history,omitempty"`
	Prev    map[string]string   `json:"prev,omitempty"`
	Output  string              `json:"output,omitempty"`
}

// IR is one frozen node of the compiled tree. Unlike ir.Node it is
// never mutated after construction — Assemble is the last stage to
// touch it.
type IR struct {
	StackPath string         `json:"stack_path"`
	OpCode    string         `json:"opcode"`
	Params    map[string]any `json:"params,omitempty"`
	Wiring    Wiring         `json:"wiring"`
	Children  []*IR          `json:"children,omitempty"`
}

// Assemble deep-copies root into an IR, validating the invariants
// every earlier stage was supposed to have already established.
func Assemble(root *ir.Node) (*IR, *compileerr.CompileError) {
	return assembleNode(root)
}

func assembleNode(n *ir.Node) (*IR, *compileerr.CompileError) {
	if !ir.Primitives[n.OpCode] {
		return nil, compileerr.New(compileerr.InternalAssemblyError, n.StackPath, "non-primitive opcode %q reached assembly", n.OpCode)
	}
	if n.StackPath == "" {
		return nil, compileerr.New(compileerr.InternalAssemblyError, "", "node of opcode %q is missing a stack_path", n.OpCode)
	}
	if n.IsControl() && len(n.Children) == 0 {
		return nil, compileerr.New(compileerr.InternalAssemblyError, n.StackPath, "%s control node reached assembly with no children", n.OpCode)
	}
	if n.IsAtom() && len(n.Children) != 0 {
		return nil, compileerr.New(compileerr.InternalAssemblyError, n.StackPath, "%s atom reached assembly with children", n.OpCode)
	}

	out := &IR{
		StackPath: n.StackPath,
		OpCode:    string(n.OpCode),
		Params:    cloneParams(n.Params),
		Wiring: Wiring{
			Inputs:  append([]string{}, n.Wiring.Inputs...),
			History: cloneHistory(n.Wiring.History),
			Prev:    clonePrev(n.Wiring.Prev),
			Output:  n.Wiring.Output,
		},
	}
	for _, c := range n.Children {
		child, err := assembleNode(c)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func cloneParams(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func cloneHistory(h map[string][]string) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = append([]string{}, v...)
	}
	return out
}

func clonePrev(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
