// Package ir defines the primitive data model shared by every compiler
// stage: the closed opcode vocabulary, the Node record, and artifact
// name classification. It is deliberately not a class hierarchy — a
// single tagged-variant struct with opcode-keyed logic elsewhere, per
// the "polymorphism over wiring" design note.
package ir

// OpCode tags a Node's kind. The desugared tree contains only the
// primitive members of this set; sugar opcodes are rewritten away by
// the expander.
type OpCode string

const (
	// Atoms (leaves).
	OpWorker   OpCode = "worker"
	OpDialogue OpCode = "dialogue"
	OpApprover OpCode = "approver"

	// Control (children required).
	OpSerial   OpCode = "serial"
	OpParallel OpCode = "parallel"
	OpLoop     OpCode = "loop"
	OpIterate  OpCode = "iterate"

	// Logic (synthesized by the expander, never authored directly).
	OpScopeResolve OpCode = "scope_resolve"
	OpIteratorInit OpCode = "iterator_init"

	// Sugar (rewritten away by Expand; never appear past that stage).
	OpGenerateTeam OpCode = "generate_team"
	OpApprovalGate OpCode = "approval_gate"
	OpEnsemble     OpCode = "ensemble"
	OpFanOut       OpCode = "fan_out"
)

// Atoms is the set of leaf opcodes: nodes that carry no children.
var Atoms = map[OpCode]bool{
	OpWorker:   true,
	OpDialogue: true,
	OpApprover: true,
}

// Controls is the set of opcodes that require at least one child.
var Controls = map[OpCode]bool{
	OpSerial:   true,
	OpParallel: true,
	OpLoop:     true,
	OpIterate:  true,
}

// Primitives is the closed set of opcodes allowed to survive Expand.
// Any opcode not in this set found after desugaring is a compiler bug
// (spec.md §4.1).
var Primitives = map[OpCode]bool{
	OpWorker:       true,
	OpDialogue:     true,
	OpApprover:     true,
	OpSerial:       true,
	OpParallel:     true,
	OpLoop:         true,
	OpIterate:      true,
	OpScopeResolve: true,
	OpIteratorInit: true,
}

// Sugars is the set of opcodes the Expander rewrites into primitive
// subtrees; they never appear in a finished IR.
var Sugars = map[OpCode]bool{
	OpGenerateTeam: true,
	OpApprovalGate: true,
	OpEnsemble:     true,
	OpFanOut:       true,
}

// Wiring holds a node's input/output artifact declarations.
type Wiring struct {
	// Inputs are logical artifact names, in declared order, before
	// Resolve possibly carrying a "@history"/"@prev" modifier suffix.
	// Resolve rewrites every unmodified entry in place to
	// "Name#producer_stack_path" or the Project Document
	// external-reference form "Name:ResID@Version" (invariant 4); a
	// modified entry is removed from Inputs and recorded in History or
	// Prev instead, since neither of invariant 4's two shapes has room
	// for a modifier suffix.
	Inputs []string
	// History maps a logical name referenced with "@history" to the
	// producer path(s) the execution kernel replays as the ordered
	// sequence of every prior iteration's output (spec.md §4.5). A loop
	// or iterate body appears once in the IR, so this is a list of the
	// static producer(s) visible from within that body, not an
	// enumeration of runtime iterations — materializing the sequence
	// from repeated executions of those producers is the execution
	// kernel's job, not the resolver's.
	History map[string][]string
	// Prev maps a logical name referenced with "@prev" to the single
	// producer path whose most recent output the execution kernel binds
	// as iteration n-1.
	Prev map[string]string
	// Output is the single logical artifact name this node produces,
	// or "" if the node produces nothing addressable by name.
	Output string
}

// Node is the universal tree unit, shared by every stage of the
// pipeline. Expand builds a rewritten copy of the tree, Resolve mutates
// that copy in place, and Assemble freezes it into an immutable copy
// (see internal/assemble).
type Node struct {
	OpCode OpCode
	// Params holds every option not claimed by Wiring or Children,
	// e.g. "agent", "count", "generator", "validators".
	Params map[string]any
	Wiring Wiring
	// Children is ordered; empty for atoms, non-empty for control
	// nodes (spec.md invariant 4).
	Children []*Node
	// StackPath is assigned during Expand; empty before that stage.
	StackPath string
}

// IsAtom reports whether the node's opcode is a leaf opcode.
func (n *Node) IsAtom() bool { return Atoms[n.OpCode] }

// IsControl reports whether the node's opcode requires children.
func (n *Node) IsControl() bool { return Controls[n.OpCode] }

// Walk calls fn for n and every descendant, pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
