package assemble

import (
	"testing"

	"odlc/internal/ir"
)

func TestAssemble_MechanicalCopy(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpSerial,
		StackPath: "root",
		Children: []*ir.Node{
			{
				OpCode:    ir.OpWorker,
				StackPath: "root/worker_0",
				Params:    map[string]any{"agent": "A"},
				Wiring:    ir.Wiring{Output: "X"},
			},
		},
	}
	out, err := Assemble(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OpCode != "serial" || len(out.Children) != 1 {
		t.Fatalf("out = %+v", out)
	}
	child := out.Children[0]
	if child.OpCode != "worker" || child.Params["agent"] != "A" || child.Wiring.Output != "X" {
		t.Errorf("child = %+v", child)
	}
}

func TestAssemble_SugarOpcodeIsBug(t *testing.T) {
	root := &ir.Node{OpCode: ir.OpGenerateTeam, StackPath: "root"}
	if _, err := Assemble(root); err == nil {
		t.Fatal("expected InternalAssemblyError for a surviving sugar opcode")
	}
}

func TestAssemble_ControlNodeWithoutChildrenIsBug(t *testing.T) {
	root := &ir.Node{OpCode: ir.OpSerial, StackPath: "root"}
	if _, err := Assemble(root); err == nil {
		t.Fatal("expected InternalAssemblyError for a childless control node")
	}
}

func TestAssemble_MissingStackPathIsBug(t *testing.T) {
	root := &ir.Node{OpCode: ir.OpWorker}
	if _, err := Assemble(root); err == nil {
		t.Fatal("expected InternalAssemblyError for a missing stack_path")
	}
}
