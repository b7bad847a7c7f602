package wiring

import (
	"testing"

	"odlc/internal/ir"
)

func TestCheck_AcyclicPasses(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpSerial,
		StackPath: "root",
		Children: []*ir.Node{
			{OpCode: ir.OpWorker, StackPath: "root/worker_0", Wiring: ir.Wiring{Output: "A"}},
			{OpCode: ir.OpWorker, StackPath: "root/worker_1", Wiring: ir.Wiring{Inputs: []string{"A#root/worker_0"}, Output: "B"}},
		},
	}
	g := Build(root)
	if err := g.Check(); err != nil {
		t.Fatalf("unexpected cycle: %v", err)
	}
	if err := g.ReconfirmReferences(); err != nil {
		t.Fatalf("unexpected undefined reference: %v", err)
	}
}

func TestCheck_CycleDetected(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpParallel,
		StackPath: "root",
		Children: []*ir.Node{
			{OpCode: ir.OpWorker, StackPath: "root/worker_0", Wiring: ir.Wiring{Inputs: []string{"B#root/worker_1"}, Output: "A"}},
			{OpCode: ir.OpWorker, StackPath: "root/worker_1", Wiring: ir.Wiring{Inputs: []string{"A#root/worker_0"}, Output: "B"}},
		},
	}
	g := Build(root)
	if err := g.Check(); err == nil {
		t.Fatal("expected a cycle to be detected")
	}
}

func TestOrphans_TerminalOutputIsWarningNotError(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpSerial,
		StackPath: "root",
		Children: []*ir.Node{
			{OpCode: ir.OpWorker, StackPath: "root/worker_0", Wiring: ir.Wiring{Output: "Unused"}},
		},
	}
	g := Build(root)
	if err := g.Check(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orphans := g.Orphans()
	if len(orphans) != 1 || orphans[0] != "root/worker_0" {
		t.Fatalf("orphans = %v, want [root/worker_0]", orphans)
	}
}

// TestCheck_PrevReferenceIsNotACycle mirrors generate_team's resolved
// shape: the generator consumes the gate's output via "@prev" (Prev,
// not Inputs) while the gate consumes the generator's draft via a
// plain forward Inputs reference. This is not a same-execution cycle
// and Check must not report one.
func TestCheck_PrevReferenceIsNotACycle(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpSerial,
		StackPath: "root",
		Children: []*ir.Node{
			{
				OpCode:    ir.OpWorker,
				StackPath: "root/worker_0",
				Wiring:    ir.Wiring{Prev: map[string]string{"Verdicts": "Verdicts#root/worker_1"}, Output: "Draft"},
			},
			{
				OpCode:    ir.OpWorker,
				StackPath: "root/worker_1",
				Wiring:    ir.Wiring{Inputs: []string{"Draft#root/worker_0"}, Output: "Verdicts"},
			},
		},
	}
	g := Build(root)
	if err := g.Check(); err != nil {
		t.Fatalf("unexpected cycle from a @prev reference: %v", err)
	}
	if err := g.ReconfirmReferences(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orphans := g.Orphans(); len(orphans) != 0 {
		t.Fatalf("orphans = %v, want none: Verdicts is consumed via @prev", orphans)
	}
}

func TestReconfirmReferences_MissingProducer(t *testing.T) {
	root := &ir.Node{
		OpCode:    ir.OpWorker,
		StackPath: "root",
		Wiring:    ir.Wiring{Inputs: []string{"Ghost#root/worker_9"}, Output: "A"},
	}
	g := Build(root)
	if err := g.ReconfirmReferences(); err == nil {
		t.Fatal("expected UndefinedReference")
	}
}
