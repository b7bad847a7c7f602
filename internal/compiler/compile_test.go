package compiler

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"odlc/internal/assemble"
	"odlc/internal/loader"
	"odlc/internal/surface"
)

func TestCompile_MinimalSerialPipeline(t *testing.T) {
	source := surface.Tree{
		"serial": surface.Tree{
			"contents": []any{
				surface.Tree{"worker": surface.Tree{"agent": "Author", "output": "Draft"}},
				surface.Tree{"worker": surface.Tree{"agent": "Editor", "inputs": []any{"Draft"}, "output": "Final"}},
			},
		},
	}

	collector := &TraceCollector{}
	out, report := Compile(context.Background(), source, collector)
	if report != nil {
		t.Fatalf("unexpected report: %v", report.Errors)
	}
	if out.OpCode != "serial" || len(out.Children) != 2 {
		t.Fatalf("out = %+v", out)
	}
	if got := out.Children[1].Wiring.Inputs[0]; got != "Draft#root/worker_0" {
		t.Errorf("resolved input = %q, want Draft#root/worker_0", got)
	}

	enters := collector.EventsOfType(EventStageEnter)
	if len(enters) != 6 {
		t.Fatalf("stage enter count = %d, want 6", len(enters))
	}
	dones := collector.EventsOfType(EventCompileDone)
	if len(dones) != 1 {
		t.Fatalf("expected exactly one compile_done event, got %d", len(dones))
	}
}

func TestCompile_UnknownOpCodeFailsAtParse(t *testing.T) {
	source := surface.Tree{"not_a_real_opcode": surface.Tree{}}

	collector := &TraceCollector{}
	_, report := Compile(context.Background(), source, collector)
	if report == nil || !report.HasErrors() {
		t.Fatal("expected a report with errors")
	}

	failed := collector.EventsOfType(EventCompileFailed)
	if len(failed) != 1 {
		t.Fatalf("expected exactly one compile_failed event, got %d", len(failed))
	}
	// Only the parse stage should have run; everything after never starts.
	if enters := collector.EventsOfType(EventStageEnter); len(enters) != 1 {
		t.Fatalf("stage enter count = %d, want 1", len(enters))
	}
}

func TestCompile_UndefinedReferenceFailsAtResolve(t *testing.T) {
	source := surface.Tree{
		"worker": surface.Tree{"agent": "A", "inputs": []any{"Ghost"}, "output": "Out"},
	}

	_, report := Compile(context.Background(), source, nil)
	if report == nil || !report.HasErrors() {
		t.Fatal("expected a report with errors")
	}
}

// TestCompile_ExampleOrganizationCompilesCleanly runs the shipped
// canonical example (examples/odl/org.yaml) end to end through all six
// stages. It exercises generate_team, ensemble, approval_gate, and
// fan_out together, the way no other test in this tree does.
func TestCompile_ExampleOrganizationCompilesCleanly(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	yamlPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "examples", "odl", "org.yaml")

	tree, err := loader.LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	out, report := Compile(context.Background(), tree, nil)
	if report != nil {
		t.Fatalf("unexpected report: %v", report.Errors)
	}
	if out == nil {
		t.Fatal("expected a non-nil IR")
	}

	var sawGateWorker, sawIterate bool
	var walk func(n *assemble.IR)
	walk = func(n *assemble.IR) {
		if n.OpCode == "worker" && n.Params["agent"] == "__gate" {
			sawGateWorker = true
		}
		if n.OpCode == "iterate" {
			sawIterate = true
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(out)
	if !sawGateWorker {
		t.Error("expected generate_team's expanded gate worker in the compiled IR")
	}
	if !sawIterate {
		t.Error("expected fan_out's expanded iterate node in the compiled IR")
	}
}

func TestCompile_NilObserverIsSafe(t *testing.T) {
	source := surface.Tree{"worker": surface.Tree{"agent": "A", "output": "Out"}}
	if _, report := Compile(context.Background(), source, nil); report != nil {
		t.Fatalf("unexpected report: %v", report.Errors)
	}
}
