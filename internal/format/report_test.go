package format_test

import (
	"strings"
	"testing"
	"time"

	"odlc/internal/assemble"
	"odlc/internal/compileerr"
	"odlc/internal/format"
)

func TestReport_ListsEachError(t *testing.T) {
	report := &compileerr.Report{Errors: []*compileerr.CompileError{
		compileerr.New(compileerr.UndefinedReference, "root/worker_1", "input %q has no producer", "Ghost"),
		compileerr.New(compileerr.ReservedName, "root/worker_0", "output name %q is reserved", "__draft"),
	}}
	out := format.Report(format.ASCII, report)
	if !strings.Contains(out, "UndefinedReference") || !strings.Contains(out, "ReservedName") {
		t.Errorf("expected both error kinds in output:\n%s", out)
	}
	if !strings.Contains(out, "root/worker_1") {
		t.Errorf("expected path in output:\n%s", out)
	}
}

func TestReport_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("x", 200)
	report := &compileerr.Report{Errors: []*compileerr.CompileError{
		compileerr.New(compileerr.InvalidAcceptExpression, "root/worker_0", "%s", long),
	}}
	out := format.Report(format.ASCII, report)
	if strings.Contains(out, long) {
		t.Errorf("expected message to be truncated, got full string in output:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("expected truncation marker in output:\n%s", out)
	}
}

func TestTrace_RendersStagesAndTotal(t *testing.T) {
	rows := []format.TraceRow{
		{Stage: "parse", Elapsed: 2 * time.Millisecond, Ok: true},
		{Stage: "resolve", Elapsed: 5 * time.Millisecond, Ok: false},
	}
	out := format.Trace(format.ASCII, rows)
	if !strings.Contains(out, "parse") || !strings.Contains(out, "resolve") {
		t.Errorf("expected both stages in output:\n%s", out)
	}
	if !strings.Contains(out, "✓") || !strings.Contains(out, "✗") {
		t.Errorf("expected ok/fail marks in output:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Errorf("expected a TOTAL footer:\n%s", out)
	}
}

func TestIR_RendersNestedTreeFlattened(t *testing.T) {
	root := &assemble.IR{
		StackPath: "root",
		OpCode:    "serial",
		Children: []*assemble.IR{
			{StackPath: "root/worker_0", OpCode: "worker", Wiring: assemble.Wiring{Output: "Draft"}},
			{StackPath: "root/worker_1", OpCode: "worker", Wiring: assemble.Wiring{Inputs: []string{"Draft#root/worker_0"}, Output: "Final"}},
		},
	}
	out := format.IR(format.Markdown, root)
	if !strings.Contains(out, "Draft") || !strings.Contains(out, "Final") {
		t.Errorf("expected both outputs in table:\n%s", out)
	}
	if !strings.Contains(out, "Draft#root/worker_0") {
		t.Errorf("expected resolved input in table:\n%s", out)
	}
}
