package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"odlc/internal/compiler"
	"odlc/internal/format"
	"odlc/internal/loader"
	"odlc/internal/logging"
)

var (
	compileMarkdown bool
	compileTable    bool
	compileTrace    bool
)

var compileCmd = &cobra.Command{
	Use:           "compile <file>",
	Short:         "Compile an organization definition to IR",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompile,
}

func init() {
	compileCmd.Flags().BoolVar(&compileMarkdown, "markdown", false, "render diagnostics/IR table as Markdown instead of ASCII")
	compileCmd.Flags().BoolVar(&compileTable, "table", false, "print the IR as a table instead of JSON")
	compileCmd.Flags().BoolVar(&compileTrace, "trace", false, "print per-stage timing after compiling")
}

func runCompile(cmd *cobra.Command, args []string) error {
	tree, err := loader.LoadFile(args[0])
	if err != nil {
		return err
	}

	mode := format.ASCII
	if compileMarkdown {
		mode = format.Markdown
	}

	obs := compiler.StageObserver(&compiler.LogObserver{Logger: logging.New("odlc")})
	var trace *compiler.TraceCollector
	if compileTrace {
		trace = &compiler.TraceCollector{}
		obs = compiler.MultiObserver{obs, trace}
	}

	result, report := compiler.Compile(context.Background(), tree, obs)
	out := cmd.OutOrStdout()

	if trace != nil {
		defer func() { fmt.Fprintln(out, format.Trace(mode, traceRows(trace))) }()
	}

	if report != nil {
		fmt.Fprintln(out, format.Report(mode, report))
		return &exitError{code: 1}
	}

	if compileTable {
		fmt.Fprintln(out, format.IR(mode, result))
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// traceRows adapts the compiler's stage-exit/stage-error events into the
// format package's row type; EventStageEnter carries no elapsed time and
// is skipped.
func traceRows(t *compiler.TraceCollector) []format.TraceRow {
	var rows []format.TraceRow
	for _, e := range t.Events() {
		switch e.Type {
		case compiler.EventStageExit:
			rows = append(rows, format.TraceRow{Stage: e.Stage, Elapsed: e.Elapsed, Ok: true})
		case compiler.EventStageError:
			rows = append(rows, format.TraceRow{Stage: e.Stage, Elapsed: e.Elapsed, Ok: false})
		}
	}
	return rows
}
