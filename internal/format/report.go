package format

import (
	"fmt"
	"sort"
	"strings"

	"odlc/internal/assemble"
	"odlc/internal/compileerr"
)

// reportMessageWidth caps a single diagnostic's rendered message so one
// verbose error (e.g. an expr-lang parse failure) can't blow out the
// table's column width for every other row.
const reportMessageWidth = 96

// Report renders a compile diagnostics batch as a table: one row per
// error, grouped implicitly by the stage column since Report.Errors
// preserves the order stages ran in.
func Report(m Mode, report *compileerr.Report) string {
	tb := NewTable(m)
	tb.Header("Stage", "Kind", "Path", "Message")
	for _, e := range report.Errors {
		path := e.Path
		if path == "" {
			path = "-"
		}
		tb.Row(e.Kind.Stage(), string(e.Kind), path, Truncate(e.Message, reportMessageWidth))
	}
	return tb.String()
}

// IR renders a compiled tree as a flat table, one row per node in
// pre-order, for a human scanning `odlc compile`'s output without
// wading through nested JSON.
func IR(m Mode, root *assemble.IR) string {
	tb := NewTable(m)
	tb.Header("Path", "Op", "Inputs", "Output")
	var walk func(n *assemble.IR, depth int)
	walk = func(n *assemble.IR, depth int) {
		op := strings.Repeat("  ", depth) + n.OpCode
		cols := append([]string{}, n.Wiring.Inputs...)
		cols = append(cols, historyPrevColumns(n.Wiring.History, n.Wiring.Prev)...)
		inputs := "-"
		if len(cols) > 0 {
			inputs = strings.Join(cols, ", ")
		}
		output := n.Wiring.Output
		if output == "" {
			output = "-"
		}
		tb.Row(n.StackPath, op, inputs, output)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return tb.String()
}

// historyPrevColumns renders a node's "@history"/"@prev" bindings as
// display-only annotations, sorted by logical name so table output
// stays deterministic across runs (invariant 1).
func historyPrevColumns(history map[string][]string, prev map[string]string) []string {
	var out []string
	names := make([]string, 0, len(history))
	for name := range history {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s@history=%s", name, strings.Join(history[name], ",")))
	}
	names = names[:0]
	for name := range prev {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s@prev=%s", name, prev[name]))
	}
	return out
}
