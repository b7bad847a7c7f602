package format

import "time"

// TraceRow is one pipeline stage's timing outcome, decoupled from
// compiler.StageEvent so this package doesn't need to import the
// compiler package: callers (cmd/odlc) adapt their own event stream
// into rows before rendering.
type TraceRow struct {
	Stage   string
	Elapsed time.Duration
	Ok      bool
}

// Trace renders a compile's per-stage timing as a table, for
// `odlc compile --trace` to show which of the six stages a run spent
// its time in without reaching for the OpenTelemetry span exporter.
func Trace(m Mode, rows []TraceRow) string {
	tb := NewTable(m)
	tb.Header("Stage", "Elapsed", "OK")
	var total time.Duration
	for _, r := range rows {
		tb.Row(r.Stage, FmtDuration(r.Elapsed), BoolMark(r.Ok))
		total += r.Elapsed
	}
	tb.Footer("TOTAL", FmtDuration(total), "")
	return tb.String()
}
