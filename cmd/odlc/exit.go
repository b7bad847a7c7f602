package main

// exitError signals a non-zero exit code without appending its own
// message to what the command has already printed (a diagnostic
// table, for instance) — main's error handler special-cases it.
type exitError struct{ code int }

func (e *exitError) Error() string { return "" }
