// Package surface holds the raw, loosely-typed tree the compiler
// receives from an external concrete-syntax loader (spec.md §6), and
// the Parser/Normalizer that turns it into an ir.Node tree with the
// params/wiring split applied.
package surface

// Tree is a single mapping node exactly as an external YAML/JSON
// loader would decode it: `{opcode: {field: value, ...}}`. The core
// never decodes text itself — see internal/loader for the boundary
// that produces a Tree from bytes.
type Tree = map[string]any
