package syntax

import "github.com/google/jsonschema-go/jsonschema"

func minimum(v float64) *float64 { return &v }

// scalarSchema is a per-opcode schema over just the scalar leaves of
// Params (agent names, counts, strategy strings) — the shapes JSON
// Schema expresses cleanly. Structural obligations that reference
// nested *ir.Node values (generator, validators, contents, ...) are
// not JSON-shaped once the parser has normalized them, so those stay
// hand-written checks in check.go; see DESIGN.md for the split.
var scalarSchemas = map[string]*jsonschema.Schema{
	"worker": {
		Type:     "object",
		Required: []string{"agent"},
		Properties: map[string]*jsonschema.Schema{
			"agent": {Type: "string"},
		},
	},
	"generate_team": {
		Type:     "object",
		Required: []string{"loop"},
		Properties: map[string]*jsonschema.Schema{
			"loop": {Type: "integer", Minimum: minimum(1)},
		},
	},
	"approval_gate": {
		Type:     "object",
		Required: []string{"approver", "target"},
		Properties: map[string]*jsonschema.Schema{
			"approver": {Type: "string"},
			"target":   {Type: "string"},
		},
	},
	"ensemble": {
		Type:     "object",
		Required: []string{"samples"},
		Properties: map[string]*jsonschema.Schema{
			"samples": {Type: "integer", Minimum: minimum(1)},
		},
	},
	"fan_out": {
		Type:     "object",
		Required: []string{"source", "item_key", "strategy"},
		Properties: map[string]*jsonschema.Schema{
			"source":   {Type: "string"},
			"item_key": {Type: "string"},
			"strategy": {Type: "string", Enum: []any{"serial", "parallel"}},
		},
	},
	"loop": {
		Type:     "object",
		Required: []string{"count"},
		Properties: map[string]*jsonschema.Schema{
			"count": {Type: "integer", Minimum: minimum(1)},
		},
	},
}

var resolvedSchemas = mustResolveAll(scalarSchemas)

func mustResolveAll(schemas map[string]*jsonschema.Schema) map[string]*jsonschema.Resolved {
	out := make(map[string]*jsonschema.Resolved, len(schemas))
	for op, s := range schemas {
		resolved, err := s.Resolve(nil)
		if err != nil {
			panic("syntax: invalid schema for " + op + ": " + err.Error())
		}
		out[op] = resolved
	}
	return out
}

// scalarParams strips node.Params down to the JSON-primitive-shaped
// entries a jsonschema.Resolved can validate, discarding *ir.Node and
// []*ir.Node structural fields validated separately.
func scalarParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch v.(type) {
		case string, int, int64, float64, bool:
			out[k] = v
		}
	}
	return out
}
