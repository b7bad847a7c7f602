package surface

import (
	"testing"

	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

func TestNormalize_Worker(t *testing.T) {
	node, err := Normalize(Tree{
		"worker": Tree{
			"agent":  "Drafter",
			"inputs": []any{"Brief"},
			"output": "Draft",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.OpCode != ir.OpWorker {
		t.Errorf("opcode = %q, want worker", node.OpCode)
	}
	if node.Params["agent"] != "Drafter" {
		t.Errorf("agent = %v, want Drafter", node.Params["agent"])
	}
	if len(node.Wiring.Inputs) != 1 || node.Wiring.Inputs[0] != "Brief" {
		t.Errorf("inputs = %v, want [Brief]", node.Wiring.Inputs)
	}
	if node.Wiring.Output != "Draft" {
		t.Errorf("output = %q, want Draft", node.Wiring.Output)
	}
	if _, ok := node.Params["inputs"]; ok {
		t.Errorf("inputs leaked into Params")
	}
}

func TestNormalize_MultiKeyIsMalformed(t *testing.T) {
	_, err := Normalize(Tree{
		"worker": Tree{"agent": "A"},
		"loop":   Tree{},
	})
	if !compileerr.IsKind(err, compileerr.MalformedNode) {
		t.Fatalf("expected MalformedNode, got %v", err)
	}
}

func TestNormalize_UnknownOpCode(t *testing.T) {
	_, err := Normalize(Tree{"reticulate": Tree{}})
	if !compileerr.IsKind(err, compileerr.UnknownOpCode) {
		t.Fatalf("expected UnknownOpCode, got %v", err)
	}
}

func TestNormalize_SerialContents(t *testing.T) {
	node, err := Normalize(Tree{
		"serial": Tree{
			"contents": []any{
				Tree{"worker": Tree{"agent": "A"}},
				Tree{"worker": Tree{"agent": "B"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(node.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(node.Children))
	}
	if node.Children[0].Params["agent"] != "A" || node.Children[1].Params["agent"] != "B" {
		t.Errorf("children agents = %v, %v", node.Children[0].Params["agent"], node.Children[1].Params["agent"])
	}
}

func TestNormalize_GenerateTeamShorthandGenerator(t *testing.T) {
	node, err := Normalize(Tree{
		"generate_team": Tree{
			"generator":  "Drafter",
			"validators": []any{"CheckerOne", Tree{"agent": "CheckerTwo"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen, ok := node.Params["generator"].(*ir.Node)
	if !ok {
		t.Fatalf("generator not stored as *ir.Node, got %T", node.Params["generator"])
	}
	if gen.OpCode != ir.OpWorker || gen.Params["agent"] != "Drafter" {
		t.Errorf("generator = %+v, want worker Drafter", gen)
	}
	validators, ok := node.Params["validators"].([]*ir.Node)
	if !ok || len(validators) != 2 {
		t.Fatalf("validators = %v", node.Params["validators"])
	}
	if validators[0].Params["agent"] != "CheckerOne" || validators[1].Params["agent"] != "CheckerTwo" {
		t.Errorf("validator agents = %v, %v", validators[0].Params["agent"], validators[1].Params["agent"])
	}
}

func TestNormalize_FanOutWrappedWorker(t *testing.T) {
	node, err := Normalize(Tree{
		"fan_out": Tree{
			"worker": Tree{"worker": Tree{"agent": "PerItem"}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, ok := node.Params["worker"].(*ir.Node)
	if !ok {
		t.Fatalf("worker not stored as *ir.Node, got %T", node.Params["worker"])
	}
	if w.Params["agent"] != "PerItem" {
		t.Errorf("worker agent = %v, want PerItem", w.Params["agent"])
	}
}

func TestNormalize_Briefing(t *testing.T) {
	node, err := Normalize(Tree{
		"briefing": Tree{"agent": "Drafter", "text": "be terse"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.OpCode != OpBriefing {
		t.Errorf("opcode = %q, want briefing", node.OpCode)
	}
	if ir.Primitives[node.OpCode] || ir.Sugars[node.OpCode] {
		t.Errorf("briefing must not be a primitive or sugar opcode")
	}
}
