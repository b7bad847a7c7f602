package surface

import (
	"fmt"
	"sort"

	"odlc/internal/compileerr"
	"odlc/internal/ir"
)

// OpBriefing is a meta opcode recognized by the parser (spec.md §6 lists
// "briefing" among the reserved syntax surface) but never a member of
// ir.Primitives or ir.Sugars: it never becomes an IR node. It is a
// sibling entry in a "contents" list that contributes to the briefing
// merge (spec.md §4.4) of workers in its enclosing scope, then is
// dropped by the Expander.
const OpBriefing ir.OpCode = "briefing"

// childField describes how the parser extracts a nested node (or list
// of nodes) from an opcode's body, distinct from a scalar param.
type childField struct {
	key            string
	list           bool
	storesChildren bool // true: append to node.Children; false: store as node.Params[key]
}

var childFieldsByOp = map[ir.OpCode][]childField{
	ir.OpSerial:       {{"contents", true, true}},
	ir.OpParallel:     {{"contents", true, true}},
	ir.OpLoop:         {{"contents", true, true}},
	ir.OpIterate:      {{"contents", true, true}},
	ir.OpApprovalGate: {{"contents", true, true}},
	ir.OpGenerateTeam: {{"generator", false, false}, {"validators", true, false}},
	ir.OpEnsemble:     {{"generators", true, false}, {"consolidator", false, false}},
	ir.OpFanOut:       {{"worker", false, false}},
}

func knownOpCode(op ir.OpCode) bool {
	return ir.Primitives[op] || ir.Sugars[op] || op == OpBriefing
}

// Normalize converts one raw surface mapping into an ir.Node, splitting
// shorthand keys into params and wiring buckets and recursing into
// child fields (spec.md §4.2).
func Normalize(raw any) (*ir.Node, error) {
	m, ok := raw.(Tree)
	if !ok {
		return nil, compileerr.New(compileerr.MalformedNode, "", "expected a single-keyed mapping, got %T", raw)
	}
	if len(m) != 1 {
		keys := sortedKeys(m)
		return nil, compileerr.New(compileerr.MalformedNode, "", "expected exactly one opcode key, got %d: %v", len(m), keys)
	}

	var key string
	var body any
	for k, v := range m {
		key, body = k, v
	}

	op := ir.OpCode(key)
	if !knownOpCode(op) {
		return nil, compileerr.New(compileerr.UnknownOpCode, "", "unrecognized opcode %q", key)
	}

	if op == OpBriefing {
		bodyMap, ok := body.(Tree)
		if !ok {
			return nil, compileerr.New(compileerr.MalformedNode, "", "briefing body must be a mapping")
		}
		return &ir.Node{OpCode: OpBriefing, Params: cloneMap(bodyMap)}, nil
	}

	bodyMap, ok := body.(Tree)
	if !ok {
		return nil, compileerr.New(compileerr.MalformedNode, "", "%s body must be a mapping, got %T", key, body)
	}
	bodyMap = cloneMap(bodyMap)

	node := &ir.Node{OpCode: op, Params: map[string]any{}}

	if in, ok := bodyMap["inputs"]; ok {
		list, err := toStringSlice(in)
		if err != nil {
			return nil, compileerr.New(compileerr.MalformedNode, "", "%s.inputs: %v", key, err)
		}
		node.Wiring.Inputs = list
		delete(bodyMap, "inputs")
	}
	if out, ok := bodyMap["output"]; ok {
		s, ok := out.(string)
		if !ok {
			return nil, compileerr.New(compileerr.MalformedNode, "", "%s.output must be a string", key)
		}
		node.Wiring.Output = s
		delete(bodyMap, "output")
	}

	for _, cf := range childFieldsByOp[op] {
		raw, ok := bodyMap[cf.key]
		if !ok {
			continue
		}
		delete(bodyMap, cf.key)

		if cf.storesChildren {
			items, err := toList(raw)
			if err != nil {
				return nil, compileerr.New(compileerr.MalformedNode, "", "%s.%s: %v", key, cf.key, err)
			}
			for _, item := range items {
				child, err := Normalize(item)
				if err != nil {
					return nil, err
				}
				node.Children = append(node.Children, child)
			}
			continue
		}

		if cf.list {
			items, err := toList(raw)
			if err != nil {
				return nil, compileerr.New(compileerr.MalformedNode, "", "%s.%s: %v", key, cf.key, err)
			}
			nodes := make([]*ir.Node, 0, len(items))
			for _, item := range items {
				child, err := normalizeWorkerLike(item)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, child)
			}
			node.Params[cf.key] = nodes
		} else {
			child, err := normalizeWorkerLike(raw)
			if err != nil {
				return nil, err
			}
			node.Params[cf.key] = child
		}
	}

	for k, v := range bodyMap {
		node.Params[k] = v
	}
	return node, nil
}

// normalizeWorkerLike accepts one of: a plain agent-name string, a
// bare mapping of worker params (agent/briefing/...), or a full
// "{worker: {...}}" node mapping, and always returns a *ir.Node with
// OpCode worker. This is the shorthand spec.md §4.2/§8-S1 describes
// ("generator=D") without forcing every author to write out "worker:".
func normalizeWorkerLike(raw any) (*ir.Node, error) {
	switch v := raw.(type) {
	case string:
		return &ir.Node{OpCode: ir.OpWorker, Params: map[string]any{"agent": v}}, nil
	case Tree:
		if body, ok := v["worker"]; ok && len(v) == 1 {
			return Normalize(Tree{"worker": body})
		}
		return &ir.Node{OpCode: ir.OpWorker, Params: cloneMap(v)}, nil
	default:
		return nil, compileerr.New(compileerr.MalformedNode, "", "expected agent name or mapping, got %T", raw)
	}
}

func toList(v any) ([]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	return list, nil
}

func toStringSlice(v any) ([]string, error) {
	list, err := toList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func cloneMap(m Tree) Tree {
	out := make(Tree, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m Tree) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
