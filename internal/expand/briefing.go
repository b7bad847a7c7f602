package expand

import "odlc/internal/ir"

// briefingContext accumulates instruction fields visible at a point in
// the tree: global defaults plus per-agent overrides, following
// spec.md §4.4's Global < Agent-Specific < System precedence. System
// fields are supplied separately at apply time so they always win.
type briefingContext struct {
	global   map[string]any
	perAgent map[string]map[string]any
}

// resolve merges global, then this agent's override, then system
// fields (which cannot be shadowed by anything the author wrote).
func (c briefingContext) resolve(agent string, system map[string]any) map[string]any {
	merged := map[string]any{}
	for k, v := range c.global {
		merged[k] = v
	}
	for k, v := range c.perAgent[agent] {
		merged[k] = v
	}
	for k, v := range system {
		merged[k] = v
	}
	return merged
}

// extend layers local on top of c, returning a new context; neither
// argument is mutated.
func (c briefingContext) extend(local briefingContext) briefingContext {
	out := briefingContext{global: map[string]any{}, perAgent: map[string]map[string]any{}}
	for k, v := range c.global {
		out.global[k] = v
	}
	for a, m := range c.perAgent {
		cp := make(map[string]any, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out.perAgent[a] = cp
	}
	for k, v := range local.global {
		out.global[k] = v
	}
	for a, m := range local.perAgent {
		if out.perAgent[a] == nil {
			out.perAgent[a] = map[string]any{}
		}
		for k, v := range m {
			out.perAgent[a][k] = v
		}
	}
	return out
}

// briefingFromNode reads one "briefing" sibling entry (surface.OpBriefing,
// referenced here only by its string tag so this package does not
// import internal/surface) into a single-source briefingContext: an "agent"
// key scopes it to that agent, its absence makes it global.
func briefingFromNode(n *ir.Node) briefingContext {
	fields := map[string]any{}
	var agent string
	for k, v := range n.Params {
		if k == "agent" {
			agent, _ = v.(string)
			continue
		}
		fields[k] = v
	}
	if agent == "" {
		return briefingContext{global: fields}
	}
	return briefingContext{perAgent: map[string]map[string]any{agent: fields}}
}

// briefingFromParam reads a sugar node's inline "briefing" param, shaped
// {global: {...}, agents: {name: {...}}} — the form generate_team,
// ensemble, and fan_out accept since they have no "contents" list to
// carry sibling briefing entries in.
func briefingFromParam(raw any) briefingContext {
	m, ok := raw.(map[string]any)
	if !ok {
		return briefingContext{}
	}
	ctx := briefingContext{global: map[string]any{}, perAgent: map[string]map[string]any{}}
	if g, ok := m["global"].(map[string]any); ok {
		ctx.global = g
	}
	if agents, ok := m["agents"].(map[string]any); ok {
		for name, v := range agents {
			if fields, ok := v.(map[string]any); ok {
				ctx.perAgent[name] = fields
			}
		}
	}
	return ctx
}

// applyBriefing merges ctx and system into n.Params["briefing"] keyed
// on n's own "agent" param; a no-op for nodes without one.
func applyBriefing(n *ir.Node, ctx briefingContext, system map[string]any) {
	agent, _ := n.Params["agent"].(string)
	if agent == "" {
		return
	}
	merged := ctx.resolve(agent, system)
	if len(merged) == 0 {
		return
	}
	n.Params["briefing"] = merged
}
