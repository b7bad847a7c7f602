// Package mcp exposes the ODL compiler over the Model Context Protocol
// so an agent can validate or compile an organization definition
// without shelling out to the CLI.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"odlc/internal/assemble"
	"odlc/internal/compileerr"
	"odlc/internal/compiler"
	"odlc/internal/loader"
	"odlc/internal/logging"
)

// Server wraps the MCP SDK server. Tools are registered in NewServer;
// callers run it with s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}).
type Server struct {
	MCPServer *sdkmcp.Server
}

// NewServer creates an MCP server exposing the compiler's "check" and
// "compile" operations.
func NewServer(name, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: name, Version: version},
			nil,
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check",
		Description: "Run an organization definition through every compile stage without returning the IR. Returns the diagnostics of the first failing stage.",
	}, s.handleCheck)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "compile",
		Description: "Compile an organization definition to its assembled IR tree, or return the batched diagnostics if compilation fails.",
	}, s.handleCompile)
}

type checkInput struct {
	Source string `json:"source" jsonschema:"YAML organization definition, single top-level mapping"`
}

type diagnostic struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

type checkOutput struct {
	Valid       bool         `json:"valid"`
	Diagnostics []diagnostic `json:"diagnostics,omitempty"`
}

type compileInput struct {
	Source string `json:"source" jsonschema:"YAML organization definition, single top-level mapping"`
}

type compileOutput struct {
	OK          bool         `json:"ok"`
	IR          *assemble.IR `json:"ir,omitempty"`
	Diagnostics []diagnostic `json:"diagnostics,omitempty"`
}

func (s *Server) handleCheck(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkInput) (*sdkmcp.CallToolResult, checkOutput, error) {
	logger := logging.New("mcp")
	tree, err := loader.Load([]byte(input.Source))
	if err != nil {
		return nil, checkOutput{}, fmt.Errorf("parse source: %w", err)
	}

	_, report := compiler.Compile(ctx, tree, &compiler.LogObserver{Logger: logger})
	if report == nil {
		return nil, checkOutput{Valid: true}, nil
	}
	return nil, checkOutput{Valid: false, Diagnostics: toDiagnostics(report)}, nil
}

func (s *Server) handleCompile(ctx context.Context, _ *sdkmcp.CallToolRequest, input compileInput) (*sdkmcp.CallToolResult, compileOutput, error) {
	logger := logging.New("mcp")
	tree, err := loader.Load([]byte(input.Source))
	if err != nil {
		return nil, compileOutput{}, fmt.Errorf("parse source: %w", err)
	}

	result, report := compiler.Compile(ctx, tree, &compiler.LogObserver{Logger: logger})
	if report != nil {
		return nil, compileOutput{OK: false, Diagnostics: toDiagnostics(report)}, nil
	}
	return nil, compileOutput{OK: true, IR: result}, nil
}

func toDiagnostics(report *compileerr.Report) []diagnostic {
	out := make([]diagnostic, 0, len(report.Errors))
	for _, e := range report.Errors {
		out = append(out, diagnostic{
			Stage:   e.Kind.Stage(),
			Kind:    string(e.Kind),
			Path:    e.Path,
			Message: e.Message,
		})
	}
	return out
}
