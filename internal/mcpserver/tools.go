package mcpserver

import (
	"bytes"
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/asaclean/internal/output"
	svc "github.com/panbanda/asaclean/internal/service/cleanup"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/panbanda/asaclean/pkg/analyzer/refgraph"
	"github.com/panbanda/asaclean/pkg/conftree"
	"github.com/panbanda/asaclean/pkg/source"
)

// CleanupInput is the input of the cleanup_config tool.
type CleanupInput struct {
	Path      string `json:"path" jsonschema:"Path to the firewall configuration file."`
	Ref       string `json:"ref,omitempty" jsonschema:"Git revision to read the file at. Defaults to the working tree."`
	MatchMode string `json:"match_mode,omitempty" jsonschema:"How a line is recognized as a reference: substring (default) or token."`
	Fixpoint  bool   `json:"fixpoint,omitempty" jsonschema:"Repeat the category passes until nothing else becomes unused."`
	Strict    bool   `json:"strict,omitempty" jsonschema:"Fail instead of skipping malformed declaration lines."`
	Format    string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown, or text."`
}

// GraphInput is the input of the reference_graph tool.
type GraphInput struct {
	Path      string `json:"path" jsonschema:"Path to the firewall configuration file."`
	Ref       string `json:"ref,omitempty" jsonschema:"Git revision to read the file at. Defaults to the working tree."`
	MatchMode string `json:"match_mode,omitempty" jsonschema:"How a line is recognized as a reference: token (default) or substring."`
	Format    string `json:"format,omitempty" jsonschema:"Output format: toon (default) or json."`
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	case "text":
		return output.FormatText
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format, extra ...string) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	content := []mcp.Content{&mcp.TextContent{Text: text}}
	for _, e := range extra {
		content = append(content, &mcp.TextContent{Text: e})
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleCleanup(ctx context.Context, req *mcp.CallToolRequest, input CleanupInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		return toolError("path is required")
	}

	cfg := *s.config
	if input.MatchMode != "" {
		cfg.Cleanup.MatchMode = input.MatchMode
	}
	cfg.Cleanup.Fixpoint = cfg.Cleanup.Fixpoint || input.Fixpoint
	cfg.Cleanup.Strict = cfg.Cleanup.Strict || input.Strict
	if err := cfg.Validate(); err != nil {
		return toolError(err.Error())
	}

	service := svc.New(svc.WithConfig(&cfg), svc.WithLogger(s.logger))
	out, err := service.Clean(ctx, input.Path, svc.Options{Ref: input.Ref, NoCache: true})
	if err != nil {
		return toolError(err.Error())
	}

	report := output.NewCleanupReport(input.Path, out.Result, cleanup.DefaultCategories())
	pruned := conftree.Parse(out.Result.Lines).String()
	return toolResult(report, getFormat(input.Format), pruned)
}

// graphData is the serialized reference graph with its Mermaid rendering.
type graphData struct {
	MatchMode cleanup.MatchMode `json:"match_mode" toon:"match_mode"`
	Nodes     []refgraph.Node   `json:"nodes" toon:"nodes"`
	Edges     []refgraph.Edge   `json:"edges" toon:"edges"`
	Mermaid   string            `json:"mermaid" toon:"mermaid"`
}

func (s *Server) handleReferenceGraph(ctx context.Context, req *mcp.CallToolRequest, input GraphInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		return toolError("path is required")
	}

	mode := cleanup.MatchToken
	if input.MatchMode != "" {
		m, err := cleanup.ParseMatchMode(input.MatchMode)
		if err != nil {
			return toolError(err.Error())
		}
		mode = m
	}

	src, err := source.Open(input.Path, input.Ref, nil)
	if err != nil {
		return toolError(err.Error())
	}
	content, err := src.Read(input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	g := refgraph.New(
		refgraph.WithMatchMode(mode),
		refgraph.WithProtected(s.config.Cleanup.ProtectedNames...),
	).Build(conftree.SplitLines(string(content)))

	format := output.FormatTOON
	if input.Format == "json" {
		format = output.FormatJSON
	}
	return toolResult(graphData{
		MatchMode: g.MatchMode,
		Nodes:     g.Nodes,
		Edges:     g.Edges,
		Mermaid:   g.ToMermaid(),
	}, format)
}
