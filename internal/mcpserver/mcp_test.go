package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/asaclean/internal/logging"
	"github.com/panbanda/asaclean/internal/output"
	"github.com/panbanda/asaclean/pkg/config"
)

const testConfig = `object network WEB
 host 10.0.0.10
object network WEB_OLD
 host 10.0.0.11
object network UNUSED
 host 10.0.0.99
access-list OUTSIDE_IN extended permit tcp any object WEB eq 443
access-group OUTSIDE_IN in interface outside
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edge.cfg")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func newTestServer() *Server {
	return NewServer("1.0.0-test", WithLogger(logging.Discard()))
}

func resultText(t *testing.T, result *mcp.CallToolResult, i int) string {
	t.Helper()
	if len(result.Content) <= i {
		t.Fatalf("result has %d content blocks, want more than %d", len(result.Content), i)
	}
	text, ok := result.Content[i].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[%d] is %T, want *mcp.TextContent", i, result.Content[i])
	}
	return text.Text
}

func TestServerCreation(t *testing.T) {
	server := newTestServer()
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned an incomplete server")
	}
	if server.config == nil {
		t.Error("server config should default")
	}
}

func TestServerCreationEmptyVersion(t *testing.T) {
	if NewServer("") == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"cleanup": describeCleanup,
		"graph":   describeReferenceGraph,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := map[string]output.Format{
		"":         output.FormatTOON,
		"toon":     output.FormatTOON,
		"json":     output.FormatJSON,
		"markdown": output.FormatMarkdown,
		"md":       output.FormatMarkdown,
		"text":     output.FormatText,
		"xml":      output.FormatTOON,
	}
	for in, want := range tests {
		if got := getFormat(in); got != want {
			t.Errorf("getFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("boom")
	if err != nil {
		t.Fatalf("toolError() error: %v", err)
	}
	if !result.IsError {
		t.Error("IsError should be true")
	}
	if got := resultText(t, result, 0); got != "Error: boom" {
		t.Errorf("text = %q", got)
	}
}

func TestHandleCleanup(t *testing.T) {
	path := writeTestConfig(t)
	s := newTestServer()

	result, _, err := s.handleCleanup(context.Background(), nil, CleanupInput{Path: path, Format: "json"})
	if err != nil {
		t.Fatalf("handleCleanup() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("handleCleanup() tool error: %s", resultText(t, result, 0))
	}

	var data output.CleanupData
	if err := json.Unmarshal([]byte(resultText(t, result, 0)), &data); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if data.MatchMode != "substring" {
		t.Errorf("match_mode = %s, want substring", data.MatchMode)
	}
	// WEB_OLD is unused; WEB is kept because WEB_OLD mentions it.
	if len(data.Directives) != 2 {
		t.Fatalf("directives = %v, want 2", data.Directives)
	}
	if data.Directives[0].Command != "no object network WEB_OLD" || data.Directives[1].Command != "no object network UNUSED" {
		t.Errorf("directives = %v", data.Directives)
	}

	pruned := resultText(t, result, 1)
	if strings.Contains(pruned, "UNUSED") || !strings.Contains(pruned, "object network WEB\n") {
		t.Errorf("pruned config = %q", pruned)
	}
}

func TestHandleCleanupTextFormat(t *testing.T) {
	path := writeTestConfig(t)

	result, _, err := newTestServer().handleCleanup(context.Background(), nil, CleanupInput{Path: path, Format: "text"})
	if err != nil {
		t.Fatalf("handleCleanup() error: %v", err)
	}
	text := resultText(t, result, 0)
	if !strings.HasPrefix(text, "Group Policy Removal Lines:\n") {
		t.Errorf("text report = %q", text)
	}
}

func TestHandleCleanupOverrides(t *testing.T) {
	path := writeTestConfig(t)
	s := newTestServer()

	result, _, err := s.handleCleanup(context.Background(), nil, CleanupInput{Path: path, MatchMode: "fuzzy"})
	if err != nil {
		t.Fatalf("handleCleanup() error: %v", err)
	}
	if !result.IsError {
		t.Error("unknown match mode should be a tool error")
	}

	if _, _, err := s.handleCleanup(context.Background(), nil, CleanupInput{Path: path, MatchMode: "token", Fixpoint: true}); err != nil {
		t.Fatalf("handleCleanup() error: %v", err)
	}
	if s.config.Cleanup.MatchMode != "substring" || s.config.Cleanup.Fixpoint {
		t.Error("tool overrides must not leak into the server config")
	}
}

func TestHandleCleanupErrors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name  string
		input CleanupInput
	}{
		{"missing path", CleanupInput{}},
		{"nonexistent file", CleanupInput{Path: "/nonexistent/edge.cfg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := s.handleCleanup(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("handleCleanup() error: %v", err)
			}
			if !result.IsError {
				t.Error("expected a tool error")
			}
		})
	}
}

func TestHandleCleanupStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cfg")
	if err := os.WriteFile(path, []byte("access-list\n"+testConfig), 0644); err != nil {
		t.Fatal(err)
	}

	result, _, err := newTestServer().handleCleanup(context.Background(), nil, CleanupInput{Path: path, Strict: true})
	if err != nil {
		t.Fatalf("handleCleanup() error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result, 0), "malformed") {
		t.Errorf("strict run should fail on malformed lines: %v", result.Content)
	}
}

func TestHandleReferenceGraph(t *testing.T) {
	path := writeTestConfig(t)

	result, _, err := newTestServer().handleReferenceGraph(context.Background(), nil, GraphInput{Path: path, Format: "json"})
	if err != nil {
		t.Fatalf("handleReferenceGraph() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(t, result, 0))
	}

	var data graphData
	if err := json.Unmarshal([]byte(resultText(t, result, 0)), &data); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if data.MatchMode != "token" {
		t.Errorf("match_mode = %s, want token", data.MatchMode)
	}
	if len(data.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(data.Nodes))
	}
	reachable := make(map[string]bool)
	for _, n := range data.Nodes {
		reachable[n.Name] = n.Reachable
	}
	if !reachable["OUTSIDE_IN"] || !reachable["WEB"] || reachable["UNUSED"] || reachable["WEB_OLD"] {
		t.Errorf("reachable = %v", reachable)
	}
	if !strings.HasPrefix(data.Mermaid, "graph LR") {
		t.Errorf("mermaid = %q", data.Mermaid)
	}
}

func TestHandleReferenceGraphErrors(t *testing.T) {
	s := newTestServer()
	path := writeTestConfig(t)

	for _, input := range []GraphInput{
		{},
		{Path: "/nonexistent/edge.cfg"},
		{Path: path, MatchMode: "fuzzy"},
	} {
		result, _, err := s.handleReferenceGraph(context.Background(), nil, input)
		if err != nil {
			t.Fatalf("handleReferenceGraph(%+v) error: %v", input, err)
		}
		if !result.IsError {
			t.Errorf("handleReferenceGraph(%+v) should be a tool error", input)
		}
	}
}

func TestServerSession(t *testing.T) {
	ctx := context.Background()
	path := writeTestConfig(t)
	cfg := config.DefaultConfig()
	cfg.Cleanup.ProtectedNames = []string{"UNUSED"}
	s := NewServer("test", WithConfig(cfg), WithLogger(logging.Discard()))

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := s.server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server Connect() error: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	if !names["cleanup_config"] || !names["reference_graph"] {
		t.Errorf("tools = %v", names)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "cleanup_config",
		Arguments: map[string]any{"path": path, "format": "text"},
	})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	text := resultText(t, result, 0)
	if strings.Contains(text, "UNUSED") {
		t.Errorf("protected name should not be removed:\n%s", text)
	}
	if !strings.Contains(text, "no object network WEB_OLD") {
		t.Errorf("report missing WEB_OLD:\n%s", text)
	}
}

func TestParseFrontmatter(t *testing.T) {
	content := "---\ndescription: Review things\narguments:\n  - name: path\n    required: true\n  - name: ref\n    default: HEAD\n---\nReview {{.path}}.\n"
	fm, body, err := parseFrontmatter([]byte(content))
	if err != nil {
		t.Fatalf("parseFrontmatter() error: %v", err)
	}
	if fm.Description != "Review things" || body != "Review {{.path}}.\n" {
		t.Errorf("parseFrontmatter() = %+v, %q", fm, body)
	}
	if len(fm.Arguments) != 2 || !fm.Arguments[0].Required || fm.Arguments[1].Default != "HEAD" {
		t.Errorf("arguments = %+v", fm.Arguments)
	}

	fm, body, err = parseFrontmatter([]byte("no frontmatter"))
	if err != nil || fm.Description != "" || body != "no frontmatter" {
		t.Errorf("parseFrontmatter() = %+v, %q, %v", fm, body, err)
	}

	if _, _, err := parseFrontmatter([]byte("---\narguments: [\n---\nbody\n")); err == nil {
		t.Error("invalid yaml frontmatter should error")
	}
}

func TestLoadPrompts(t *testing.T) {
	defs, err := loadPrompts()
	if err != nil {
		t.Fatalf("loadPrompts() error: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "explain-object" || defs[1].Name != "review-cleanup" {
		t.Fatalf("prompts = %+v", defs)
	}
	for _, def := range defs {
		if def.Description == "" {
			t.Errorf("%s: description is empty", def.Name)
		}
		if len(def.Arguments) == 0 || def.Arguments[0].Name != "path" || !def.Arguments[0].Required {
			t.Errorf("%s: first argument should be the required path, got %+v", def.Name, def.Arguments)
		}
	}
}

func findPrompt(t *testing.T, name string) promptDefinition {
	t.Helper()
	defs, err := loadPrompts()
	if err != nil {
		t.Fatalf("loadPrompts() error: %v", err)
	}
	for _, def := range defs {
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("prompt %s not found", name)
	return promptDefinition{}
}

func TestRenderPrompt(t *testing.T) {
	s := newTestServer()
	review := findPrompt(t, "review-cleanup")

	tests := []struct {
		name    string
		args    map[string]string
		want    []string
		notWant []string
	}{
		{
			name: "config_default_mode",
			args: map[string]string{"path": "/configs/edge.cfg"},
			want: []string{
				"Review the firewall configuration at `/configs/edge.cfg`.",
				"`match_mode: substring`",
				"`match_mode: token` and compare",
			},
			notWant: []string{"git revision", "ref:"},
		},
		{
			name: "token_at_ref",
			args: map[string]string{"path": "edge.cfg", "match_mode": "TOKEN", "ref": "v1.2"},
			want: []string{
				"as of git revision `v1.2`",
				"`match_mode: token`, `ref: v1.2`",
				"`match_mode: substring` and compare",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := s.renderPrompt(review, tt.args)
			if err != nil {
				t.Fatalf("renderPrompt() error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("prompt missing %q:\n%s", w, text)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(text, w) {
					t.Errorf("prompt should not contain %q:\n%s", w, text)
				}
			}
		})
	}

	if _, err := s.renderPrompt(review, nil); err == nil || !strings.Contains(err.Error(), `"path"`) {
		t.Errorf("missing path error = %v", err)
	}
	if _, err := s.renderPrompt(review, map[string]string{"path": "edge.cfg", "match_mode": "fuzzy"}); err == nil {
		t.Error("unknown match mode should error")
	}
}

func TestRenderPrompt_ServerConfigDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cleanup.MatchMode = "token"
	s := NewServer("test", WithConfig(cfg), WithLogger(logging.Discard()))

	text, err := s.renderPrompt(findPrompt(t, "explain-object"), map[string]string{"path": "edge.cfg", "name": "WEB"})
	if err != nil {
		t.Fatalf("renderPrompt() error: %v", err)
	}
	if !strings.Contains(text, "Explain what happens to `WEB` when `edge.cfg` is cleaned with `match_mode: token`.") {
		t.Errorf("prompt = %s", text)
	}
	if strings.Contains(text, "substring matches") {
		t.Error("substring hint should only appear in substring mode")
	}
}

func TestPromptHandler(t *testing.T) {
	s := newTestServer()
	def := findPrompt(t, "review-cleanup")

	req := &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Name:      def.Name,
			Arguments: map[string]string{"path": "edge.cfg"},
		},
	}
	result, err := s.makePromptHandler(def)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.Description != def.Description {
		t.Errorf("description = %q", result.Description)
	}
	if len(result.Messages) != 1 || result.Messages[0].Role != "user" {
		t.Fatalf("messages = %v", result.Messages)
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "`cleanup_config` with `path: edge.cfg`") {
		t.Errorf("prompt text = %s", text)
	}

	if _, err := s.makePromptHandler(def)(context.Background(), &mcp.GetPromptRequest{}); err == nil {
		t.Error("request without arguments should fail on the required path")
	}
}

func TestPromptSession(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := s.server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server Connect() error: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error: %v", err)
	}
	defer session.Close()

	prompts, err := session.ListPrompts(ctx, nil)
	if err != nil {
		t.Fatalf("ListPrompts() error: %v", err)
	}
	args := make(map[string]int)
	for _, p := range prompts.Prompts {
		args[p.Name] = len(p.Arguments)
	}
	if args["review-cleanup"] != 3 || args["explain-object"] != 3 {
		t.Errorf("prompt arguments = %v", args)
	}

	result, err := session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "explain-object",
		Arguments: map[string]string{"path": "edge.cfg", "name": "UNUSED"},
	})
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "removal command for `UNUSED`") {
		t.Errorf("prompt text = %s", text)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if m.Name != "io.github.panbanda/asaclean" || m.Version != "1.2.3" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Packages) != 1 || m.Packages[0].Identifier != "ghcr.io/panbanda/asaclean:1.2.3" || m.Packages[0].Transport.Type != "stdio" {
		t.Errorf("packages = %+v", m.Packages)
	}

	meta, ok := m.Meta[publisherKey]
	if !ok {
		t.Fatalf("_meta missing %s: %s", publisherKey, data)
	}
	if len(meta.Tools) != 2 || meta.Tools[0].Name != toolCleanup || meta.Tools[1].Name != toolReferenceGraph {
		t.Errorf("tools = %+v", meta.Tools)
	}
	if !strings.HasPrefix(meta.Tools[0].Summary, "Finds named objects") || strings.Contains(meta.Tools[0].Summary, "\n") {
		t.Errorf("tool summary = %q", meta.Tools[0].Summary)
	}
	if len(meta.Prompts) != 2 {
		t.Errorf("prompts = %+v", meta.Prompts)
	}
	wantCategories := []string{"group-policy", "access-list", "object-group network", "object network"}
	if strings.Join(meta.Categories, ",") != strings.Join(wantCategories, ",") {
		t.Errorf("categories = %v", meta.Categories)
	}

	data, err = GenerateManifest("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Error("empty version should default to 0.0.0")
	}
}

func TestManifestMatchesRegisteredTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := s.server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server Connect() error: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	registered := make(map[string]bool)
	for _, tool := range tools.Tools {
		registered[tool.Name] = true
	}

	data, err := GenerateManifest("1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	listed := m.Meta[publisherKey].Tools
	if len(listed) != len(registered) {
		t.Fatalf("manifest lists %d tools, server registers %d", len(listed), len(registered))
	}
	for _, tool := range listed {
		if !registered[tool.Name] {
			t.Errorf("manifest tool %s is not registered", tool.Name)
		}
	}
}
