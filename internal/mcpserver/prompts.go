package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArgument is one argument a prompt accepts, declared in its
// frontmatter.
type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

type promptFrontmatter struct {
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
}

// promptDefinition is an embedded prompt with its body compiled as a
// template over the argument values.
type promptDefinition struct {
	Name        string
	Description string
	Arguments   []promptArgument
	body        *template.Template
}

// loadPrompts parses every embedded prompt, sorted by name.
func loadPrompts() ([]promptDefinition, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, err
	}

	var defs []promptDefinition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return nil, err
		}
		def, err := parsePrompt(strings.TrimSuffix(entry.Name(), ".md"), content)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

func parsePrompt(name string, content []byte) (promptDefinition, error) {
	fm, body, err := parseFrontmatter(content)
	if err != nil {
		return promptDefinition{}, fmt.Errorf("prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return promptDefinition{}, fmt.Errorf("prompt %s: %w", name, err)
	}
	return promptDefinition{
		Name:        name,
		Description: fm.Description,
		Arguments:   fm.Arguments,
		body:        tmpl,
	}, nil
}

// parseFrontmatter splits YAML frontmatter from the prompt body. Content
// without frontmatter is all body.
func parseFrontmatter(content []byte) (promptFrontmatter, string, error) {
	var fm promptFrontmatter
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, string(content), nil
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return fm, string(content), nil
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, strings.TrimPrefix(string(rest[end+5:]), "\n"), nil
}

// registerPrompts registers every embedded prompt with its arguments.
func (s *Server) registerPrompts() {
	defs, err := loadPrompts()
	if err != nil {
		s.logger.Warn("prompts not registered", "error", err)
		return
	}

	for _, def := range defs {
		args := make([]*mcp.PromptArgument, 0, len(def.Arguments))
		for _, a := range def.Arguments {
			args = append(args, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(&mcp.Prompt{
			Name:        def.Name,
			Description: def.Description,
			Arguments:   args,
		}, s.makePromptHandler(def))
	}
}

// promptDefaults are argument values taken from the server configuration
// when the client leaves them out.
func (s *Server) promptDefaults() map[string]string {
	return map[string]string{
		"match_mode": s.config.Cleanup.MatchMode,
	}
}

func (s *Server) makePromptHandler(def promptDefinition) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var given map[string]string
		if req != nil && req.Params != nil {
			given = req.Params.Arguments
		}

		text, err := s.renderPrompt(def, given)
		if err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: def.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: text},
				},
			},
		}, nil
	}
}

// renderPrompt fills the prompt body. Every declared argument resolves to the
// given value, its frontmatter default, the server configuration, or "".
func (s *Server) renderPrompt(def promptDefinition, given map[string]string) (string, error) {
	defaults := s.promptDefaults()
	values := make(map[string]string, len(def.Arguments))

	for _, a := range def.Arguments {
		v := strings.TrimSpace(given[a.Name])
		if v == "" {
			v = a.Default
		}
		if v == "" {
			v = defaults[a.Name]
		}
		if v == "" && a.Required {
			return "", fmt.Errorf("prompt %s: missing required argument %q", def.Name, a.Name)
		}
		if a.Name == "match_mode" {
			mode, err := cleanup.ParseMatchMode(v)
			if err != nil {
				return "", fmt.Errorf("prompt %s: %w", def.Name, err)
			}
			v = mode.String()
		}
		values[a.Name] = v
	}

	var buf bytes.Buffer
	if err := def.body.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("prompt %s: %w", def.Name, err)
	}
	return buf.String(), nil
}
