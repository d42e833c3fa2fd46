package mcpserver

import (
	"encoding/json"
	"strings"

	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	publisherKey   = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the MCP registry entry (server.json) for asaclean.
type Manifest struct {
	Schema      string                   `json:"$schema"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Version     string                   `json:"version"`
	Repository  ManifestRepository       `json:"repository"`
	Packages    []ManifestPackage        `json:"packages"`
	Meta        map[string]PublisherMeta `json:"_meta,omitempty"`
}

// ManifestRepository points at the source repository.
type ManifestRepository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// ManifestPackage runs the server from the container image with the mcp
// subcommand over stdio.
type ManifestPackage struct {
	RegistryType     string             `json:"registryType"`
	Identifier       string             `json:"identifier"`
	PackageArguments []ManifestArgument `json:"packageArguments"`
	Transport        struct {
		Type string `json:"type"`
	} `json:"transport"`
}

// ManifestArgument is a command-line argument passed to the package.
type ManifestArgument struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PublisherMeta lists what the server offers, taken from the registered
// tools, the embedded prompts and the cleanup categories.
type PublisherMeta struct {
	Tools      []ManifestEntry `json:"tools"`
	Prompts    []ManifestEntry `json:"prompts"`
	Categories []string        `json:"categories"`
	MatchModes []string        `json:"matchModes"`
}

// ManifestEntry is a named capability with its one-line summary.
type ManifestEntry struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// GenerateManifest creates the MCP server manifest JSON.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	meta := PublisherMeta{
		MatchModes: []string{cleanup.MatchSubstring.String(), cleanup.MatchToken.String()},
	}
	for _, tool := range toolDefinitions() {
		meta.Tools = append(meta.Tools, ManifestEntry{Name: tool.Name, Summary: firstLine(tool.Description)})
	}
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		meta.Prompts = append(meta.Prompts, ManifestEntry{Name: p.Name, Summary: p.Description})
	}
	for _, cat := range cleanup.DefaultCategories() {
		meta.Categories = append(meta.Categories, cat.Keyword)
	}

	pkg := ManifestPackage{
		RegistryType:     "oci",
		Identifier:       "ghcr.io/panbanda/asaclean:" + version,
		PackageArguments: []ManifestArgument{{Type: "positional", Value: "mcp"}},
	}
	pkg.Transport.Type = "stdio"

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/asaclean",
		Description: "Finds and removes unused objects in Cisco ASA firewall configurations",
		Version:     version,
		Repository:  ManifestRepository{URL: "https://github.com/panbanda/asaclean", Source: "github"},
		Packages:    []ManifestPackage{pkg},
		Meta:        map[string]PublisherMeta{publisherKey: meta},
	}
	return json.MarshalIndent(manifest, "", "  ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
