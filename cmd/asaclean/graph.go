package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/internal/output"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/panbanda/asaclean/pkg/analyzer/refgraph"
	"github.com/panbanda/asaclean/pkg/conftree"
	"github.com/panbanda/asaclean/pkg/source"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:     "graph <config-file>",
	Aliases: []string{"refs"},
	Short:   "Show the reference graph between declared objects",
	Long: `Builds a graph with one node per declared group policy, access list,
object-group and object, and an edge A -> B when a line of A's declaration
block mentions B. Nodes no external reference leads to are marked unused;
they are what clean --fixpoint removes.

Examples:
  asaclean graph edge.cfg                 # Mermaid flowchart
  asaclean graph edge.cfg -f dot | dot -Tsvg > refs.svg
  asaclean graph edge.cfg -f json --match substring`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid, dot, markdown, json, toon")
	graphCmd.Flags().StringP("output", "o", "", "Write output to file")
	graphCmd.Flags().String("match", "token", "Reference matching: token or substring")
	graphCmd.Flags().String("ref", "", "Read the configuration at a git revision")
	graphCmd.Flags().Bool("unused", false, "Only list the IDs of unreachable objects")

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return cmd.Usage()
	}
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	matchFlag, _ := cmd.Flags().GetString("match")
	mode, err := cleanup.ParseMatchMode(matchFlag)
	if err != nil {
		return err
	}

	ref, _ := cmd.Flags().GetString("ref")
	src, err := source.Open(path, ref, nil)
	if err != nil {
		return err
	}
	content, err := src.Read(path)
	if err != nil {
		return err
	}

	g := refgraph.New(
		refgraph.WithMatchMode(mode),
		refgraph.WithProtected(cfg.Cleanup.ProtectedNames...),
	).Build(conftree.SplitLines(string(content)))

	outPath := getOutputFile(cmd)
	w := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if unused, _ := cmd.Flags().GetBool("unused"); unused {
		for _, id := range g.Unreachable() {
			fmt.Fprintln(w, id)
		}
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(format) {
	case "mermaid":
		_, err = io.WriteString(w, g.ToMermaid())
	case "markdown", "md":
		_, err = fmt.Fprintf(w, "# References: %s\n\n```mermaid\n%s```\n\nUnused: %d of %d objects\n",
			path, g.ToMermaid(), len(g.Unreachable()), len(g.Nodes))
	case "dot":
		var dot string
		dot, err = g.ToDOT()
		if err == nil {
			_, err = fmt.Fprintln(w, dot)
		}
	case "json", "toon":
		err = output.NewWriterFormatter(output.ParseFormat(format), w, false).Output(g)
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
	if err != nil {
		return err
	}

	if outPath != "" {
		color.Green("Graph written to %s", outPath)
	}
	return nil
}
