package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/internal/output"
	"github.com/panbanda/asaclean/internal/progress"
	svc "github.com/panbanda/asaclean/internal/service/cleanup"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <config-file>",
	Short: "Remove unused objects from a configuration",
	Long: `Analyzes a firewall configuration, removes every unused group policy,
access list, network object-group and network object together with its
child lines, and writes two files next to the input:

  <base>-CLEANUP-<timestamp>.txt   removal commands per category
  <base>-PRUNED-<timestamp>.cfg    the configuration without the unused objects

<base> is the input file name up to its first dot.

Examples:
  asaclean clean edge.cfg
  asaclean clean edge.cfg --match token --fixpoint
  asaclean clean edge.cfg --dry-run -f markdown
  asaclean clean edge.cfg --ref HEAD~1 --out-dir reports/`,
	RunE: runClean,
}

func init() {
	addCleanupFlags(cleanCmd)
	addOutputFlags(cleanCmd)
	cleanCmd.Flags().StringP("output", "o", "", "Report file path (overrides the generated name)")
	cleanCmd.Flags().String("ref", "", "Read the configuration at a git revision instead of the working tree")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}
	if len(args) > 1 {
		return fmt.Errorf("clean takes one configuration file, got %d (use batch for several)", len(args))
	}
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	warnMatchMode(cfg)

	service, err := newService(cmd, cfg)
	if err != nil {
		return err
	}

	ref, _ := cmd.Flags().GetString("ref")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	format := getFormat(cmd, cfg)

	label := "Cleaning " + filepath.Base(path)
	var tracker *progress.Tracker
	if cfg.Cleanup.Fixpoint {
		tracker = progress.NewSpinner(label)
	} else {
		tracker = progress.NewTracker(label, len(cleanup.DefaultCategories()))
	}

	out, err := service.Clean(cmd.Context(), path, svc.Options{
		Ref:     ref,
		NoCache: noCache,
		OnPass:  func(k cleanup.Kind) { tracker.Step(k.String()) },
	})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()
	warnMalformed(path, out.Result)

	if ref != "" {
		fmt.Fprintf(os.Stderr, "Read %s from %s\n", path, out.Source)
	}

	if dryRun {
		formatter, err := output.NewFormatter(format, getOutputFile(cmd), cfg.Output.Color)
		if err != nil {
			return err
		}
		defer formatter.Close()
		return formatter.Output(output.NewCleanupReport(path, out.Result, cleanup.DefaultCategories()))
	}

	artifacts, err := service.WriteArtifacts(out, svc.WriteOptions{
		ReportPath: getOutputFile(cmd),
		Format:     format,
	})
	if err != nil {
		return err
	}

	color.Green("Report written to %s", artifacts.Report)
	if artifacts.Config != "" {
		color.Green("Pruned configuration written to %s", artifacts.Config)
	}
	printSummary(out.Result, cfg.Output.Color)
	return nil
}

// printSummary prints the per-category summary table to stdout.
func printSummary(res *cleanup.Result, colored bool) {
	fmt.Println()
	if err := output.SummaryTable(res).RenderText(os.Stdout, colored); err != nil {
		color.Red("Failed to render summary: %v", err)
		return
	}
	s := res.Summary
	fmt.Printf("Removed %s and %s.\n", plural(s.TotalRemoved, "object"), plural(s.InputLines-s.OutputLines, "line"))
	switch {
	case res.Fixpoint && res.Converged:
		fmt.Printf("Converged after %s.\n", plural(s.Cycles, "cycle"))
	case res.Fixpoint:
		color.Yellow("Stopped after %s without converging; raise cleanup.max_cycles or run clean again.", plural(s.Cycles, "cycle"))
	}
}
