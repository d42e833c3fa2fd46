package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/internal/fileproc"
	"github.com/panbanda/asaclean/internal/output"
	"github.com/panbanda/asaclean/internal/progress"
	svc "github.com/panbanda/asaclean/internal/service/cleanup"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [path...]",
	Short: "Clean every configuration file under the given paths",
	Long: `Finds configuration files (by batch.extensions, .cfg .conf .txt by default)
under each directory, honoring .gitignore and batch.exclude, and cleans
them concurrently. Files named explicitly are always included.

Each file gets its own report and pruned configuration, exactly as with
clean. A summary table lists the result per file.

Examples:
  asaclean batch configs/
  asaclean batch configs/ --out-dir reports/ --workers 4
  asaclean batch site-a.cfg site-b.cfg --dry-run`,
	RunE: runBatch,
}

func init() {
	addCleanupFlags(batchCmd)
	addOutputFlags(batchCmd)
	batchCmd.Flags().StringP("output", "o", "", "Write the summary table to a file")
	batchCmd.Flags().Int("workers", 0, "Maximum concurrent files (default from config, 0 = 2x CPUs)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	warnMatchMode(cfg)

	service, err := newService(cmd, cfg)
	if err != nil {
		return err
	}

	files, err := service.Discover(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No configuration files found")
		return nil
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	tracker := progress.NewTracker("Cleaning configurations", len(files))
	results, errs := service.CleanFiles(cmd.Context(), files, svc.BatchOptions{
		Options:    svc.Options{NoCache: noCache},
		Write:      svc.WriteOptions{Format: getFormat(cmd, cfg)},
		DryRun:     dryRun,
		OnProgress: tracker.Tick,
	})
	tracker.FinishSuccess()

	for _, r := range results {
		warnMalformed(r.Path, r.Value.Outcome.Result)
	}

	formatter, err := output.NewFormatter(getFormat(cmd, cfg), getOutputFile(cmd), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(batchTable(results, errs)); err != nil {
		return err
	}

	if errs != nil {
		for _, e := range errs.Sorted() {
			color.Red("%s: %v", e.Path, e.Err)
		}
		return fmt.Errorf("%d of %d files failed", len(errs.Sorted()), len(files))
	}
	return nil
}

// batchTable summarizes a batch run, one row per file.
func batchTable(results []fileproc.Result[svc.BatchItem], errs *fileproc.ProcessingErrors) *output.Table {
	rows := make([][]string, 0, len(results))
	totalRemoved, totalLines := 0, 0

	for _, r := range results {
		s := r.Value.Outcome.Result.Summary
		lines := s.InputLines - s.OutputLines
		totalRemoved += s.TotalRemoved
		totalLines += lines

		report := r.Value.Artifacts.Report
		if report == "" {
			report = "-"
		} else {
			report = filepath.Base(report)
		}
		rows = append(rows, []string{
			r.Path,
			strconv.Itoa(s.TotalRemoved),
			strconv.Itoa(lines),
			strconv.Itoa(len(r.Value.Outcome.Result.Malformed)),
			report,
		})
	}
	if errs != nil {
		for _, e := range errs.Sorted() {
			rows = append(rows, []string{e.Path, "-", "-", "-", "failed"})
		}
	}

	return output.NewTable(
		"Batch Results",
		[]string{"File", "Removed", "Lines Removed", "Malformed", "Report"},
		rows,
		[]string{"Total", strconv.Itoa(totalRemoved), strconv.Itoa(totalLines), "", ""},
		nil,
	)
}
