package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	svc "github.com/panbanda/asaclean/internal/service/cleanup"
	"github.com/panbanda/asaclean/pkg/config"
	"github.com/panbanda/asaclean/pkg/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <config-file...>",
	Short: "Re-run clean whenever a configuration changes",
	Long: `Cleans each file once, then watches them and cleans again whenever a
file's content changes. Saves that leave the content unchanged are ignored.

Examples:
  asaclean watch edge.cfg
  asaclean watch edge.cfg core.cfg --dry-run --match token`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	addCleanupFlags(watchCmd)
	addOutputFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 0, "Wait this long after the last change (default from watch.debounce_ms)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	debounce := cfg.DebounceDuration()
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	watcher, err := watch.NewWatcher(args, debounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	run := func(path string) {
		if err := cleanOnce(cmd.Context(), cmd, service, cfg, path); err != nil {
			reportError(err)
		}
	}

	for _, path := range watcher.Files() {
		run(path)
	}
	watcher.SetCallback(run)

	color.Cyan("Watching %s (Ctrl+C to stop)", plural(len(watcher.Files()), "file"))
	err = watcher.Start(cmd.Context())
	fmt.Println("\nStopping watch...")
	if err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}

// cleanOnce cleans one file for the watch loop. Results are never cached
// because the content has just changed.
func cleanOnce(ctx context.Context, cmd *cobra.Command, service *svc.Service, cfg *config.Config, path string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	out, err := service.Clean(ctx, path, svc.Options{NoCache: true})
	if err != nil {
		return err
	}
	warnMalformed(path, out.Result)

	stamp := time.Now().Format("15:04:05")
	s := out.Result.Summary
	if dryRun {
		fmt.Printf("[%s] %s: %s unused\n", stamp, path, plural(s.TotalRemoved, "object"))
		return nil
	}

	artifacts, err := service.WriteArtifacts(out, svc.WriteOptions{Format: getFormat(cmd, cfg)})
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %s: removed %s, report %s\n", stamp, path, plural(s.TotalRemoved, "object"), artifacts.Report)
	return nil
}
