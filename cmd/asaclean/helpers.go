package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/internal/cache"
	"github.com/panbanda/asaclean/internal/output"
	svc "github.com/panbanda/asaclean/internal/service/cleanup"
	"github.com/panbanda/asaclean/pkg/analyzer/cleanup"
	"github.com/panbanda/asaclean/pkg/config"
	"github.com/spf13/cobra"
)

// loadConfig loads the configuration named by --config or found in the
// standard locations.
func loadConfig() (*config.Config, error) {
	var opts []config.LoadOption
	if cfgFile != "" {
		opts = append(opts, config.WithPath(cfgFile))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// addCleanupFlags registers the flags that override [cleanup] settings.
func addCleanupFlags(cmd *cobra.Command) {
	cmd.Flags().String("match", "", "Reference matching: substring or token (default from config)")
	cmd.Flags().Bool("fixpoint", false, "Repeat the category passes until nothing else becomes unused")
	cmd.Flags().Bool("strict", false, "Fail on malformed declaration lines instead of skipping them")
	cmd.Flags().StringSlice("protect", nil, "Names that are never removed (added to cleanup.protected_names)")
	cmd.Flags().Bool("no-cache", false, "Disable result caching")
}

// addOutputFlags registers the flags that override [output] settings.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "", "Report format: text, json, markdown, toon (default from config)")
	cmd.Flags().String("out-dir", "", "Directory for the report and pruned configuration (default: next to the input)")
	cmd.Flags().Bool("dry-run", false, "Print the report and write nothing")
	cmd.Flags().Bool("no-config", false, "Write only the report, not the pruned configuration")
}

// applyFlags copies changed command flags onto cfg and validates the result.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("match") {
		cfg.Cleanup.MatchMode, _ = flags.GetString("match")
	}
	if flags.Changed("fixpoint") {
		cfg.Cleanup.Fixpoint, _ = flags.GetBool("fixpoint")
	}
	if flags.Changed("strict") {
		cfg.Cleanup.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("protect") {
		names, _ := flags.GetStringSlice("protect")
		cfg.Cleanup.ProtectedNames = append(cfg.Cleanup.ProtectedNames, names...)
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Lookup("out-dir") != nil && flags.Changed("out-dir") {
		cfg.Output.Dir, _ = flags.GetString("out-dir")
	}
	if flags.Lookup("no-config") != nil && flags.Changed("no-config") {
		noConfig, _ := flags.GetBool("no-config")
		cfg.Output.WriteConfig = !noConfig
	}
	return cfg.Validate()
}

// newService builds a cleanup service from the effective configuration.
func newService(cmd *cobra.Command, cfg *config.Config) (*svc.Service, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled && !noCache)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return svc.New(svc.WithConfig(cfg), svc.WithCache(c)), nil
}

// warnMatchMode flags token matching as a change from the default results.
func warnMatchMode(cfg *config.Config) {
	if mode, _ := cleanup.ParseMatchMode(cfg.Cleanup.MatchMode); mode == cleanup.MatchToken {
		fmt.Fprintln(os.Stderr, color.YellowString("Token matching enabled: names are matched as whole words, results can differ from the default substring matching"))
	}
}

// warnMalformed prints one warning per skipped declaration line.
func warnMalformed(path string, res *cleanup.Result) {
	for _, m := range res.Malformed {
		fmt.Fprintln(os.Stderr, color.YellowString("%s: skipped malformed %s declaration at %s", path, m.Kind, m))
	}
}

func getFormat(cmd *cobra.Command, cfg *config.Config) output.Format {
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		return output.ParseFormat(f.Value.String())
	}
	return output.ParseFormat(cfg.Output.Format)
}

func getOutputFile(cmd *cobra.Command) string {
	outputFile, _ := cmd.Flags().GetString("output")
	return outputFile
}

// reportError prints a command failure with a hint for the known error types.
func reportError(err error) {
	var malformed *cleanup.MalformedLineError
	var readErr *svc.ReadError
	var writeErr *svc.WriteError

	switch {
	case errors.As(err, &malformed):
		color.Red("Malformed declarations found (strict mode):")
		for _, m := range malformed.Lines {
			fmt.Fprintf(os.Stderr, "  - %s\n", m)
		}
		fmt.Fprintln(os.Stderr, "Fix the lines or run without --strict to skip them.")
	case errors.As(err, &readErr):
		color.Red("Cannot read %s: %v", readErr.Path, readErr.Err)
	case errors.As(err, &writeErr):
		color.Red("Cannot write %s: %v", writeErr.Path, writeErr.Err)
	default:
		color.Red("Error: %v", err)
	}
}

// plural returns word with an s unless n is one.
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
