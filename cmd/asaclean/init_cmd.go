package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new asaclean configuration file",
	Long: `Creates a new asaclean.toml configuration file in the current directory
with the default settings. Use --output to specify a different location.

Examples:
  asaclean init                            # Creates asaclean.toml in current directory
  asaclean init -o .asaclean/asaclean.toml # Creates config in .asaclean directory
  asaclean init --force                    # Overwrite existing config file`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("output", "o", "asaclean.toml", "Output file path")
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Println("Edit this file to customize cleanup settings.")
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# asaclean configuration\n")
	buf.WriteString("# cleanup.match_mode: substring (default) or token\n\n")
	buf.Write(content)

	return buf.String(), nil
}
