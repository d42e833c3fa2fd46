package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/asaclean/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validates an asaclean configuration file against its schema and checks
for invalid values.

Examples:
  asaclean config validate                       # Validates default config locations
  asaclean config validate -c asaclean.toml      # Validates specific file
  asaclean config validate -c .asaclean/asaclean.yaml`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Shows the merged configuration from defaults and config file.

Examples:
  asaclean config show                  # Show effective config as TOML
  asaclean config show --format yaml    # Show as YAML
  asaclean config show -c asaclean.toml # Show config from specific file`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringP("format", "f", "toml", "Output format: toml or yaml")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func loadOptions() []config.LoadOption {
	var opts []config.LoadOption
	if cfgFile != "" {
		opts = append(opts, config.WithPath(cfgFile))
	}
	return opts
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	result, err := config.LoadConfig(loadOptions()...)
	if err != nil {
		color.Red("Configuration validation failed:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("  - %s\n", line)
		}
		return err
	}

	if result.Source != "" {
		color.Green("Configuration valid: %s", result.Source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	result, err := config.LoadConfig(loadOptions()...)
	if err != nil {
		return err
	}

	if result.Source != "" {
		fmt.Printf("# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Println("# Default configuration (no config file found)")
	}

	content, err := marshalConfig(result.Config, cmd)
	if err != nil {
		return err
	}
	fmt.Print(string(content))
	return nil
}

func marshalConfig(cfg *config.Config, cmd *cobra.Command) ([]byte, error) {
	format, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(format) {
	case "toml":
		content, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return content, nil
	case "yaml", "yml":
		content, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return content, nil
	default:
		return nil, fmt.Errorf("unknown config format %q (want toml or yaml)", format)
	}
}
