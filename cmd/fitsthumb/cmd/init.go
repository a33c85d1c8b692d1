/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitsthumb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default settings for local development.

Examples:
  fitsthumb init
  fitsthumb init --config ./fitsthumb.yaml --force`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// No config to load yet
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		written, err := writeDefaultConfig(configPath, force)
		if err != nil {
			return err
		}
		if !written {
			cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}
		cmd.Printf("✅ Configuration written to %s\n", configPath)
		cmd.Printf("\nYou can now start the server with:\n")
		cmd.Printf("  fitsthumb serve --config %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
}

// writeDefaultConfig saves the default configuration to path unless a file
// already exists there and force is false.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if config.ConfigExists(path) && !force {
		return false, nil
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return false, errors.Wrap(err, "failed to write config")
	}
	return true, nil
}
