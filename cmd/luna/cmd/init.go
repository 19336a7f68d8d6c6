/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with a generated API key",
	Long: `Write a LunaDB config file with defaults and a freshly generated API key.

Examples:
  luna init
  luna init --config ./luna.yaml --data-dir ./data --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		return runInit(s, force, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runInit(s *settings, force bool, out io.Writer) error {
	if config.ConfigExists(s.configPath) && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", s.configPath)
	}

	cfg, err := config.BootstrapConfig(s.configPath, s.config.DataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", s.configPath)
	fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
	fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
	return nil
}
