/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/loader"
	"github.com/ssargent/lunadb/pkg/store"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <file.ndjson>",
	Short: "Build a fresh store from an NDJSON file",
	Long: `Build a fresh store from NDJSON lines of the form {"id":1,"data":"..."}.

Existing data and index files in the data directory are replaced.

Example:
  luna load documents.ndjson --data-dir ./data`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		return runLoad(cmd.Context(), s, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(ctx context.Context, s *settings, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	st, err := store.Open(s.config.StoreConfig(s.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := loader.Load(ctx, f, st.NewWriter())
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := st.Flush(); err != nil {
		return err
	}

	stats := st.Stats()
	fmt.Fprintf(out, "Loaded %d documents (%d bytes) into %s\n", res.Documents, res.Bytes, s.config.DataDir)
	fmt.Fprintf(out, "Data file: %d bytes, index file: %d bytes\n", stats.DataSize, stats.IndexSize)
	return st.Close()
}
