/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/store"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy live documents into a pebble archive",
	Long: `Copy every live document of an existing store into a pebble archive.

Each export runs as one batch identified by a KSUID and recorded in the
archive manifest. Documents from earlier exports stay unless tombstoned.

Examples:
  luna export
  luna export --out /backups/luna`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = filepath.Join(s.config.DataDir, "archive")
		}
		return runExport(cmd.Context(), s, out, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Archive directory (default <data-dir>/archive)")
}

func runExport(ctx context.Context, s *settings, archivePath string, out io.Writer) error {
	c, err := requireContainer()
	if err != nil {
		return err
	}

	st, err := store.OpenReadOnly(s.config.StoreConfig(s.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := c.GetArchiveOpener()(archivePath, s.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Export(ctx, st.ScanLive(ctx))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Export %s: %d documents (%d bytes) to %s\n", m.BatchID, m.Documents, m.Bytes, archivePath)
	return nil
}
