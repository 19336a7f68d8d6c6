package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/loader"
	"github.com/ssargent/lunadb/pkg/store"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Stream every document as NDJSON",
	Long: `Stream the documents of an existing store to stdout as NDJSON, in file order.

Examples:
  luna scan
  luna scan --include-deleted > everything.ndjson`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		includeDeleted, _ := cmd.Flags().GetBool("include-deleted")
		return runScan(cmd.Context(), s, includeDeleted, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("include-deleted", false, "Also stream tombstoned records")
}

func runScan(ctx context.Context, s *settings, includeDeleted bool, out io.Writer) error {
	st, err := store.OpenReadOnly(s.config.StoreConfig(s.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	docs := st.ScanLive(ctx)
	if includeDeleted {
		docs = st.Scan(ctx)
	}

	n, err := loader.Dump(out, docs)
	s.logger.Debug("scan complete", "documents", n)
	return err
}
