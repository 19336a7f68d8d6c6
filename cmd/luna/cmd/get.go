package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/store"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a document by identifier",
	Long: `Print the raw bytes of a live document from an existing store.

Example:
  luna get 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		return runGet(s, int32(id), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(s *settings, id int32, out io.Writer) error {
	st, err := store.OpenReadOnly(s.config.StoreConfig(s.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.FindByID(id)
	if err != nil {
		return fmt.Errorf("get %d: %w", id, err)
	}

	_, err = out.Write(doc.Data)
	return err
}
