package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/archive"
)

// archiveCmd groups commands that read or prune an export archive
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect a pebble archive written by export",
	Long: `Inspect or prune the pebble archive written by luna export.

Examples:
  luna archive manifest
  luna archive get 42
  luna archive rm 42 --dir /backups/luna`,
}

var archiveManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the manifest of the last export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, path, err := archiveTarget(cmd)
		if err != nil {
			return err
		}
		return runArchiveManifest(s, path, cmd.OutOrStdout())
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an archived document by identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, path, err := archiveTarget(cmd)
		if err != nil {
			return err
		}
		id, err := parseArchiveID(args[0])
		if err != nil {
			return err
		}
		return runArchiveGet(s, path, id, cmd.OutOrStdout())
	},
}

var archiveRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a document from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, path, err := archiveTarget(cmd)
		if err != nil {
			return err
		}
		id, err := parseArchiveID(args[0])
		if err != nil {
			return err
		}
		return runArchiveRm(s, path, id, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.PersistentFlags().String("dir", "", "Archive directory (default <data-dir>/archive)")
	archiveCmd.AddCommand(archiveManifestCmd, archiveGetCmd, archiveRmCmd)
}

func archiveTarget(cmd *cobra.Command) (*settings, string, error) {
	s, err := settingsFrom(cmd)
	if err != nil {
		return nil, "", err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = filepath.Join(s.config.DataDir, "archive")
	}
	return s, dir, nil
}

func parseArchiveID(arg string) (int32, error) {
	id, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	return int32(id), nil
}

func openArchive(s *settings, path string) (*archive.Archive, error) {
	c, err := requireContainer()
	if err != nil {
		return nil, err
	}
	return c.GetArchiveOpener()(path, s.logger)
}

func runArchiveManifest(s *settings, path string, out io.Writer) error {
	a, err := openArchive(s, path)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Manifest()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Batch:     %s\n", m.BatchID)
	fmt.Fprintf(out, "Documents: %d\n", m.Documents)
	fmt.Fprintf(out, "Bytes:     %d\n", m.Bytes)
	fmt.Fprintf(out, "Finished:  %s\n", m.Finished.Format(time.RFC3339))
	return nil
}

func runArchiveGet(s *settings, path string, id int32, out io.Writer) error {
	a, err := openArchive(s, path)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.Get(id)
	if err != nil {
		return fmt.Errorf("archive get %d: %w", id, err)
	}

	_, err = out.Write(data)
	return err
}

func runArchiveRm(s *settings, path string, id int32, out io.Writer) error {
	a, err := openArchive(s, path)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Delete(id); err != nil {
		return fmt.Errorf("archive rm %d: %w", id, err)
	}

	fmt.Fprintf(out, "Removed %d from %s\n", id, path)
	return nil
}
