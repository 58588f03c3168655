package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/EarthScope/sac2mseed/pkg/storage"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect a record archive",
	Long: `Inspect the record archive written by 'mstrace repack --archive'.
The archive directory defaults to archive.dir from the config.`,
}

var archiveListCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List archived records by source",
	Long: `List archived records grouped by source name, in start time order.

Examples:
  mstrace archive list ./archive
  mstrace archive list --source IU_ANMO_00_BHZ`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := archiveDir(cmd)
		if len(args) == 1 {
			dir = args[0]
		}
		archive, err := openArchive(dir)
		if err != nil {
			return err
		}
		defer archive.Close()

		sources := []string{}
		if source, _ := cmd.Flags().GetString("source"); source != "" {
			sources = append(sources, source)
		} else if sources, err = archive.Sources(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		total := 0
		for _, source := range sources {
			fmt.Fprintf(out, "%s\n", source)
			err := archive.Scan(source, math.MinInt64, math.MaxInt64, func(e *storage.Entry) error {
				fmt.Fprintf(out, "  %s  %s  %d bytes\n", e.ID, e.Start.SEEDString(), len(e.Raw))
				total++
				return nil
			})
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "Total: %d record(s)\n", total)
		return nil
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Write an archived record to standard output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}
		archive, err := openArchive(archiveDir(cmd))
		if err != nil {
			return err
		}
		defer archive.Close()

		entry, err := archive.Get(id)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(entry.Raw)
		return err
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}
		archive, err := openArchive(archiveDir(cmd))
		if err != nil {
			return err
		}
		defer archive.Close()

		if err := archive.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		return nil
	},
}

func archiveDir(cmd *cobra.Command) string {
	if cmd.Flags().Changed("dir") {
		dir, _ := cmd.Flags().GetString("dir")
		return dir
	}
	return cfg.Archive.Dir
}

// openArchive opens an existing archive.
func openArchive(dir string) (*storage.Archive, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("archive not found: %w", err)
	}
	return storage.OpenArchive(storage.ArchiveConfig{Dir: dir, Sync: cfg.Archive.Sync}, container.GetCodec())
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveGetCmd, archiveDeleteCmd)
	archiveCmd.PersistentFlags().String("dir", "./archive", "Archive directory")
	archiveListCmd.Flags().String("source", "", "Only list this source name, e.g. IU_ANMO_00_BHZ")
}
