package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/EarthScope/sac2mseed/pkg/reader"
)

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records <file>...",
	Short: "List the records of miniSEED files",
	Long: `List every record of the given files: stream offset, source name,
start time, sample count and record length. Use "-" to read standard
input.

Examples:
  mstrace records data.mseed
  mstrace records -r 512 --skip-not-data day1.mseed day2.mseed
  cat data.mseed | mstrace records -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := timeFormat(cmd)
		if err != nil {
			return err
		}
		opts := readerOptions(cmd)
		out := cmd.OutOrStdout()

		total := 0
		for _, path := range args {
			c := container.NewCursor(reader.WithStdin(cmd.InOrStdin()))
			if err := c.Open(path); err != nil {
				return err
			}

			for {
				res, err := c.Next(opts)
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				rec := res.Record
				last := ""
				if res.Last {
					last = " (last)"
				}
				fmt.Fprintf(out, "%10d  %-17s %s %7d samples %7d bytes%s\n",
					res.Offset, rec.SourceName(), format.Format(rec.StartTime),
					rec.SampleCount, rec.Length, last)
				total++
			}
		}
		fmt.Fprintf(out, "Total: %d record(s)\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	addReadFlags(recordsCmd)
	recordsCmd.Flags().String("time-format", "seed", "Time format: seed, iso or epoch")
}
