package cmd

import (
	"github.com/spf13/cobra"
)

// tracesCmd represents the traces command
var tracesCmd = &cobra.Command{
	Use:   "traces <file>...",
	Short: "List the continuous traces in miniSEED files",
	Long: `Read the given files, join adjacent records into continuous trace
segments and list the segments, or the gaps between them.

Examples:
  mstrace traces data.mseed
  mstrace traces --gaps --details --time-format iso data.mseed
  mstrace traces --gap-list --min-gap 1 data.mseed`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := timeFormat(cmd)
		if err != nil {
			return err
		}

		g, err := readGroup(cmd, args, readerOptions(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if gapList, _ := cmd.Flags().GetBool("gap-list"); gapList {
			var minGap, maxGap *float64
			if cmd.Flags().Changed("min-gap") {
				v, _ := cmd.Flags().GetFloat64("min-gap")
				minGap = &v
			}
			if cmd.Flags().Changed("max-gap") {
				v, _ := cmd.Flags().GetFloat64("max-gap")
				maxGap = &v
			}
			return g.PrintGapList(out, format, minGap, maxGap)
		}

		details, _ := cmd.Flags().GetBool("details")
		gaps, _ := cmd.Flags().GetBool("gaps")
		return g.PrintTraceList(out, format, details, gaps)
	},
}

func init() {
	rootCmd.AddCommand(tracesCmd)
	addReadFlags(tracesCmd)
	addMatchFlags(tracesCmd)
	tracesCmd.Flags().String("time-format", "seed", "Time format: seed, iso or epoch")
	tracesCmd.Flags().Bool("gaps", false, "Show the gap to the previous segment")
	tracesCmd.Flags().Bool("details", false, "Show sample rate and sample count")
	tracesCmd.Flags().Bool("gap-list", false, "List gaps instead of segments")
	tracesCmd.Flags().Float64("min-gap", 0, "Only list gaps of at least this many seconds")
	tracesCmd.Flags().Float64("max-gap", 0, "Only list gaps of at most this many seconds")
}
