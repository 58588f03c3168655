package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EarthScope/sac2mseed/pkg/storage"
	"github.com/EarthScope/sac2mseed/pkg/trace"
)

// repackCmd represents the repack command
var repackCmd = &cobra.Command{
	Use:   "repack <file>...",
	Short: "Repack miniSEED files into new records",
	Long: `Read the given files, join adjacent records into continuous traces
and pack the traces into records of the configured length and encoding.
Records go to a file ("-" for standard output), a record archive, or both.

Examples:
  mstrace repack -o out.mseed --pack-length 4096 in1.mseed in2.mseed
  mstrace repack -o - --encoding FLOAT64 in.mseed > out.mseed
  mstrace repack --archive ./archive in.mseed`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		archiveDir, _ := cmd.Flags().GetString("archive")
		if output == "" && archiveDir == "" {
			return errors.New("nothing to write: give --output, --archive or both")
		}

		packCfg := cfg.Pack
		if cmd.Flags().Changed("pack-length") {
			packCfg.RecordLength, _ = cmd.Flags().GetInt("pack-length")
		}
		if cmd.Flags().Changed("encoding") {
			packCfg.Encoding, _ = cmd.Flags().GetString("encoding")
		}
		if cmd.Flags().Changed("byte-order") {
			packCfg.ByteOrder, _ = cmd.Flags().GetString("byte-order")
		}
		packOpts, err := packCfg.Options()
		if err != nil {
			return err
		}

		opts := readerOptions(cmd)
		opts.Unpack = true
		g, err := readGroup(cmd, args, opts)
		if err != nil {
			return err
		}

		var sinks []trace.Sink
		switch output {
		case "":
		case "-":
			sinks = append(sinks, trace.WriterSink{W: cmd.OutOrStdout()})
		default:
			file, err := storage.NewRecordFile(storage.RecordFileConfig{FilePath: output, Truncate: true})
			if err != nil {
				return err
			}
			defer file.Close()
			sinks = append(sinks, file)
		}
		if archiveDir != "" {
			archive, err := storage.OpenArchive(storage.ArchiveConfig{Dir: archiveDir, Sync: cfg.Archive.Sync},
				container.GetCodec())
			if err != nil {
				return err
			}
			defer archive.Close()
			sinks = append(sinks, archive)
		}

		sink := trace.SinkFunc(func(rec []byte) error {
			for _, s := range sinks {
				if err := s.WriteRecord(rec); err != nil {
					return err
				}
			}
			return nil
		})

		stats, err := g.Pack(container.GetCodec(), sink, packOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Packed %d samples into %d records\n", stats.Samples, stats.Records)

		var left int64
		for _, seg := range g.Segments() {
			left += seg.SampleCount
		}
		if left > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d samples left unpacked; set pack.flush to pack under-full records\n", left)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repackCmd)
	addReadFlags(repackCmd)
	addMatchFlags(repackCmd)
	repackCmd.Flags().StringP("output", "o", "", `Write records to this file, "-" for standard output`)
	repackCmd.Flags().String("archive", "", "Store records in the archive in this directory")
	repackCmd.Flags().Int("pack-length", 4096, "Output record length in bytes, a power of two")
	repackCmd.Flags().String("encoding", "", "Output encoding, e.g. INT32 or FLOAT64; default follows the samples")
	repackCmd.Flags().String("byte-order", "big", "Output byte order: big or little")
}
