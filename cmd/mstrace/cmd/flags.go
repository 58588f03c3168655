package cmd

import (
	"github.com/spf13/cobra"

	"github.com/EarthScope/sac2mseed/pkg/config"
	"github.com/EarthScope/sac2mseed/pkg/reader"
	"github.com/EarthScope/sac2mseed/pkg/trace"
)

// addReadFlags registers the flags that override the reader section.
func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("record-length", "r", 0,
		"Record length in bytes; 0 detects once, -1 detects every record")
	cmd.Flags().Bool("skip-not-data", false, "Skip blocks that are not data records")
	cmd.Flags().CountP("verbose", "v", "Log record detection, repeat for more")
}

// addMatchFlags registers the flags that override the trace section.
func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("time-tolerance", config.ToleranceDefault,
		"Time tolerance in seconds; -1 is half a sample period, -2 disables the check")
	cmd.Flags().Float64("rate-tolerance", config.ToleranceDefault,
		"Sample rate tolerance in Hz; -1 is the default test, -2 disables the check")
	cmd.Flags().Bool("quality", false, "Only merge records of the same quality")
}

func readerOptions(cmd *cobra.Command) reader.Options {
	r := cfg.Reader
	if cmd.Flags().Changed("record-length") {
		r.RecordLength, _ = cmd.Flags().GetInt("record-length")
	}
	if cmd.Flags().Changed("skip-not-data") {
		r.SkipNotData, _ = cmd.Flags().GetBool("skip-not-data")
	}
	if cmd.Flags().Changed("verbose") {
		r.Verbose, _ = cmd.Flags().GetCount("verbose")
	}
	return r.Options()
}

func matchOptions(cmd *cobra.Command) trace.MatchOptions {
	t := cfg.Trace
	if cmd.Flags().Changed("time-tolerance") {
		t.TimeTolerance, _ = cmd.Flags().GetFloat64("time-tolerance")
	}
	if cmd.Flags().Changed("rate-tolerance") {
		t.RateTolerance, _ = cmd.Flags().GetFloat64("rate-tolerance")
	}
	if cmd.Flags().Changed("quality") {
		t.Quality, _ = cmd.Flags().GetBool("quality")
	}
	return t.MatchOptions()
}

// timeFormat returns the --time-format flag or the configured format.
func timeFormat(cmd *cobra.Command) (trace.TimeFormat, error) {
	name := cfg.Trace.TimeFormat
	if cmd.Flags().Changed("time-format") {
		name, _ = cmd.Flags().GetString("time-format")
	}
	return trace.ParseTimeFormat(name)
}

// readGroup reads every path into a healed and sorted trace group.
func readGroup(cmd *cobra.Command, paths []string, opts reader.Options) (*trace.Group, error) {
	match := matchOptions(cmd)
	log := container.GetLogger()

	g := container.NewGroup()
	for _, path := range paths {
		c := container.NewCursor(reader.WithStdin(cmd.InOrStdin()))
		if err := c.Open(path); err != nil {
			return nil, err
		}
		n, err := c.ReadTraces(g, opts, match)
		if err != nil {
			return nil, err
		}
		log.Debugf("read %d records from %s", n, path)
	}

	if merged := g.Heal(match); merged > 0 {
		log.Debugf("healed %d segments", merged)
	}
	g.Sort()
	return g, nil
}
