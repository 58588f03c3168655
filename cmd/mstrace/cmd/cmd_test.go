package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/di"
)

var testStart = codec.TimeFromStd(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

// resetFlags returns every flag of cmd and its children to its default,
// since the command tree is shared between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes mstrace with args and returns what it wrote to stdout and
// stderr. HOME points at a temporary directory so no user config is read.
func run(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	SetContainer(di.NewContainer())
	resetFlags(rootCmd)

	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// encode packs n samples of channel at 20 Hz into 512 byte records.
func encode(t *testing.T, channel string, start codec.Time, n int) []byte {
	t.Helper()
	v := make([]int32, n)
	for i := range v {
		v[i] = int32(i)
	}
	res, err := codec.NewRawCodec().Encode(codec.EncodeRequest{
		Template:     &codec.Template{Identity: codec.Identity{Network: "IU", Station: "ANMO", Location: "00", Channel: channel}},
		Samples:      codec.IntSamples(v),
		Start:        start,
		SampleRate:   20,
		RecordLength: 512,
		Encoding:     codec.EncodingInt32,
		Flush:        true,
	})
	require.NoError(t, err)
	return bytes.Join(res.Records, nil)
}

// writeTestData writes two BHZ segments a minute apart, the second one
// first, and returns the file path. The first segment takes three
// records and the second one.
func writeTestData(t *testing.T) string {
	t.Helper()
	later := testStart + codec.Time(75*codec.HPTModulus)
	data := append(encode(t, "BHZ", later, 100), encode(t, "BHZ", testStart, 300)...)

	path := filepath.Join(t.TempDir(), "in.mseed")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRootRequiresContainer(t *testing.T) {
	path := writeTestData(t)
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	SetContainer(nil)
	defer SetContainer(di.NewContainer())

	rootCmd.SetArgs([]string{"records", path})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency container not initialized")
}

func TestRootBadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: loud\n"), 0644))

	_, _, err := run(t, nil, "--config", configPath, "records", writeTestData(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")

	_, _, err = run(t, nil, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "records", writeTestData(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestRecordsCommand(t *testing.T) {
	path := writeTestData(t)

	out, _, err := run(t, nil, "records", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "IU_ANMO_00_BHZ")
	assert.Contains(t, lines[0], "2020,001,00:01:15.000000")
	assert.Contains(t, lines[0], "100 samples")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[1]), "512 "))
	assert.Contains(t, lines[3], "(last)")
	assert.NotContains(t, lines[2], "(last)")
	assert.Equal(t, "Total: 4 record(s)", lines[4])
}

func TestRecordsCommandStdin(t *testing.T) {
	data := encode(t, "BHE", testStart, 50)

	out, _, err := run(t, bytes.NewReader(data), "records", "--time-format", "iso", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "IU_ANMO_00_BHE")
	assert.Contains(t, out, "2020-01-01T00:00:00")
	assert.Contains(t, out, "Total: 1 record(s)")
}

func TestRecordsCommandErrors(t *testing.T) {
	_, _, err := run(t, nil, "records")
	assert.Error(t, err)

	_, _, err = run(t, nil, "records", filepath.Join(t.TempDir(), "missing.mseed"))
	assert.Error(t, err)

	_, _, err = run(t, nil, "records", "--time-format", "julian", writeTestData(t))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte("x"), 1024), 0644))
	_, _, err = run(t, nil, "records", garbage)
	assert.Error(t, err)
}

func TestTracesCommand(t *testing.T) {
	path := writeTestData(t)

	out, _, err := run(t, nil, "traces", "--details", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Hz  Samples")
	// Sorted by start time.
	assert.Contains(t, lines[1], "2020,001,00:00:00.000000")
	assert.Contains(t, lines[1], "300")
	assert.Contains(t, lines[2], "2020,001,00:01:15.000000")
	assert.Equal(t, "Total: 2 trace(s)", lines[3])

	out, _, err = run(t, nil, "traces", "--gaps", path)
	require.NoError(t, err)
	assert.Contains(t, out, "60.05")
}

func TestTracesCommandGapList(t *testing.T) {
	path := writeTestData(t)

	out, _, err := run(t, nil, "traces", "--gap-list", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Last Sample")
	assert.Contains(t, out, "Total: 1 gap(s)")

	out, _, err = run(t, nil, "traces", "--gap-list", "--min-gap", "120", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 0 gap(s)")

	out, _, err = run(t, nil, "traces", "--gap-list", "--max-gap", "120", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 gap(s)")
}

func TestTracesCommandTolerance(t *testing.T) {
	path := writeTestData(t)

	// A two minute tolerance bridges the gap.
	out, _, err := run(t, nil, "traces", "--details", "--time-tolerance", "120", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 trace(s)")
}

func TestMetricsRouter(t *testing.T) {
	h := metricsRouter(prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
