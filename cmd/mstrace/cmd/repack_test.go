package cmd

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EarthScope/sac2mseed/pkg/reader"
	"github.com/EarthScope/sac2mseed/pkg/trace"
)

func TestRepackCommandFile(t *testing.T) {
	in := writeTestData(t)
	out := filepath.Join(t.TempDir(), "out", "repacked.mseed")

	_, stderr, err := run(t, nil, "repack", "-o", out, "--pack-length", "1024", in)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Packed 400 samples into 3 records")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(3*1024), info.Size())

	g := trace.NewGroup()
	n, err := reader.ReadTraces(out, g, reader.Options{Unpack: true}, trace.MatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Equal(t, 2, g.Len())
	assert.EqualValues(t, 300, g.Segments()[0].SampleCount)
	assert.EqualValues(t, 100, g.Segments()[1].SampleCount)

	// A second run replaces the output instead of appending.
	_, _, err = run(t, nil, "repack", "-o", out, "--pack-length", "1024", in)
	require.NoError(t, err)
	info, err = os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(3*1024), info.Size())
}

func TestRepackCommandReportsUnflushed(t *testing.T) {
	in := writeTestData(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("pack:\n  flush: false\n"), 0600))

	_, stderr, err := run(t, nil, "--config", configPath, "repack", "-o", filepath.Join(dir, "out.mseed"), "--pack-length", "1024", in)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Packed 240 samples into 1 records")
	assert.Contains(t, stderr, "160 samples left unpacked")
}

func TestRepackCommandStdout(t *testing.T) {
	in := writeTestData(t)

	stdout, _, err := run(t, nil, "repack", "-o", "-", "--encoding", "float64", "--byte-order", "little", in)
	require.NoError(t, err)
	require.Len(t, stdout, 2*4096)

	c := reader.NewCursor()
	require.NoError(t, c.OpenStream("stdout", strings.NewReader(stdout)))
	res, err := c.Next(reader.Options{Unpack: true})
	require.NoError(t, err)
	assert.Equal(t, "FLOAT64", res.Record.Encoding.String())
	assert.EqualValues(t, 300, res.Record.SampleCount)
	require.NoError(t, c.Finish())
}

func TestRepackCommandArchive(t *testing.T) {
	in := writeTestData(t)
	dir := filepath.Join(t.TempDir(), "archive")

	_, _, err := run(t, nil, "repack", "--archive", dir, "--pack-length", "512", in)
	require.NoError(t, err)

	out, _, err := run(t, nil, "archive", "list", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "IU_ANMO_00_BHZ", lines[0])
	assert.Contains(t, lines[1], "2020,001,00:00:00.000000")
	assert.Contains(t, lines[1], "512 bytes")
	assert.Equal(t, "Total: 4 record(s)", lines[5])

	id := regexp.MustCompile(`^\s+(\S+)`).FindStringSubmatch(lines[4])[1]

	raw, _, err := run(t, nil, "archive", "get", "--dir", dir, id)
	require.NoError(t, err)
	assert.Len(t, raw, 512)

	out, _, err = run(t, nil, "archive", "delete", "--dir", dir, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	out, _, err = run(t, nil, "archive", "list", "--dir", dir, "--source", "IU_ANMO_00_BHZ")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 3 record(s)")

	_, _, err = run(t, nil, "archive", "get", "--dir", dir, id)
	assert.Error(t, err)
}

func TestRepackCommandErrors(t *testing.T) {
	in := writeTestData(t)

	_, _, err := run(t, nil, "repack", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to write")

	_, _, err = run(t, nil, "repack", "-o", "-", "--pack-length", "1000", in)
	assert.Error(t, err)

	_, _, err = run(t, nil, "repack", "-o", "-", "--encoding", "STEIM9", in)
	assert.Error(t, err)
}

func TestArchiveCommandErrors(t *testing.T) {
	_, _, err := run(t, nil, "archive", "list", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive not found")

	_, _, err = run(t, nil, "archive", "get", "--dir", t.TempDir(), "not-an-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record id")
}
