package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-01-02T10:00:00.000Z","level":"INFO","msg":"engine_ready","texts":3}
{"time":"2026-01-02T10:00:01.000Z","level":"DEBUG","msg":"analyze_completed","text":"ab"}
{"time":"2026-01-02T10:00:02.000Z","level":"ERROR","msg":"analyze_failed","error":"boom"}
`

func writeSampleLog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "server.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0644))
	return path
}

func TestLogsCmd_TailsFile(t *testing.T) {
	home := isolate(t, "memory")
	path := writeSampleLog(t, home)

	out, err := execute(t, "logs", "--file", path, "-n", "2")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "analyze_completed")
	assert.Contains(t, lines[1], "ERROR analyze_failed")
}

func TestLogsCmd_Filters(t *testing.T) {
	home := isolate(t, "memory")
	path := writeSampleLog(t, home)

	t.Run("by level", func(t *testing.T) {
		out, err := execute(t, "logs", "--file", path, "--level", "info")
		require.NoError(t, err)
		assert.Contains(t, out, "engine_ready")
		assert.Contains(t, out, "analyze_failed")
		assert.NotContains(t, out, "analyze_completed")
	})

	t.Run("by pattern", func(t *testing.T) {
		out, err := execute(t, "logs", "--file", path, "--filter", "analyze_")
		require.NoError(t, err)
		assert.NotContains(t, out, "engine_ready")
		assert.Contains(t, out, "analyze_completed")
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := execute(t, "logs", "--file", path, "--filter", "(")
		require.Error(t, err)
	})
}

func TestLogsCmd_MissingFile(t *testing.T) {
	home := isolate(t, "memory")

	_, err := execute(t, "logs", "--file", filepath.Join(home, "absent.log"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
