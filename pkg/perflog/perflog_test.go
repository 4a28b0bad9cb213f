package perflog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithBlankPathDiscardsOutput(t *testing.T) {
	logger, err := Open("")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("job", "job_id", "1")
}

func TestOpenWritesJSONLinesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.log")

	logger, err := Open(path)
	require.NoError(t, err)

	logger.Info("job", "job_id", "abc-123", "status", "Complete")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":"abc-123"`)
	assert.Contains(t, string(data), `"status":"Complete"`)
}

func TestOpenAppendsAcrossMultipleOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.log")

	first, err := Open(path)
	require.NoError(t, err)
	first.Info("job", "job_id", "1")

	second, err := Open(path)
	require.NoError(t, err)
	second.Info("job", "job_id", "2")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":"1"`)
	assert.Contains(t, string(data), `"job_id":"2"`)
}
