package watchercli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terriblefail/accesswatch/internal/config"
)

func TestRunBootstrapsDefaultConfigAndExitsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accesswatch.yml")
	var out bytes.Buffer

	err := Main(context.Background(), []string{"run", "--config", path}, nil, &out, &out)
	require.NoError(t, err, "config bootstrap must exit without error")

	_, err = os.Stat(path)
	require.NoError(t, err, "default config must have been written")
	assert.Contains(t, out.String(), "edit the configuration file")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accesswatch.yml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  vid: banana\n"), 0o644))

	err := Main(context.Background(), []string{"run", "--config", path}, nil, new(bytes.Buffer), new(bytes.Buffer))
	assert.Error(t, err)
}
