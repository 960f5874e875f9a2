package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := filepath.Join(t.TempDir(), "served.db")
	out, err := executeContext(t, ctx, "serve", "--db", db, "--addr", "127.0.0.1:0", "--token", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Serving "+db+" on 127.0.0.1:0")
	assert.FileExists(t, db)
}

func TestServeBadAddress(t *testing.T) {
	_, err := execute(t, "serve", "--db", filepath.Join(t.TempDir(), "served.db"), "--addr", "127.0.0.1:99999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "server error")
}
