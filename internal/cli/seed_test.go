package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/store"
)

func TestSeedIsRepeatable(t *testing.T) {
	db := filepath.Join(t.TempDir(), "seed.db")

	out, err := execute(t, "seed", "testdata/site.yaml", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "seeded 4 entities into "+db)

	out, err = execute(t, "--format", "json", "seed", "testdata/site.yaml", "--db", db)
	require.NoError(t, err, out)
	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, SeedResult{Database: db, Entities: 4}, resp.Data)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSeedMissingFixture(t *testing.T) {
	_, err := execute(t, "seed", "testdata/absent.yaml", "--db", filepath.Join(t.TempDir(), "seed.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load fixture")
}
