package engine

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
)

func sampleReport() *Report {
	r := NewReport("run-1", asset.MustParseRef("container://www/docs"), Lenient)
	r.Add(asset.MustParseRef("container://www/docs"), Created, "")
	r.Add(asset.MustParseRef("block://www/blocks/banner"), Skipped, "reference section/banner of page://www/docs/intro left unbound: not in target")
	r.Add(asset.MustParseRef("page://www/docs/intro"), Created, "", "phantom text node legacy")
	return r
}

func TestReportSeqIsMonotonic(t *testing.T) {
	r := sampleReport()
	for i, e := range r.Entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestReportCountsAndSummary(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, 2, r.Counts()[Created])
	assert.Equal(t, 1, r.Counts()[Skipped])
	assert.False(t, r.HasFailures())
	assert.Equal(t, "created=2 updated=0 unchanged=0 skipped=1 failed=0", r.Summary())

	r.Add(asset.MustParseRef("page://www/docs/about"), Failed, "boom")
	assert.True(t, r.HasFailures())
}

func TestReportLast(t *testing.T) {
	r := sampleReport()
	ref := asset.MustParseRef("container://www/docs")
	r.Add(ref, Skipped, "again")

	e, ok := r.Last(ref)
	require.True(t, ok)
	assert.Equal(t, Skipped, e.Outcome)

	_, ok = r.Last(asset.MustParseRef("page://www/nope"))
	assert.False(t, ok)
}

func TestReportWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteText(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "SEQ"))
	assert.Contains(t, lines[2], "Skipped")
	assert.Contains(t, lines[4], "note: phantom text node legacy")
	assert.Equal(t, "created=2 updated=0 unchanged=0 skipped=1 failed=0", lines[5])
}

func TestReportWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteJSON(&buf))

	var decoded struct {
		RunID   string `json:"run_id"`
		Policy  string `json:"policy"`
		Entries []struct {
			Seq     int64     `json:"seq"`
			Ref     asset.Ref `json:"ref"`
			Outcome string    `json:"outcome"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "lenient", decoded.Policy)
	require.Len(t, decoded.Entries, 3)
	assert.Equal(t, asset.MustParseRef("page://www/docs/intro"), decoded.Entries[2].Ref)
}
