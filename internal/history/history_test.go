package history

import (
	"testing"
	"time"

	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyPath = "/home/dev/.config/dbpilot/query_history.json"

func TestLoad_MissingFile(t *testing.T) {
	items, err := New(afero.NewMemMapFs(), historyPath, 0).Load()
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, historyPath, 0)

	rows := 3
	ms := int64(12)
	msg := "syntax error"
	items := []Item{
		{ID: "b", Query: "SELECT 1", ExecutedAt: "2024-05-01T12:00:00Z", RowCount: &rows, ExecutionTimeMs: &ms},
		{ID: "a", Query: "SELEC", ExecutedAt: "2024-05-01T11:00:00Z", Error: &msg},
	}
	require.NoError(t, s.Save(items))

	got, err := New(fs, historyPath, 0).Load()
	require.NoError(t, err)
	assert.Equal(t, items, got)

	raw, err := afero.ReadFile(fs, historyPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"execution_time_ms": 12`)
	assert.Contains(t, string(raw), `"row_count": null`)
}

func TestAppend_NewestFirstAndTrimmed(t *testing.T) {
	s := New(afero.NewMemMapFs(), historyPath, 2)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, q := range []string{"SELECT 1", "SELECT 2", "SELECT 3"} {
		require.NoError(t, s.Append(NewItem(q, now)))
	}

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SELECT 3", got[0].Query)
	assert.Equal(t, "SELECT 2", got[1].Query)
	assert.Equal(t, "2024-05-01T12:00:00Z", got[0].ExecutedAt)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestLoad_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, historyPath, []byte("{not json"), 0o600))

	_, err := New(fs, historyPath, 0).Load()
	assert.True(t, errs.IsInvalidConfig(err), "got %v", err)
}
