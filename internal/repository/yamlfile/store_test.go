package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perioclinic/perio-records/internal/model"
	apperrors "github.com/perioclinic/perio-records/pkg/errors"
)

func testRecords() []model.Record {
	return []model.Record{
		{
			"mrn":      "222",
			"first":    "qi",
			"last":     "wang",
			"birthday": "19700101",
			"sex":      "female",
			"_type":    "Surgery",
			"date":     "20210826",
			"asa":      2,
			"biopsy":   "True",
			"implant":  true,
		},
		{
			"mrn":      "333",
			"first":    "al",
			"last":     "mo",
			"birthday": "19800101",
			"sex":      "male",
			"_type":    "PeriodicExam",
			"date":     "20210124",
			"note":     "recall in six months",
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	store := NewRecordStore(path)

	records := testRecords()
	require.NoError(t, store.Save(context.Background(), records))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	store := NewRecordStore(filepath.Join(t.TempDir(), "records.yaml"))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStorageUnavailable, apperrors.Code(err))
	assert.True(t, apperrors.IsNotExist(err))
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- mrn: '222'\n  {broken"), 0o644))

	store := NewRecordStore(path)
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStorageUnavailable, apperrors.Code(err))
	assert.False(t, apperrors.IsNotExist(err))
}

func TestLoadWrongShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mrn: '222'\n"), 0o644))

	store := NewRecordStore(path)
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStorageUnavailable, apperrors.Code(err))
}

func TestSaveReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.yaml")
	store := NewRecordStore(path)

	require.NoError(t, store.Save(context.Background(), testRecords()))
	require.NoError(t, store.Save(context.Background(), testRecords()[:1]))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	// the staged temp file never outlives a save
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "records.yaml", entries[0].Name())
}

func TestSaveEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	store := NewRecordStore(path)

	require.NoError(t, store.Save(context.Background(), nil))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
