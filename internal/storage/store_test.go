package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	result := testResult(t, 12)
	meta := NewMetadata("loam/storm", "loam", 3600, testSpec(), result)

	runID, err := st.Save(meta, result)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NotContains(t, runID, "/")

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "loam/storm", loaded.Name)
	assert.Equal(t, 12, loaded.Steps)
	assert.Equal(t, testSpec(), loaded.Params)
	assert.Equal(t, 0.25, loaded.Metrics["runoff_ratio"])

	table, err := st.LoadTable(runID)
	require.NoError(t, err)
	require.Len(t, table.Rows, 12)
	assert.Equal(t, result.Times[1:], table.Times)
	assert.Equal(t, "cascade_1", table.Header[len(table.Header)-2])

	soil := table.Column("soil")
	require.Len(t, soil, 12)
	for i := range soil {
		assert.Equal(t, result.States[i+1].Soil, soil[i])
	}
	assert.Equal(t, result.Fluxes[3].SurfaceRunoff, table.Column("surface_runoff")[3])
	assert.Nil(t, table.Column("missing"))
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	result := testResult(t, 4)
	for _, name := range []string{"first", "second"} {
		_, err := st.Save(NewMetadata(name, "", 3600, testSpec(), result), result)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(st.baseDir, "stray.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(st.baseDir, "empty"), 0755))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].Name)
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = st.LoadTable("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportJSON(t *testing.T) {
	result := testResult(t, 6)
	meta := NewMetadata("export", "loam", 3600, testSpec(), result)
	data := NewExportData(meta, result)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, ExportJSON(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded ExportData
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 6, decoded.Steps)
	assert.Len(t, decoded.States, 7)
	assert.Len(t, decoded.Fluxes, 6)
	assert.Equal(t, result.Fluxes[2], decoded.Fluxes[2])

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, data))
	assert.JSONEq(t, string(raw), buf.String())
}

func TestTableExport(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	result := testResult(t, 5)
	meta := NewMetadata("stored", "loam", 3600, testSpec(), result)
	runID, err := st.Save(meta, result)
	require.NoError(t, err)

	table, err := st.LoadTable(runID)
	require.NoError(t, err)

	data := NewTableExport(meta, table)
	assert.Equal(t, 5, data.Steps)
	assert.Empty(t, data.States)
	assert.Equal(t, result.Times[1:], data.Times)
	require.Contains(t, data.Columns, "groundwater")
	assert.Equal(t, result.States[5].Groundwater, data.Columns["groundwater"][4])
	assert.NotContains(t, data.Columns, "time")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, data))
	assert.NotContains(t, buf.String(), `"states"`)
}
