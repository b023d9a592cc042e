package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name   string
		want   Format
		wantOK bool
	}{
		{"FY21.csv", FormatCSV, true},
		{"FY21.CSV", FormatCSV, true},
		{"FY21.tsv", FormatTSV, true},
		{"FY21.tab", FormatTSV, true},
		{"FY21.xlsx", FormatXLSX, true},
		{"FY21.xls", "", false},
		{"FY21.json", "", false},
		{"FY21", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatOf(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsReportFile(t *testing.T) {
	assert.True(t, IsReportFile("reports/FY21.xlsx"))
	assert.False(t, IsReportFile("~$FY21.xlsx"))
	assert.False(t, IsReportFile(".FY21.csv"))
	assert.False(t, IsReportFile("notes.txt"))
}

func TestDiscovery_FindReports(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "reports")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive.csv"), 0o755))
	for _, name := range []string{"FY23.csv", "FY21.xlsx", "FY22.tsv", "readme.md", "~$FY21.xlsx"} {
		touch(t, dir, name)
	}

	t.Run("relative to base", func(t *testing.T) {
		found, err := NewDiscovery(base).FindReports("reports")
		require.NoError(t, err)

		var names []string
		for _, f := range found {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"FY21.xlsx", "FY22.tsv", "FY23.csv"}, names)
		assert.Equal(t, FormatXLSX, found[0].Format)
		assert.Equal(t, filepath.Join(dir, "FY21.xlsx"), found[0].Path)
	})

	t.Run("absolute path ignores base", func(t *testing.T) {
		found, err := NewDiscovery("/nonexistent").FindReports(dir)
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDiscovery(base).FindReports("absent")
		assert.Error(t, err)
	})
}

func TestDiscovery_Stat(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "FY21.csv")
	touch(t, dir, "FY21.pdf")

	d := NewDiscovery(dir)
	info, err := d.Stat("FY21.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, info.Format)
	assert.Equal(t, int64(1), info.Size)

	_, err = d.Stat("FY21.pdf")
	assert.ErrorContains(t, err, "unsupported")

	_, err = d.Stat("FY22.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "a", ModTime: now.Add(-time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-2 * time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}
