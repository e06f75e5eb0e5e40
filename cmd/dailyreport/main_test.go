package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyreport/frontend/exports"
	"dailyreport/reporting"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "export"}, names)

	export, _, err := root.Find([]string{"export"})
	require.NoError(t, err)
	for _, flag := range []string{"kind", "format", "start", "end", "group", "project", "lot", "out"} {
		assert.NotNil(t, export.Flags().Lookup(flag), "missing --%s", flag)
	}
}

func TestExportParams(t *testing.T) {
	today := time.Date(2026, 3, 5, 14, 30, 0, 0, time.Local)

	p, err := exportParams(exports.KindGroupDetails, exportOptions{start: "2026-03-01", end: "2026-03-04"}, today)
	require.NoError(t, err)
	assert.Equal(t, reporting.TabProcessProduction, p.Tab)
	assert.Equal(t, reporting.ViewGroupDetails, p.View)
	assert.Equal(t, 1, p.Start.Day())
	assert.Equal(t, 4, p.End.Day())
	assert.Equal(t, exports.KindGroupDetails, exports.KindFor(p))

	p, err = exportParams(exports.KindGroupSummary, exportOptions{}, today)
	require.NoError(t, err)
	assert.Equal(t, reporting.TabGroupProduction, p.Tab)
	assert.Equal(t, 0, p.Start.Hour())

	p, err = exportParams(exports.KindPendingSummary, exportOptions{group: "3", project: "7", lot: "2"}, today)
	require.NoError(t, err)
	assert.Equal(t, exports.KindPendingSummary, exports.KindFor(p))
	assert.Equal(t, "Lot_2", exports.Scope(p))

	_, err = exportParams(exports.KindPendingSummary, exportOptions{group: "3"}, today)
	assert.ErrorIs(t, err, reporting.ErrIncompleteParams)

	_, err = exportParams(exports.KindProcessSummary, exportOptions{start: "05-03-2026"}, today)
	assert.Error(t, err)

	_, err = exportParams(exports.KindProcessSummary, exportOptions{start: "2026-03-05", end: "2026-03-01"}, today)
	assert.ErrorIs(t, err, reporting.ErrIncompleteParams)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := outputPath("", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got)

	got, err = outputPath(dir, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), got)

	target := filepath.Join(dir, "custom.pdf")
	got, err = outputPath(target, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestMigrateCommandIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	t.Setenv("DAILYREPORT_SQLITE_PATH", dbPath)

	run := func() string {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"migrate"})
		require.NoError(t, root.Execute())
		return out.String()
	}

	assert.Contains(t, run(), "2 migration(s) applied")
	assert.Contains(t, run(), "0 migration(s) applied")

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestExportRejectsUnknownKind(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export", "--kind", "stock"})
	assert.ErrorIs(t, root.Execute(), exports.ErrUnknownKind)
}
