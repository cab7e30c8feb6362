package browse

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/switchsum/src/report"
)

func setup(t *testing.T) (*Browser, *bytes.Buffer) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	require.NoError(t, report.Write(dir, 7, []report.Table{
		{
			Name:   "gen_summary_tech.txt",
			Header: []string{"period", "technology", "capacity"},
			Rows: [][]string{
				{"2020", report.Quote("Gas"), "200"},
				{"2020", report.Quote("Wind"), "350"},
				{"2030", report.Quote("Gas"), "not-a-number"},
				{"2030", report.Quote("Wind"), "50"},
			},
		},
		{Name: "empty.txt", Header: []string{"period"}},
	}, logger))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a report\n"), 0o644))

	var out bytes.Buffer
	b := New([]string{dir, filepath.Join(dir, "absent")}, &out, logger)
	require.NoError(t, b.Refresh())
	return b, &out
}

func lines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestRefresh_OnlyReports(t *testing.T) {
	b, _ := setup(t)
	assert.Equal(t, []string{"empty", "gen_summary_tech"}, b.Names())
}

func TestHandle_Reports(t *testing.T) {
	b, out := setup(t)
	require.NoError(t, b.Handle("reports"))
	assert.Equal(t, []string{"Reports (2):", "  empty", "  gen_summary_tech"}, lines(out))
}

func TestHandle_Show(t *testing.T) {
	b, out := setup(t)
	require.NoError(t, b.Handle("show gen_summary_tech technology=Gas"))

	got := lines(out)
	require.Len(t, got, 4)
	assert.Equal(t, "scenario_id | period | technology |     capacity", got[0])
	assert.Equal(t, "          7 |   2020 |        Gas |          200", got[1])
	assert.Equal(t, "(2 rows)", got[3])
}

func TestHandle_ShowEmpty(t *testing.T) {
	b, out := setup(t)
	require.NoError(t, b.Handle("show empty.txt"))
	assert.Equal(t, []string{"scenario_id | period", "(0 rows)"}, lines(out))
}

func TestHandle_Top(t *testing.T) {
	b, out := setup(t)
	require.NoError(t, b.Handle("top gen_summary_tech capacity 3"))

	got := lines(out)
	require.Len(t, got, 5)
	assert.Contains(t, got[1], "350")
	assert.Contains(t, got[2], "200")
	assert.Contains(t, got[3], "50")
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"show", "usage: show"},
		{"show nope", "no report named nope"},
		{"show gen_summary_tech technology", "not column=value"},
		{"show gen_summary_tech fuel=Gas", "no column fuel"},
		{"top gen_summary_tech", "usage: top"},
		{"top gen_summary_tech capacity zero", "positive integer"},
		{"frobnicate", "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			b, _ := setup(t)
			assert.ErrorContains(t, b.Handle(tt.cmd), tt.want)
		})
	}
}

func TestHandle_Blank(t *testing.T) {
	b, out := setup(t)
	assert.NoError(t, b.Handle("   "))
	assert.Empty(t, out.String())
}

func TestHistoryFilePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "switchsum", "browse_history"), historyFilePath())
	assert.DirExists(t, filepath.Join(dir, "switchsum"))
}
