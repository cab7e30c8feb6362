package tabfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRead_PlainHeader(t *testing.T) {
	path := writeFile(t, "gen_cap_0.txt", "period\ttechnology\tcapacity\n2020\tCCGT\t100.5\n2030\tWind\t40\n")

	table, err := Read(path, Options{})
	require.NoError(t, err)
	assert.False(t, table.Missing)
	require.Len(t, table.Rows, 2)

	period, err := table.Rows[0].Int("period")
	require.NoError(t, err)
	assert.Equal(t, 2020, period)

	tech, err := table.Rows[1].String("technology")
	require.NoError(t, err)
	assert.Equal(t, "Wind", tech)

	capacity, err := table.Rows[0].Float("capacity")
	require.NoError(t, err)
	assert.Equal(t, 100.5, capacity)
}

func TestRead_SkipsAMPLHeader(t *testing.T) {
	path := writeFile(t, "study_hours.tab", "ampl.tab 1 3\nhour\tperiod\tdate\n2020011500\t2020\t20200115\n")

	table, err := Read(path, Options{AMPLHeader: true})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.True(t, table.Header.Has("hour"))

	hour, err := table.Rows[0].Int64("hour")
	require.NoError(t, err)
	assert.Equal(t, int64(2020011500), hour)
}

func TestRead_MissingFileIsNotAnError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	table, err := Read(filepath.Join(t.TempDir(), "nope.txt"), Options{Logger: logger})

	require.NoError(t, err)
	assert.True(t, table.Missing)
	assert.Empty(t, table.Rows)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRead_HeaderOnly(t *testing.T) {
	path := writeFile(t, "empty.txt", "period\tpower\n")
	table, err := Read(path, Options{})
	require.NoError(t, err)
	assert.False(t, table.Missing)
	assert.Empty(t, table.Rows)
	require.NotNil(t, table.Header)
	assert.Equal(t, []string{"period", "power"}, table.Header.Names)
}

func TestRow_MalformedNumberIsFatal(t *testing.T) {
	path := writeFile(t, "bad.txt", "period\tpower\n2020\tlots\n")
	table, err := Read(path, Options{})
	require.NoError(t, err)

	_, err = table.Rows[0].Float("power")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRow_UnknownColumn(t *testing.T) {
	path := writeFile(t, "t.txt", "period\n2020\n")
	table, err := Read(path, Options{})
	require.NoError(t, err)

	_, err = table.Rows[0].Float("power")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRead_RaggedRowIsFatal(t *testing.T) {
	path := writeFile(t, "ragged.txt", "a\tb\tc\n1\t2\n")
	_, err := Read(path, Options{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRow_PositionalAccess(t *testing.T) {
	path := writeFile(t, "ng_consumed_10.txt", "x\ty\tperiod\tz\tconsumption\na\tb\t2030\tc\t12.5\n")
	table, err := Read(path, Options{})
	require.NoError(t, err)

	period, err := table.Rows[0].IntAt(2)
	require.NoError(t, err)
	assert.Equal(t, 2030, period)

	consumption, err := table.Rows[0].FloatAt(4)
	require.NoError(t, err)
	assert.Equal(t, 12.5, consumption)

	_, err = table.Rows[0].FloatAt(9)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRow_IntAcceptsIntegralFloat(t *testing.T) {
	path := writeFile(t, "t.txt", "period\tbad\n2020.0\t2020.5\n")
	table, err := Read(path, Options{})
	require.NoError(t, err)

	period, err := table.Rows[0].Int("period")
	require.NoError(t, err)
	assert.Equal(t, 2020, period)

	_, err = table.Rows[0].Int("bad")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestScan_StopsOnCallbackError(t *testing.T) {
	path := writeFile(t, "t.txt", "v\n1\n2\n3\n")
	seen := 0
	_, err := Scan(path, Options{}, func(r Row) error {
		seen++
		if seen == 2 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, seen)
}
