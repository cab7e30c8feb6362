package timeindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPeriodSchedule has two dates in 2020 and one in 2030, with uneven sample weights
func twoPeriodSchedule() []Sample {
	return []Sample{
		{Timepoint: 2020011504, Period: 2020, Date: 20200115, HoursInSample: 100},
		{Timepoint: 2020011500, Period: 2020, Date: 20200115, HoursInSample: 100},
		{Timepoint: 2020011508, Period: 2020, Date: 20200115, HoursInSample: 100},
		{Timepoint: 2020071512, Period: 2020, Date: 20200715, HoursInSample: 300},
		{Timepoint: 2020071516, Period: 2020, Date: 20200715, HoursInSample: 400},
		{Timepoint: 2030011500, Period: 2030, Date: 20300115, HoursInSample: 7},
		{Timepoint: 2030011512, Period: 2030, Date: 20300115, HoursInSample: 13},
	}
}

func TestBuild_WeightConservation(t *testing.T) {
	ix, err := Build(twoPeriodSchedule(), 10)
	require.NoError(t, err)

	for _, start := range ix.Periods() {
		p, ok := ix.Period(start)
		require.True(t, ok)

		var sum, hours float64
		for _, id := range p.Timepoints {
			tp, _ := ix.Timepoint(id)
			sum += tp.Weight
			hours += tp.HoursInSample
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "period %d", start)
		assert.Equal(t, p.HoursInPeriod, hours)
	}
}

func TestBuild_HoursPerYearAndWeight(t *testing.T) {
	ix, err := Build(twoPeriodSchedule(), 10)
	require.NoError(t, err)

	tp, ok := ix.Timepoint(2020071516)
	require.True(t, ok)
	// 400 of the 1000 sampled hours in 2020, spread over 10 years
	assert.InDelta(t, 0.4, tp.Weight, 1e-12)
	assert.InDelta(t, 40.0, tp.HoursPerYear, 1e-12)
	assert.Equal(t, 7, tp.MonthOfYear)
	assert.Equal(t, 16, tp.HourOfDay)
}

func TestBuild_NeighboursWrapWithinDate(t *testing.T) {
	ix, err := Build(twoPeriodSchedule(), 10)
	require.NoError(t, err)

	tests := []struct {
		id          int64
		prior, next int64
	}{
		{2020011500, 2020011508, 2020011504}, // first of date looks back to the date's last
		{2020011504, 2020011500, 2020011508},
		{2020011508, 2020011504, 2020011500}, // last of date wraps forward to the first
		{2020071512, 2020071516, 2020071516},
		{2030011500, 2030011512, 2030011512},
	}
	for _, tt := range tests {
		tp, ok := ix.Timepoint(tt.id)
		require.True(t, ok)
		assert.Equal(t, tt.prior, tp.Prior, "prior of %d", tt.id)
		assert.Equal(t, tt.next, tp.Next, "next of %d", tt.id)
	}
}

func TestBuild_SingleHourDateIsItsOwnNeighbour(t *testing.T) {
	ix, err := Build([]Sample{{Timepoint: 2020011500, Period: 2020, Date: 1, HoursInSample: 8766}}, 1)
	require.NoError(t, err)
	tp, _ := ix.Timepoint(2020011500)
	assert.Equal(t, tp.ID, tp.Prior)
	assert.Equal(t, tp.ID, tp.Next)
}

func TestBuild_DerivesYearsFromHours(t *testing.T) {
	// 10 years of hours split across two samples
	ix, err := Build([]Sample{
		{Timepoint: 1, Period: 2020, Date: 1, HoursInSample: 43830},
		{Timepoint: 2, Period: 2020, Date: 1, HoursInSample: 43830},
	}, 0)
	require.NoError(t, err)
	p, _ := ix.Period(2020)
	assert.Equal(t, 10.0, p.NumYears)

	tp, _ := ix.Timepoint(1)
	assert.Equal(t, 4383.0, tp.HoursPerYear)
	assert.Equal(t, 0, tp.MonthOfYear)
}

func TestBuild_EmptyPeriodIsFatal(t *testing.T) {
	_, err := Build([]Sample{{Timepoint: 1, Period: 2020, Date: 1, HoursInSample: 0}}, 10)
	assert.ErrorIs(t, err, ErrEmptyPeriod)
}

func TestBuild_TooFewHoursToDeriveYears(t *testing.T) {
	_, err := Build([]Sample{{Timepoint: 1, Period: 2020, Date: 1, HoursInSample: 100}}, 0)
	assert.ErrorIs(t, err, ErrEmptyPeriod)
}

func TestBuild_DuplicateTimepoint(t *testing.T) {
	_, err := Build([]Sample{
		{Timepoint: 1, Period: 2020, Date: 1, HoursInSample: 1},
		{Timepoint: 1, Period: 2020, Date: 1, HoursInSample: 1},
	}, 1)
	assert.ErrorIs(t, err, ErrDuplicateTimepoint)
}

func TestLoad_StudyHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study_hours.tab")
	body := "ampl.tab 1 3\n" +
		"hour\tperiod\tdate\thours_in_sample\n" +
		"2020011500\t2020\t20200115\t500\n" +
		"2020011512\t2020\t20200115\t1500\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	ix, err := Load(path, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2020}, ix.Periods())
	assert.Equal(t, 2, ix.Len())

	tp, _ := ix.Timepoint(2020011512)
	assert.InDelta(t, 0.75, tp.Weight, 1e-12)
	assert.InDelta(t, 750.0, tp.HoursPerYear, 1e-12)
}

func TestLoad_MissingScheduleIsFatal(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Load(filepath.Join(t.TempDir(), "study_hours.tab"), 10, logger)
	assert.Error(t, err)
}
