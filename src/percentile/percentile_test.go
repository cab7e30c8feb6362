package percentile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_TwoEqualWeights(t *testing.T) {
	samples := []Sample{
		{Key: 1, Value: 100, Weight: 0.5},
		{Key: 2, Value: 50, Weight: 0.5},
	}
	res := Compute(samples, Default)

	// After sorting [50, 100]: cumulative 0.5 then 1.0
	assert.Equal(t, 50.0, res.Values[0])
	assert.Equal(t, 50.0, res.Values[2])
	assert.Equal(t, 50.0, res.Values[25])
	assert.Equal(t, 50.0, res.Values[50])
	assert.Equal(t, 100.0, res.Values[75])
	assert.Equal(t, 100.0, res.Values[98])
	assert.Equal(t, 100.0, res.Values[100])

	assert.Equal(t, 0.0, res.Ranks[2])
	assert.Equal(t, 0.5, res.Ranks[1])
}

func TestCompute_UnevenWeights(t *testing.T) {
	samples := []Sample{
		{Key: 1, Value: 10, Weight: 0.1},
		{Key: 2, Value: 20, Weight: 0.6},
		{Key: 3, Value: 30, Weight: 0.3},
	}
	res := Compute(samples, []float64{0, 10, 50, 70, 71, 100})

	assert.Equal(t, 10.0, res.Values[0])
	assert.Equal(t, 10.0, res.Values[10])
	assert.Equal(t, 20.0, res.Values[50])
	assert.Equal(t, 20.0, res.Values[70])
	assert.Equal(t, 30.0, res.Values[71])
	assert.Equal(t, 30.0, res.Values[100])
}

func TestCompute_HundredthFallsBackToMax(t *testing.T) {
	// Ten weights of 0.1 sum to 0.9999999999999999 in float64
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = Sample{Key: int64(i), Value: float64(i), Weight: 0.1}
	}
	res := Compute(samples, Default)

	assert.Equal(t, 9.0, res.Values[100])
	assert.Equal(t, 0.0, res.Values[0])
}

func TestCompute_TiesKeepInputOrder(t *testing.T) {
	samples := []Sample{
		{Key: 7, Value: 5, Weight: 0.25},
		{Key: 3, Value: 5, Weight: 0.25},
		{Key: 9, Value: 5, Weight: 0.5},
	}
	res := Compute(samples, Default)

	assert.Equal(t, 0.0, res.Ranks[7])
	assert.Equal(t, 0.25, res.Ranks[3])
	assert.Equal(t, 0.5, res.Ranks[9])
}

func TestCompute_Empty(t *testing.T) {
	res := Compute(nil, Default)
	for _, p := range Default {
		assert.Equal(t, 0.0, res.Values[p])
	}
	assert.Empty(t, res.Ranks)
}

func TestCompute_DoesNotReorderInput(t *testing.T) {
	samples := []Sample{{Key: 1, Value: 3, Weight: 0.5}, {Key: 2, Value: 1, Weight: 0.5}}
	Compute(samples, Default)
	assert.Equal(t, int64(1), samples[0].Key)
}

func TestCompute_MonotonicAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		samples := make([]Sample, n)
		raw := make([]float64, n)
		var total float64
		for i := range raw {
			raw[i] = rng.Float64() + 0.01
			total += raw[i]
		}
		minValue, maxValue := 1e18, -1e18
		for i := range samples {
			v := rng.NormFloat64() * 100
			samples[i] = Sample{Key: int64(i), Value: v, Weight: raw[i] / total}
			minValue = min(minValue, v)
			maxValue = max(maxValue, v)
		}

		res := Compute(samples, Default)
		for i := 1; i < len(Default); i++ {
			assert.LessOrEqual(t, res.Values[Default[i-1]], res.Values[Default[i]])
		}
		assert.Equal(t, minValue, res.Values[0])
		assert.Equal(t, maxValue, res.Values[100])
	}
}

func TestFill_ZeroFillsOmittedMembers(t *testing.T) {
	members := []int64{10, 20, 30, 40}
	observed := map[int64]float64{20: 5, 40: 8}
	samples := Fill(members, observed, func(int64) float64 { return 0.25 })

	require.Len(t, samples, 4)
	assert.Equal(t, Sample{Key: 10, Value: 0, Weight: 0.25}, samples[0])
	assert.Equal(t, Sample{Key: 20, Value: 5, Weight: 0.25}, samples[1])

	// Without the zeros the median would be 5; with them it is 0
	res := Compute(samples, []float64{50})
	assert.Equal(t, 0.0, res.Values[50])
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "percentile_0", Label(0))
	assert.Equal(t, "percentile_2.5", Label(2.5))
	assert.Equal(t, "percentile_100", Label(100))
}
