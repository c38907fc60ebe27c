package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPearsonCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}

	t.Run("与自身完全正相关", func(t *testing.T) {
		r, err := PearsonCorrelation(x, x)
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.InDelta(t, 1, *r, 1e-9)
	})

	t.Run("与相反数完全负相关", func(t *testing.T) {
		neg := make([]float64, len(x))
		for i, v := range x {
			neg[i] = -v
		}
		r, err := PearsonCorrelation(x, neg)
		require.NoError(t, err)
		assert.InDelta(t, -1, *r, 1e-9)
	})

	t.Run("噪声越小越接近1", func(t *testing.T) {
		noise := []float64{0.3, -0.2, 0.1, -0.3, 0.2, -0.1}
		prev := -1.0
		for _, scale := range []float64{1, 0.1, 0.01} {
			y := make([]float64, len(x))
			for i := range x {
				y[i] = x[i] + noise[i]*scale
			}
			r, err := PearsonCorrelation(x, y)
			require.NoError(t, err)
			assert.Greater(t, *r, prev)
			prev = *r
		}
		assert.InDelta(t, 1, prev, 1e-4)
	})

	t.Run("长度不一致返回错误", func(t *testing.T) {
		_, err := PearsonCorrelation(x, x[:3])
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("点数不足返回nil", func(t *testing.T) {
		r, err := PearsonCorrelation([]float64{1, 2}, []float64{2, 4})
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("方差为0返回nil", func(t *testing.T) {
		r, err := PearsonCorrelation([]float64{1, 2, 3}, []float64{5, 5, 5})
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}

func TestClassifyCorrelation(t *testing.T) {
	assert.Equal(t, StrengthStrong, ClassifyCorrelation(floatPtr(-0.8)))
	assert.Equal(t, StrengthModerate, ClassifyCorrelation(floatPtr(0.5)))
	assert.Equal(t, StrengthWeak, ClassifyCorrelation(floatPtr(-0.31)))
	assert.Equal(t, StrengthNone, ClassifyCorrelation(floatPtr(0.1)))
	assert.Equal(t, StrengthNone, ClassifyCorrelation(floatPtr(0)))
	assert.Equal(t, StrengthUndefined, ClassifyCorrelation(nil))
}

func TestComputeCorrelationMatrix(t *testing.T) {
	dates := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}
	values := func(vs ...float64) map[string]*float64 {
		m := make(map[string]*float64)
		for i, v := range vs {
			m[dates[i]] = floatPtr(v)
		}
		return m
	}

	sparse := map[string]*float64{dates[0]: floatPtr(1), dates[1]: floatPtr(2), dates[2]: nil}
	input := []ParameterSeries{
		{ParameterID: "a", ParameterName: "A", Values: values(1, 2, 3, 4)},
		{ParameterID: "sparse", ParameterName: "S", Values: sparse},
		{ParameterID: "b", ParameterName: "B", Values: values(1, 3, 2, 4)},
		{ParameterID: "c", ParameterName: "C", Values: values(8, 6, 4, 2)},
	}

	pairs, err := ComputeCorrelationMatrix(input)
	require.NoError(t, err)
	require.Len(t, pairs, 6)

	// a-c 完全负相关排第一
	assert.Equal(t, "a", pairs[0].ParameterA)
	assert.Equal(t, "c", pairs[0].ParameterB)
	assert.InDelta(t, -1, *pairs[0].Coefficient, 1e-9)
	assert.Equal(t, StrengthStrong, pairs[0].Strength)
	assert.Equal(t, 4, pairs[0].SampleSize)

	// 与 sparse 的配对点只有2个，全部未定义且排在最后，保持输入顺序
	for _, p := range pairs[3:] {
		assert.Nil(t, p.Coefficient)
		assert.Equal(t, StrengthUndefined, p.Strength)
		assert.Equal(t, 2, p.SampleSize)
	}
	assert.Equal(t, "a", pairs[3].ParameterA)
	assert.Equal(t, "sparse", pairs[4].ParameterA)
	assert.Equal(t, "b", pairs[4].ParameterB)
	assert.Equal(t, "sparse", pairs[5].ParameterA)
	assert.Equal(t, "c", pairs[5].ParameterB)

	for i := 1; i < 3; i++ {
		assert.GreaterOrEqual(t, abs(*pairs[i-1].Coefficient), abs(*pairs[i].Coefficient))
	}

	t.Run("少于两个序列时没有配对", func(t *testing.T) {
		pairs, err := ComputeCorrelationMatrix(input[:1])
		require.NoError(t, err)
		assert.Empty(t, pairs)

		pairs, err = ComputeCorrelationMatrix(nil)
		require.NoError(t, err)
		assert.Empty(t, pairs)
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSeriesFromRows(t *testing.T) {
	rows := []ComplianceRow{
		{ParameterID: "b", ParameterName: "B", Date: "2024-03-01", RawValue: floatPtr(2)},
		{ParameterID: "a", ParameterName: "A", Date: "2024-03-01", RawValue: floatPtr(1)},
		{ParameterID: "b", ParameterName: "B", Date: "2024-03-02", RawValue: floatPtr(3)},
	}

	result := SeriesFromRows(rows)
	require.Len(t, result, 2)
	assert.Equal(t, "b", result[0].ParameterID)
	assert.Len(t, result[0].Values, 2)
	assert.Equal(t, 1.0, *result[1].Values["2024-03-01"])
}
