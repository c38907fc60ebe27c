/*
 * @module service/analytics/ranking_test
 * @description 操作员达成率排名单元测试
 * @architecture 测试层 - 纯函数测试，无外部依赖
 * @documentReference DESIGN.md
 * @stateFlow 构造读数 -> 排名 -> 输出验证
 * @rules 无检查记录的操作员不得出现在排行榜中
 * @dependencies testing, testify
 * @refs ranking.go
 */

package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops-service/service/models"
)

// scoredReading 生成 total 个检查中 inRange 个达标的读数，参数范围为 [0,10]
func scoredReading(parameterID, operator string, inRange, total int) models.HourlyReading {
	values := make([]float64, total)
	for i := range values {
		if i < inRange {
			values[i] = 5
		} else {
			values[i] = 50
		}
	}
	return newReading(parameterID, "2024-03-01", operator, values...)
}

func TestRankOperators_TopFour(t *testing.T) {
	params := []models.Parameter{newParameter("p", "Mill", "CM-1", 0, 10)}
	readings := []models.HourlyReading{
		scoredReading("p", "Eko", 6, 10),
		scoredReading("p", "Citra", 8, 10),
		scoredReading("p", "Ani", 10, 10),
		scoredReading("p", "Dewi", 7, 10),
		scoredReading("p", "Budi", 9, 10),
	}

	rankings := RankOperators(readings, params, nil, RankingOptions{TopN: 4})
	require.Len(t, rankings, 1)
	mill := rankings[0]
	assert.Equal(t, "Mill", mill.Category)
	assert.Equal(t, 5, mill.Candidates)
	require.Len(t, mill.Entries, 4)

	expected := []struct {
		name string
		pct  float64
	}{{"Ani", 100}, {"Budi", 90}, {"Citra", 80}, {"Dewi", 70}}
	for i, e := range expected {
		assert.Equal(t, i+1, mill.Entries[i].Rank)
		assert.Equal(t, e.name, mill.Entries[i].OperatorName)
		assert.Equal(t, e.pct, mill.Entries[i].Percentage)
		assert.Equal(t, 10, mill.Entries[i].Checks)
	}
	for _, entry := range mill.Entries {
		assert.NotEqual(t, "Eko", entry.OperatorName)
	}
}

func TestRankOperators_DefaultTopN(t *testing.T) {
	params := []models.Parameter{newParameter("p", "Mill", "CM-1", 0, 10)}
	readings := make([]models.HourlyReading, 0)
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		readings = append(readings, scoredReading("p", name, 1, 1))
	}

	rankings := RankOperators(readings, params, nil, RankingOptions{})
	require.Len(t, rankings, 1)
	assert.Len(t, rankings[0].Entries, DefaultTopN)
	assert.Equal(t, 6, rankings[0].Candidates)
}

func TestRankOperators_ZeroChecksExcluded(t *testing.T) {
	params := []models.Parameter{newParameter("p", "Mill", "CM-1", 0, 10)}
	readings := []models.HourlyReading{
		scoredReading("p", "Ani", 3, 4),
		// 只有空槽位的读数不产生检查
		newReading("p", "2024-03-01", "Ghost"),
		// 未登记操作员的读数被忽略
		scoredReading("p", "  ", 4, 4),
	}
	operators := []models.Operator{
		{ID: "op-1", Name: "Ani", Role: "Operator", Active: true},
		{ID: "op-2", Name: "Ghost", Role: "Operator", Active: true},
		{ID: "op-3", Name: "Idle", Role: "Supervisor", Active: false},
	}

	rankings := RankOperators(readings, params, operators, RankingOptions{TopN: 4})
	require.Len(t, rankings, 1)
	require.Len(t, rankings[0].Entries, 1)

	entry := rankings[0].Entries[0]
	assert.Equal(t, "Ani", entry.OperatorName)
	assert.Equal(t, "op-1", entry.OperatorID)
	assert.Equal(t, "Operator", entry.Role)
	assert.True(t, entry.Active)
	assert.Equal(t, 75.0, entry.Percentage)
	assert.Equal(t, 1, rankings[0].Candidates)
}

func TestRankOperators_AnyRangeCountsAsInRange(t *testing.T) {
	p := newParameter("p", "Mill", "CM-1", 0, 10)
	p.PCCMinValue = floatPtr(20)
	p.PCCMaxValue = floatPtr(30)

	readings := []models.HourlyReading{
		newReading("p", "2024-03-01", "Ani", 5, 25, 15),
	}

	rankings := RankOperators(readings, []models.Parameter{p}, nil, RankingOptions{})
	require.Len(t, rankings, 1)
	entry := rankings[0].Entries[0]
	assert.Equal(t, 3, entry.Checks)
	assert.Equal(t, 2, entry.InRange)
	assert.Equal(t, 66.7, entry.Percentage)

	require.Len(t, entry.Parameters, 1)
	breakdown := entry.Parameters[0]
	assert.Equal(t, "p", breakdown.ParameterID)
	assert.Equal(t, 66.7, breakdown.Percentage)
	// 展示用范围为通用范围
	assert.Equal(t, 0.0, *breakdown.Bounds.Min)
	assert.Equal(t, 10.0, *breakdown.Bounds.Max)
}

func TestRankOperators_TieBreak(t *testing.T) {
	params := []models.Parameter{newParameter("p", "Mill", "CM-1", 0, 10)}
	readings := []models.HourlyReading{
		scoredReading("p", "Xavier", 2, 2),
		scoredReading("p", "Zainal", 4, 4),
		scoredReading("p", "Yusuf", 4, 4),
	}

	rankings := RankOperators(readings, params, nil, RankingOptions{TopN: 3})
	require.Len(t, rankings[0].Entries, 3)
	assert.Equal(t, "Yusuf", rankings[0].Entries[0].OperatorName)
	assert.Equal(t, "Zainal", rankings[0].Entries[1].OperatorName)
	assert.Equal(t, "Xavier", rankings[0].Entries[2].OperatorName)
}

func TestRankOperators_PerCategory(t *testing.T) {
	params := []models.Parameter{
		newParameter("mill-1", "Mill", "CM-1", 0, 10),
		newParameter("mill-2", "Mill", "CM-1", 0, 10),
		newParameter("kiln-1", "Kiln", "K-1", 0, 10),
	}
	readings := []models.HourlyReading{
		scoredReading("mill-2", "Ani", 1, 2),
		scoredReading("mill-1", "Ani", 2, 2),
		scoredReading("kiln-1", "Ani", 0, 2),
		scoredReading("kiln-1", "Budi", 2, 2),
		scoredReading("unknown", "Budi", 2, 2),
	}

	rankings := RankOperators(readings, params, nil, RankingOptions{})
	require.Len(t, rankings, 2)
	assert.Equal(t, "Kiln", rankings[0].Category)
	assert.Equal(t, "Mill", rankings[1].Category)

	kiln := rankings[0]
	require.Len(t, kiln.Entries, 2)
	assert.Equal(t, "Budi", kiln.Entries[0].OperatorName)
	assert.Equal(t, 0.0, kiln.Entries[1].Percentage)

	mill := rankings[1]
	require.Len(t, mill.Entries, 1)
	ani := mill.Entries[0]
	assert.Equal(t, 4, ani.Checks)
	assert.Equal(t, 75.0, ani.Percentage)
	require.Len(t, ani.Parameters, 2)
	// 参数明细按参数输入顺序排列
	assert.Equal(t, "mill-1", ani.Parameters[0].ParameterID)
	assert.Equal(t, "mill-2", ani.Parameters[1].ParameterID)
}

func TestRankOperators_Empty(t *testing.T) {
	assert.Empty(t, RankOperators(nil, nil, nil, RankingOptions{}))
	params := []models.Parameter{newParameter("p", "Mill", "CM-1", 0, 10)}
	assert.Empty(t, RankOperators(nil, params, []models.Operator{{Name: "Ani"}}, RankingOptions{}))
}
