/*
 * @module service/analytics/compliance_test
 * @description 范围解析与合规百分比计算单元测试
 * @architecture 测试层 - 纯函数测试，无外部依赖
 * @documentReference DESIGN.md
 * @stateFlow 参数/读数 -> 函数调用 -> 输出验证
 * @rules 无效范围与缺失值必须返回 nil，不能返回 0
 * @dependencies testing, testify
 * @refs compliance.go, range_resolver.go
 */

package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops-service/service/models"
)

func TestParseMaterialType(t *testing.T) {
	assert.Equal(t, MaterialOPC, ParseMaterialType("opc"))
	assert.Equal(t, MaterialPCC, ParseMaterialType(" PCC "))
	assert.Equal(t, MaterialGeneral, ParseMaterialType(""))
	assert.Equal(t, MaterialGeneral, ParseMaterialType("SRC"))
}

func TestResolveRange(t *testing.T) {
	p := models.Parameter{
		ID:          "p1",
		MinValue:    floatPtr(10),
		MaxValue:    floatPtr(20),
		OPCMinValue: floatPtr(12),
		OPCMaxValue: floatPtr(18),
		PCCMinValue: floatPtr(8),
	}

	testCases := []struct {
		name     string
		material MaterialType
		min, max float64
	}{
		{name: "通用上下文使用通用范围", material: MaterialGeneral, min: 10, max: 20},
		{name: "OPC范围完整时使用OPC范围", material: MaterialOPC, min: 12, max: 18},
		{name: "PCC范围只给出下限时回退通用范围", material: MaterialPCC, min: 10, max: 20},
		{name: "未知物料回退通用范围", material: MaterialType("SRC"), min: 10, max: 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := ResolveRange(&p, tc.material)
			require.True(t, b.Defined())
			assert.Equal(t, tc.min, *b.Min)
			assert.Equal(t, tc.max, *b.Max)
		})
	}

	t.Run("参数为空返回未定义范围", func(t *testing.T) {
		assert.False(t, ResolveRange(nil, MaterialOPC).Defined())
	})
}

func TestBoundsValidity(t *testing.T) {
	assert.True(t, NewBounds(0, 1).Valid())
	assert.False(t, NewBounds(5, 5).Valid())
	assert.False(t, NewBounds(6, 5).Valid())
	assert.True(t, NewBounds(6, 5).Defined())
	assert.False(t, Bounds{Min: floatPtr(1)}.Defined())
	assert.False(t, NewBounds(math.Inf(-1), 5).Defined())
}

func TestComputeCompliance(t *testing.T) {
	testCases := []struct {
		name     string
		value    *float64
		bounds   Bounds
		expected *float64
	}{
		{name: "下限为0", value: floatPtr(10), bounds: NewBounds(10, 20), expected: floatPtr(0)},
		{name: "上限为100", value: floatPtr(20), bounds: NewBounds(10, 20), expected: floatPtr(100)},
		{name: "中点为50", value: floatPtr(15), bounds: NewBounds(10, 20), expected: floatPtr(50)},
		{name: "低于下限为负数", value: floatPtr(5), bounds: NewBounds(10, 20), expected: floatPtr(-50)},
		{name: "上下限相等无法计算", value: floatPtr(15), bounds: NewBounds(10, 10), expected: nil},
		{name: "上限小于下限无法计算", value: floatPtr(15), bounds: NewBounds(20, 10), expected: nil},
		{name: "缺少上限无法计算", value: floatPtr(15), bounds: Bounds{Min: floatPtr(10)}, expected: nil},
		{name: "缺失值无法计算", value: nil, bounds: NewBounds(10, 20), expected: nil},
		{name: "NaN无法计算", value: floatPtr(math.NaN()), bounds: NewBounds(10, 20), expected: nil},
		{name: "正无穷无法计算", value: floatPtr(math.Inf(1)), bounds: NewBounds(10, 20), expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ComputeCompliance(tc.value, tc.bounds)
			if tc.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.InDelta(t, *tc.expected, *result, 1e-9)
		})
	}
}

func TestComputeCompliance_Monotonic(t *testing.T) {
	b := NewBounds(-3.5, 42)
	prev := math.Inf(-1)
	for v := -20.0; v <= 60; v += 0.5 {
		pct := ComputeCompliance(floatPtr(v), b)
		require.NotNil(t, pct)
		assert.Greater(t, *pct, prev)
		prev = *pct
	}
}

func TestComputeCompliance_OPCContext(t *testing.T) {
	p := models.Parameter{
		MinValue:    floatPtr(10),
		MaxValue:    floatPtr(20),
		OPCMinValue: floatPtr(12),
		OPCMaxValue: floatPtr(18),
	}

	pct := ComputeCompliance(floatPtr(19), ResolveRange(&p, MaterialOPC))
	require.NotNil(t, pct)
	assert.InDelta(t, 116.67, *pct, 0.005)

	// 同一个值在通用范围下仍然达标
	pct = ComputeCompliance(floatPtr(19), ResolveRange(&p, MaterialGeneral))
	require.NotNil(t, pct)
	assert.InDelta(t, 90, *pct, 1e-9)
}

func TestInAnyRangeVersusInContextRange(t *testing.T) {
	p := models.Parameter{
		MinValue:    floatPtr(10),
		MaxValue:    floatPtr(20),
		OPCMinValue: floatPtr(12),
		OPCMaxValue: floatPtr(18),
		PCCMinValue: floatPtr(25),
		PCCMaxValue: floatPtr(30),
	}

	// 27 只落在 PCC 范围内
	assert.True(t, InAnyRange(&p, 27))
	assert.False(t, InContextRange(27, ResolveRange(&p, MaterialOPC)))
	assert.False(t, InContextRange(27, ResolveRange(&p, MaterialGeneral)))
	assert.True(t, InContextRange(27, ResolveRange(&p, MaterialPCC)))

	// 闭区间
	assert.True(t, InAnyRange(&p, 10))
	assert.True(t, InAnyRange(&p, 30))
	assert.False(t, InAnyRange(&p, 22))
	assert.False(t, InAnyRange(&p, math.NaN()))

	t.Run("没有任何已定义范围时不达标", func(t *testing.T) {
		empty := models.Parameter{}
		assert.Empty(t, DefinedRanges(&empty))
		assert.False(t, InAnyRange(&empty, 0))
	})
}
