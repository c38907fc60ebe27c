/*
 * @module api/controllers/health_controller_test
 * @description 健康检查控制器单元测试
 * @architecture 测试层
 * @documentReference DESIGN.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 就绪检查失败返回503
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

func TestHealthController_Health(t *testing.T) {
	controller := NewHealthController(nil, "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	controller.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	require.NotNil(t, response.Runtime)
	assert.Greater(t, response.Runtime.GoroutineCount, 0)
}

func TestHealthController_Ready(t *testing.T) {
	t.Run("数据源可用", func(t *testing.T) {
		controller := NewHealthController(readyFunc(func(ctx context.Context) error { return nil }), "1.0.0")

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		controller.Ready(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ready"`)
	})

	t.Run("数据源不可用", func(t *testing.T) {
		controller := NewHealthController(readyFunc(func(ctx context.Context) error {
			return errors.New("dial tcp: connection refused")
		}), "1.0.0")

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		controller.Ready(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "unavailable", response.Status)
		assert.Contains(t, response.Error, "connection refused")
	})
}
