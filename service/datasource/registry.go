/*
 * @module service/datasource/registry
 * @description 数据源注册中心，负责数据源类型的注册与按配置创建实例
 * @architecture 注册中心模式 + 单例模式 - 统一管理所有数据源类型
 * @documentReference DESIGN.md
 * @stateFlow 初始化 -> 注册内置类型 -> 按配置创建实例
 * @rules 未注册的类型返回 ErrUnsupportedSource
 * @dependencies sync, log/slog
 * @refs interface.go, postgrest_source.go, database_source.go
 */

package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"plantops-service/service/config"
)

// SourceCreator 数据源创建函数
type SourceCreator func(ctx context.Context, cfg config.DataSourceConfig) (Source, error)

// SourceRegistry 数据源注册中心
type SourceRegistry struct {
	mu       sync.RWMutex
	creators map[string]SourceCreator
}

// 全局注册中心实例
var (
	globalRegistry *SourceRegistry
	registryOnce   sync.Once
)

// GetGlobalRegistry 获取全局数据源注册中心实例
func GetGlobalRegistry() *SourceRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewSourceRegistry()
	})
	return globalRegistry
}

// NewSourceRegistry 创建数据源注册中心，并注册内置类型
func NewSourceRegistry() *SourceRegistry {
	registry := &SourceRegistry{creators: make(map[string]SourceCreator)}

	if err := registry.RegisterType(config.SourcePostgREST, NewPostgRESTSourceFromConfig); err != nil {
		slog.Error("注册PostgREST数据源失败", "error", err)
	}
	if err := registry.RegisterType(config.SourceDatabase, NewDatabaseSourceFromConfig); err != nil {
		slog.Error("注册数据库数据源失败", "error", err)
	}
	return registry
}

// RegisterType 注册数据源类型
func (r *SourceRegistry) RegisterType(kind string, creator SourceCreator) error {
	if kind == "" {
		return fmt.Errorf("数据源类型不能为空")
	}
	if creator == nil {
		return fmt.Errorf("数据源 %s 的创建函数不能为空", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[kind] = creator
	return nil
}

// GetSupportedTypes 获取支持的数据源类型
func (r *SourceRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.creators))
	for kind := range r.creators {
		types = append(types, kind)
	}
	sort.Strings(types)
	return types
}

// Create 按配置创建数据源实例
func (r *SourceRegistry) Create(ctx context.Context, cfg config.DataSourceConfig) (Source, error) {
	r.mu.RLock()
	creator, ok := r.creators[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, cfg.Kind)
	}

	source, err := creator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建数据源 %s 失败: %w", cfg.Kind, err)
	}
	slog.Info("数据源创建成功", "kind", cfg.Kind)
	return source, nil
}
