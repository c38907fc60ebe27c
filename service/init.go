/*
 * @module service/init
 * @description 服务初始化模块，按配置装配数据源、缓存、锁、消息通道、监听器与调度器
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow 配置加载 -> 数据源 -> Redis(缓存/锁/限流/告警频道) -> 消息通道 -> 看板服务 -> 监听器 -> 调度器
 * @rules 只有数据源是必需依赖；Redis、Kafka、MQTT、变更通知缺失或失败时降级运行
 * @dependencies github.com/go-redis/redis/v8, github.com/prometheus/client_golang
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"plantops-service/client/connectors"
	"plantops-service/service/cache"
	"plantops-service/service/config"
	"plantops-service/service/dashboard"
	"plantops-service/service/datasource"
	"plantops-service/service/distributed_lock"
	"plantops-service/service/event"
	"plantops-service/service/monitoring"
	"plantops-service/service/rate_limiter"
	"plantops-service/service/scheduler"
)

// App 运行期依赖集合
type App struct {
	Config     *config.ApplicationConfig
	Metrics    *monitoring.Metrics
	Source     datasource.Source
	Redis      *redis.Client
	Cache      *cache.SnapshotCache
	Limiter    *rate_limiter.RedisRateLimiter
	Dashboard  *dashboard.Service
	Publishers []connectors.Publisher
	Listener   *event.ChangeListener
	Scheduler  *scheduler.ReportScheduler
}

// Initialize 按配置初始化所有服务
func Initialize(ctx context.Context, cfg *config.ApplicationConfig, reg prometheus.Registerer) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: monitoring.NewMetrics(reg),
	}

	source, err := datasource.GetGlobalRegistry().Create(ctx, cfg.DataSource)
	if err != nil {
		return nil, fmt.Errorf("初始化数据源失败: %w", err)
	}
	app.Source = source

	var ledger distributed_lock.RunLedger
	var snapshotCache dashboard.SnapshotCache
	if cfg.Redis.Enabled() {
		client, err := distributed_lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("Redis不可用，缓存与日报防重已禁用", "addr", cfg.Redis.Addr(), "error", err)
		} else {
			app.Redis = client
			app.Cache = cache.NewSnapshotCache(client, cfg.Redis.SnapshotTTL)
			snapshotCache = app.Cache
			ledger = distributed_lock.NewRedisLedger(client, "")
			if cfg.RateLimit.Enabled {
				app.Limiter = rate_limiter.NewRedisRateLimiter(client, "")
			}
		}
	} else if cfg.RateLimit.Enabled {
		slog.Warn("未配置Redis，接口限流已禁用")
	}

	app.Publishers = initPublishers(cfg.Messaging, app.Redis)
	app.Dashboard = dashboard.NewService(source, snapshotCache, app.Metrics, cfg.Ranking.TopN)

	if cfg.Events.Enabled {
		app.initChangeListener(ctx)
	}

	if cfg.Report.Enabled {
		app.Scheduler = scheduler.NewReportScheduler(cfg.Report, app.Dashboard, app.Publishers, ledger, app.Metrics)
		if err := app.Scheduler.Start(); err != nil {
			app.Shutdown()
			return nil, fmt.Errorf("启动日报调度器失败: %w", err)
		}
	}

	slog.Info("服务初始化完成",
		"data_source", source.Kind(),
		"redis", app.Redis != nil,
		"rate_limit", app.Limiter != nil,
		"publishers", len(app.Publishers),
		"events", app.Listener != nil,
		"report", app.Scheduler != nil)
	return app, nil
}

// initPublishers 创建已配置的告警投递通道，单个通道失败不影响其他通道
func initPublishers(cfg config.MessagingConfig, redisClient *redis.Client) []connectors.Publisher {
	publishers := make([]connectors.Publisher, 0, 3)

	if len(cfg.KafkaBrokers) > 0 {
		kc, err := connectors.NewKafkaConnector(&connectors.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			slog.Warn("创建Kafka告警通道失败", "error", err)
		} else {
			publishers = append(publishers, kc)
		}
	}

	if cfg.MQTTBroker != "" {
		mc, err := connectors.NewMQTTConnector(&connectors.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		})
		if err != nil {
			slog.Warn("创建MQTT告警通道失败", "broker", cfg.MQTTBroker, "error", err)
		} else {
			publishers = append(publishers, mc)
		}
	}

	if cfg.RedisChannel != "" {
		if redisClient == nil {
			slog.Warn("未启用Redis，忽略Redis告警频道", "channel", cfg.RedisChannel)
		} else if rc, err := connectors.NewRedisConnector(redisClient, cfg.RedisChannel); err != nil {
			slog.Warn("创建Redis告警通道失败", "error", err)
		} else {
			publishers = append(publishers, rc)
		}
	}
	return publishers
}

// initChangeListener 监听主数据变更通知并清除快照缓存
// 仅直连数据库时可用；PostgREST 模式下依赖缓存 TTL
func (a *App) initChangeListener(ctx context.Context) {
	dbSource, ok := a.Source.(*datasource.DatabaseSource)
	if !ok {
		slog.Warn("变更通知仅支持数据库数据源，已跳过", "data_source", a.Source.Kind())
		return
	}
	if a.Cache == nil {
		slog.Warn("未启用快照缓存，无需监听变更通知")
		return
	}

	if err := event.InstallTriggers(dbSource.DB(), a.Config.Events.Channel); err != nil {
		slog.Warn("安装变更触发器失败，继续监听已有通知", "error", err)
	}

	listener := event.NewChangeListener(a.Config.DataSource.Database.DSN(), a.Config.Events.Channel, a.Cache, a.Metrics)
	if err := listener.Start(ctx); err != nil {
		slog.Warn("启动变更监听器失败", "error", err)
		return
	}
	a.Listener = listener
}

// Shutdown 按启动的逆序释放资源
func (a *App) Shutdown() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Listener != nil {
		a.Listener.Stop()
	}
	for _, p := range a.Publishers {
		if err := p.Close(); err != nil {
			slog.Warn("关闭告警通道失败", "channel", p.Name(), "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("关闭Redis连接失败", "error", err)
		}
	}
	if a.Source != nil {
		if err := a.Source.Close(); err != nil {
			slog.Warn("关闭数据源失败", "error", err)
		}
	}
	slog.Info("服务已停止", "at", time.Now().Format(time.RFC3339))
}
