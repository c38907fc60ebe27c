/*
 * @module service/event/change_listener
 * @description 主数据变更监听，收到 PostgreSQL 通知后使主数据快照缓存失效
 * @architecture 事件驱动 - LISTEN/NOTIFY
 * @documentReference DESIGN.md
 * @stateFlow 触发器 pg_notify -> pq.Listener -> 解析通知 -> 缓存失效
 * @rules 只处理参数与操作员表的变更；监听器重连后无条件失效一次，避免遗漏通知
 * @dependencies github.com/lib/pq, gorm.io/gorm
 * @refs service/cache/snapshot_cache.go, main.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"plantops-service/service/models"
	"plantops-service/service/monitoring"
)

// DefaultChannel 默认通知通道
const DefaultChannel = "plantops_changes"

// ChangeEvent 数据库变更通知内容
type ChangeEvent struct {
	Table     string  `json:"table"`
	Type      string  `json:"type"` // INSERT, UPDATE, DELETE
	RecordID  string  `json:"record_id"`
	Timestamp float64 `json:"timestamp"`
}

// Invalidator 可失效的缓存
type Invalidator interface {
	Evict(ctx context.Context) (int64, error)
}

// WatchedTables 影响主数据快照的表
func WatchedTables() []string {
	return []string{
		models.Parameter{}.TableName(),
		models.Operator{}.TableName(),
	}
}

// ChangeListener 主数据变更监听器
type ChangeListener struct {
	dsn         string
	channel     string
	invalidator Invalidator
	metrics     *monitoring.Metrics
	tables      map[string]bool

	listener *pq.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewChangeListener 创建变更监听器
func NewChangeListener(dsn, channel string, invalidator Invalidator, metrics *monitoring.Metrics) *ChangeListener {
	if channel == "" {
		channel = DefaultChannel
	}
	tables := make(map[string]bool)
	for _, t := range WatchedTables() {
		tables[t] = true
	}
	return &ChangeListener{
		dsn:         dsn,
		channel:     channel,
		invalidator: invalidator,
		metrics:     metrics,
		tables:      tables,
	}
}

// Start 建立监听并在后台处理通知
func (l *ChangeListener) Start(ctx context.Context) error {
	l.listener = pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})

	if err := l.listener.Listen(l.channel); err != nil {
		l.listener.Close()
		return fmt.Errorf("监听数据库通知失败: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	go l.loop(runCtx)

	slog.Info("主数据变更监听器已启动", "channel", l.channel)
	return nil
}

func (l *ChangeListener) loop(ctx context.Context) {
	defer l.wg.Done()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case notification := <-l.listener.Notify:
			if notification == nil {
				// 重连期间的通知可能丢失
				l.invalidate(ctx, "reconnect")
				continue
			}
			if err := l.HandleNotification(ctx, notification.Extra); err != nil {
				slog.Warn("处理数据库通知失败", "error", err)
			}
		case <-ping.C:
			go l.listener.Ping()
		case <-ctx.Done():
			slog.Info("主数据变更监听器已停止")
			return
		}
	}
}

// HandleNotification 处理一条通知内容
func (l *ChangeListener) HandleNotification(ctx context.Context, payload string) error {
	var change ChangeEvent
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return fmt.Errorf("解析数据库通知失败: %w", err)
	}

	slog.Debug("收到数据库变更通知", "table", change.Table, "type", change.Type, "record_id", change.RecordID)
	if !l.tables[change.Table] {
		return nil
	}
	l.invalidate(ctx, change.Table)
	return nil
}

func (l *ChangeListener) invalidate(ctx context.Context, reason string) {
	l.metrics.InvalidationReceived()
	if l.invalidator == nil {
		return
	}
	if _, err := l.invalidator.Evict(ctx); err != nil {
		slog.Error("主数据缓存失效失败", "reason", reason, "error", err)
	}
}

// Stop 停止监听
func (l *ChangeListener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	if l.listener != nil {
		l.listener.Close()
	}
}

// NotifyFunctionSQL 通知函数定义
func NotifyFunctionSQL(channel string) string {
	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_plantops_changes()
RETURNS TRIGGER AS $$
DECLARE
    rec RECORD;
BEGIN
    IF TG_OP = 'DELETE' THEN
        rec := OLD;
    ELSE
        rec := NEW;
    END IF;

    PERFORM pg_notify(%s, json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'record_id', rec.id,
        'timestamp', extract(epoch from now())
    )::text);

    RETURN rec;
END;
$$ LANGUAGE plpgsql;`, pq.QuoteLiteral(channel))
}

// TriggerSQL 表触发器定义
func TriggerSQL(table string) string {
	trigger := pq.QuoteIdentifier(table + "_plantops_notify")
	return fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s;
CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
FOR EACH ROW EXECUTE FUNCTION notify_plantops_changes();`,
		trigger, pq.QuoteIdentifier(table), trigger, pq.QuoteIdentifier(table))
}

// InstallTriggers 在数据库中创建通知函数与主数据表触发器
func InstallTriggers(db *gorm.DB, channel string) error {
	if channel == "" {
		channel = DefaultChannel
	}
	if err := db.Exec(NotifyFunctionSQL(channel)).Error; err != nil {
		return fmt.Errorf("创建通知函数失败: %w", err)
	}
	for _, table := range WatchedTables() {
		if err := db.Exec(TriggerSQL(table)).Error; err != nil {
			return fmt.Errorf("创建表 %s 触发器失败: %w", table, err)
		}
	}
	slog.Info("主数据变更触发器已创建", "channel", channel, "tables", WatchedTables())
	return nil
}
