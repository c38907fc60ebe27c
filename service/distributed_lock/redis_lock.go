/*
 * @module service/distributed_lock/redis_lock
 * @description 基于Redis的任务登记，保证多实例部署下同一日报日期只成功执行一次
 * @architecture 工具层 - 提供跨实例的一次性执行能力
 * @documentReference DESIGN.md
 * @stateFlow 登记执行中 -> 周期续期 -> 成功则转为完成标记并长期保留 / 失败则撤销登记允许重试
 * @rules 键值为 "<状态>|<实例ID>"；只有登记者本人可以续期、完成或撤销；完成标记存续期间任何实例都无法再次登记
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/scheduler/report_scheduler.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"plantops-service/service/config"
)

// 登记状态
const (
	StateRunning = "running"
	StateDone    = "done"
)

// extendScript 仍为本实例的执行中登记时延长过期时间
const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`

// completeScript 本实例的执行中登记转为完成标记
const completeScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`

// releaseScript 撤销本实例的执行中登记，完成标记不受影响
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RunLedger 跨实例共享的任务登记表
type RunLedger interface {
	// Claim 登记执行，键已存在(执行中或已完成)时返回 false
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Extend 延长执行中登记的有效期
	Extend(ctx context.Context, key string, ttl time.Duration) error
	// Complete 标记完成并保留 retain 时长
	Complete(ctx context.Context, key string, retain time.Duration) error
	// Release 撤销执行中登记
	Release(ctx context.Context, key string) error
}

// RedisLedger RunLedger 的 Redis 实现
type RedisLedger struct {
	client     *redis.Client
	prefix     string
	instanceID string
}

// NewRedisClient 按配置创建Redis客户端并测试连接
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return client, nil
}

// NewRedisLedger 创建任务登记表，prefix 为空时使用 plantops:runs
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "plantops:runs"
	}
	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s:%d", hostname, os.Getpid())

	slog.Info("任务登记表初始化成功", "instance_id", instanceID, "prefix", prefix)
	return &RedisLedger{client: client, prefix: prefix, instanceID: instanceID}
}

func (l *RedisLedger) key(key string) string {
	return l.prefix + ":" + key
}

func (l *RedisLedger) value(state string) string {
	return state + "|" + l.instanceID
}

// Claim 使用 SET NX 登记执行
func (l *RedisLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(key), l.value(StateRunning), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("登记任务失败: %w", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.key(key)).Result()
		slog.Debug("任务已被登记", "key", key, "holder", holder)
	}
	return ok, nil
}

// Extend 延长执行中登记
func (l *RedisLedger) Extend(ctx context.Context, key string, ttl time.Duration) error {
	n, err := l.client.Eval(ctx, extendScript, []string{l.key(key)}, l.value(StateRunning), ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("续期任务登记失败: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("任务登记已失效: %s", key)
	}
	return nil
}

// Complete 将执行中登记转为完成标记
func (l *RedisLedger) Complete(ctx context.Context, key string, retain time.Duration) error {
	n, err := l.client.Eval(ctx, completeScript, []string{l.key(key)},
		l.value(StateRunning), l.value(StateDone), retain.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("写入完成标记失败: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("任务登记已失效，无法标记完成: %s", key)
	}
	return nil
}

// Release 撤销执行中登记
func (l *RedisLedger) Release(ctx context.Context, key string) error {
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key(key)}, l.value(StateRunning)).Int64()
	if err != nil {
		return fmt.Errorf("撤销任务登记失败: %w", err)
	}
	if n != 1 {
		slog.Warn("任务登记不存在或不属于本实例", "key", key, "instance", l.instanceID)
	}
	return nil
}

// OnceOptions 一次性执行参数
type OnceOptions struct {
	TTL         time.Duration // 执行中登记的有效期
	ExtendEvery time.Duration // 续期间隔，0 时取 TTL/3
	Retain      time.Duration // 完成标记保留时长
}

// OnceRunner 借助任务登记表保证同一个键只成功执行一次
type OnceRunner struct {
	ledger RunLedger
}

// NewOnceRunner 创建一次性执行器
func NewOnceRunner(ledger RunLedger) *OnceRunner {
	return &OnceRunner{ledger: ledger}
}

// Run 登记成功后执行 fn
// 返回 ran=false 表示该键正在或已经由某个实例执行过。
// fn 返回错误时撤销登记，下次触发可重试；成功时保留完成标记。
func (r *OnceRunner) Run(ctx context.Context, key string, opts OnceOptions, fn func(ctx context.Context) error) (bool, error) {
	claimed, err := r.ledger.Claim(ctx, key, opts.TTL)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	every := opts.ExtendEvery
	if every <= 0 {
		every = opts.TTL / 3
	}
	if every <= 0 {
		every = time.Minute
	}
	extendCtx, stopExtend := context.WithCancel(ctx)
	extended := make(chan struct{})
	go func() {
		defer close(extended)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-extendCtx.Done():
				return
			case <-ticker.C:
				if err := r.ledger.Extend(extendCtx, key, opts.TTL); err != nil {
					slog.Error("任务登记续期失败", "key", key, "error", err)
				}
			}
		}
	}()

	runErr := fn(ctx)
	stopExtend()
	<-extended

	// 关闭过程中取消的 ctx 不能阻止登记状态落地
	finishCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := r.ledger.Release(finishCtx, key); err != nil {
			slog.Error("撤销任务登记失败", "key", key, "error", err)
		}
		return true, runErr
	}
	if err := r.ledger.Complete(finishCtx, key, opts.Retain); err != nil {
		slog.Error("写入完成标记失败，登记过期后可能重复执行", "key", key, "error", err)
	}
	return true, nil
}
