/*
 * @module service/config/config_manager
 * @description 配置管理器，负责配置加载、环境变量覆盖与配置验证
 * @architecture 分层架构 - 业务服务层
 * @documentReference DESIGN.md
 * @stateFlow 默认配置 -> 配置文件 -> 环境变量覆盖 -> 配置验证 -> 配置应用
 * @rules 配置文件可选；显式指定的配置文件不存在时报错
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs main.go
 */

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// 数据源类型
const (
	SourcePostgREST = "postgrest"
	SourceDatabase  = "database"
)

// DefaultConfigFile 默认配置文件路径
const DefaultConfigFile = "config.yaml"

// ApplicationConfig 应用配置
type ApplicationConfig struct {
	App        AppConfig        `json:"app" yaml:"app"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	DataSource DataSourceConfig `json:"data_source" yaml:"data_source"`
	Redis      RedisConfig      `json:"redis" yaml:"redis"`
	Messaging  MessagingConfig  `json:"messaging" yaml:"messaging"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Report     ReportConfig     `json:"report" yaml:"report"`
	Ranking    RankingConfig    `json:"ranking" yaml:"ranking"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment" yaml:"environment"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        string     `json:"port" yaml:"port"`
	BaseContext string     `json:"base_context" yaml:"base_context"`
	CORS        CORSConfig `json:"cors" yaml:"cors"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers"`
}

// DataSourceConfig 数据源配置
type DataSourceConfig struct {
	Kind      string          `json:"kind" yaml:"kind"` // postgrest, database
	PostgREST PostgRESTConfig `json:"postgrest" yaml:"postgrest"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
}

// PostgRESTConfig PostgREST 记录存储配置
type PostgRESTConfig struct {
	URL      string        `json:"url" yaml:"url"`
	Username string        `json:"username" yaml:"username"`
	Password string        `json:"password" yaml:"password"`
	Schema   string        `json:"schema" yaml:"schema"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	URL      string `json:"url" yaml:"url"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	Schema   string `json:"schema" yaml:"schema"`
}

// DSN 构建 postgres 连接字符串，优先使用 URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode, d.Schema)
}

// RedisConfig Redis配置，Host 为空表示不启用缓存与分布式锁
type RedisConfig struct {
	Host        string        `json:"host" yaml:"host"`
	Port        int           `json:"port" yaml:"port"`
	Password    string        `json:"password" yaml:"password"`
	DB          int           `json:"db" yaml:"db"`
	SnapshotTTL time.Duration `json:"snapshot_ttl" yaml:"snapshot_ttl"`
}

// Addr Redis 地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled 是否配置了 Redis
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// MessagingConfig 告警消息投递配置，未配置的通道不启用
type MessagingConfig struct {
	KafkaBrokers []string `json:"kafka_brokers" yaml:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic" yaml:"kafka_topic"`
	MQTTBroker   string   `json:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTTopic    string   `json:"mqtt_topic" yaml:"mqtt_topic"`
	MQTTClientID string   `json:"mqtt_client_id" yaml:"mqtt_client_id"`
	MQTTUsername string   `json:"mqtt_username" yaml:"mqtt_username"`
	MQTTPassword string   `json:"mqtt_password" yaml:"mqtt_password"`
	RedisChannel string   `json:"redis_channel" yaml:"redis_channel"` // 需同时配置 Redis
}

// EventsConfig 主数据变更通知配置
type EventsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Channel string `json:"channel" yaml:"channel"`
}

// ReportScope 日报统计范围
type ReportScope struct {
	Category string `json:"category" yaml:"category"`
	Unit     string `json:"unit" yaml:"unit"`
	Material string `json:"material" yaml:"material"`
}

// ReportConfig 日报与告警配置
type ReportConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Cron         string        `json:"cron" yaml:"cron"`
	QAFThreshold float64       `json:"qaf_threshold" yaml:"qaf_threshold"`   // 低于该值产生告警 (%)
	LockTTL      time.Duration `json:"lock_ttl" yaml:"lock_ttl"`             // 执行中标记过期时间
	Retention    time.Duration `json:"done_retention" yaml:"done_retention"` // 完成标记保留时长，期间同一日期不再执行
	Scopes       []ReportScope `json:"scopes" yaml:"scopes"`
}

// RankingConfig 排名配置
type RankingConfig struct {
	TopN int `json:"top_n" yaml:"top_n"`
}

// RateLimitConfig 接口限流配置，需同时配置 Redis
type RateLimitConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Window      time.Duration `json:"window" yaml:"window"`
	MaxRequests int           `json:"max_requests" yaml:"max_requests"` // 每个客户端每个窗口
}

// ConfigManager 配置管理器
type ConfigManager struct {
	configPath string
	explicit   bool
	config     *ApplicationConfig
	configLock sync.RWMutex
}

// NewConfigManager 创建配置管理器实例，path 为空时使用 CONFIG_FILE 或默认路径
func NewConfigManager(path string) *ConfigManager {
	explicit := true
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultConfigFile
		explicit = false
	}
	return &ConfigManager{configPath: path, explicit: explicit}
}

// LoadConfig 加载配置
func (c *ConfigManager) LoadConfig() error {
	c.configLock.Lock()
	defer c.configLock.Unlock()

	// 1. 默认配置
	config := DefaultConfig()

	// 2. 配置文件
	if err := c.loadConfigFromFile(config); err != nil {
		return err
	}

	// 3. 应用环境变量覆盖
	applyEnvironmentOverrides(config)

	// 4. 验证配置
	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	c.config = config
	return nil
}

// GetConfig 获取完整配置
func (c *ConfigManager) GetConfig() *ApplicationConfig {
	c.configLock.RLock()
	defer c.configLock.RUnlock()
	return c.config
}

// Load 加载配置的便捷方法
func Load(path string) (*ApplicationConfig, error) {
	manager := NewConfigManager(path)
	if err := manager.LoadConfig(); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

// 从文件加载配置，覆盖到已有配置之上
func (c *ConfigManager) loadConfigFromFile(config *ApplicationConfig) error {
	configData, err := os.ReadFile(c.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !c.explicit {
			slog.Debug("未找到配置文件，使用默认配置", "path", c.configPath)
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 根据文件扩展名决定解析方式
	ext := strings.ToLower(filepath.Ext(c.configPath))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configData, config)
	case ".json":
		err = json.Unmarshal(configData, config)
	default:
		return fmt.Errorf("不支持的配置文件格式: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	slog.Info("配置文件加载成功", "path", c.configPath)
	return nil
}

// DefaultConfig 获取默认配置
func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		App: AppConfig{
			Name:        "PlantOps Analytics Service",
			Version:     "1.0.0",
			Environment: "development",
			LogLevel:    "info",
		},
		Server: ServerConfig{
			Port:        "80",
			BaseContext: "",
			CORS: CORSConfig{
				AllowedOrigins: []string{"https://*", "http://*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			},
		},
		DataSource: DataSourceConfig{
			Kind: SourcePostgREST,
			PostgREST: PostgRESTConfig{
				URL:      "http://postgrest:3000",
				Username: "things2024",
				Schema:   "public",
				Timeout:  30 * time.Second,
			},
			Database: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Username: "postgres",
				Database: "postgres",
				SSLMode:  "disable",
				Schema:   "public",
			},
		},
		Redis: RedisConfig{
			Port:        6379,
			SnapshotTTL: 10 * time.Minute,
		},
		Messaging: MessagingConfig{
			KafkaTopic:   "plantops.alerts",
			MQTTTopic:    "plantops/alerts",
			MQTTClientID: "plantops-service",
		},
		Events: EventsConfig{
			Enabled: false,
			Channel: "plantops_changes",
		},
		Report: ReportConfig{
			Enabled:      false,
			Cron:         "0 30 0 * * *",
			QAFThreshold: 80,
			LockTTL:      10 * time.Minute,
			Retention:    48 * time.Hour,
		},
		Ranking: RankingConfig{
			TopN: 4,
		},
		RateLimit: RateLimitConfig{
			Enabled:     false,
			Window:      time.Minute,
			MaxRequests: 120,
		},
	}
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func overrideInt(target *int, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	parsed, err := cast.ToIntE(value)
	if err != nil {
		slog.Warn("环境变量不是有效整数，已忽略", "key", key, "value", value)
		return
	}
	*target = parsed
}

func overrideBool(target *bool, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	parsed, err := cast.ToBoolE(value)
	if err != nil {
		slog.Warn("环境变量不是有效布尔值，已忽略", "key", key, "value", value)
		return
	}
	*target = parsed
}

func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// 应用环境变量覆盖
func applyEnvironmentOverrides(config *ApplicationConfig) {
	config.App.LogLevel = getEnvWithDefault("LOG_LEVEL", config.App.LogLevel)
	config.Server.Port = getEnvWithDefault("LISTEN_PORT", config.Server.Port)
	config.Server.BaseContext = getEnvWithDefault("BASE_CONTEXT", config.Server.BaseContext)

	ds := &config.DataSource
	ds.Kind = strings.ToLower(getEnvWithDefault("DATA_SOURCE", ds.Kind))
	ds.PostgREST.URL = getEnvWithDefault("POSTGREST_URL", ds.PostgREST.URL)
	ds.PostgREST.Username = getEnvWithDefault("POSTGREST_USER", ds.PostgREST.Username)
	ds.PostgREST.Password = getEnvWithDefault("POSTGREST_PASSWORD", ds.PostgREST.Password)
	ds.PostgREST.Schema = getEnvWithDefault("POSTGREST_SCHEMA", ds.PostgREST.Schema)
	ds.Database.URL = getEnvWithDefault("DATABASE_URL", ds.Database.URL)
	ds.Database.Host = getEnvWithDefault("DB_HOST", ds.Database.Host)
	overrideInt(&ds.Database.Port, "DB_PORT")
	ds.Database.Username = getEnvWithDefault("DB_USER", ds.Database.Username)
	ds.Database.Password = getEnvWithDefault("DB_PASSWORD", ds.Database.Password)
	ds.Database.Database = getEnvWithDefault("DB_NAME", ds.Database.Database)
	ds.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", ds.Database.SSLMode)
	ds.Database.Schema = getEnvWithDefault("DB_SCHEMA", ds.Database.Schema)

	config.Redis.Host = getEnvWithDefault("REDIS_HOST", config.Redis.Host)
	overrideInt(&config.Redis.Port, "REDIS_PORT")
	config.Redis.Password = getEnvWithDefault("REDIS_PASSWORD", config.Redis.Password)
	overrideInt(&config.Redis.DB, "REDIS_DB")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config.Messaging.KafkaBrokers = splitList(brokers)
	}
	config.Messaging.KafkaTopic = getEnvWithDefault("KAFKA_TOPIC", config.Messaging.KafkaTopic)
	config.Messaging.MQTTBroker = getEnvWithDefault("MQTT_BROKER", config.Messaging.MQTTBroker)
	config.Messaging.MQTTTopic = getEnvWithDefault("MQTT_TOPIC", config.Messaging.MQTTTopic)
	config.Messaging.MQTTUsername = getEnvWithDefault("MQTT_USERNAME", config.Messaging.MQTTUsername)
	config.Messaging.MQTTPassword = getEnvWithDefault("MQTT_PASSWORD", config.Messaging.MQTTPassword)
	config.Messaging.RedisChannel = getEnvWithDefault("REDIS_ALERT_CHANNEL", config.Messaging.RedisChannel)

	overrideBool(&config.Events.Enabled, "EVENTS_ENABLED")
	overrideBool(&config.Report.Enabled, "REPORT_ENABLED")
	config.Report.Cron = getEnvWithDefault("REPORT_CRON", config.Report.Cron)
	overrideInt(&config.Ranking.TopN, "RANKING_TOP_N")
	overrideBool(&config.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	overrideInt(&config.RateLimit.MaxRequests, "RATE_LIMIT_MAX_REQUESTS")
}

// Validate 验证配置
func (c *ApplicationConfig) Validate() error {
	switch c.DataSource.Kind {
	case SourcePostgREST:
		if c.DataSource.PostgREST.URL == "" {
			return fmt.Errorf("PostgREST 地址不能为空")
		}
	case SourceDatabase:
		if c.DataSource.Database.URL == "" && c.DataSource.Database.Host == "" {
			return fmt.Errorf("数据库地址不能为空")
		}
	default:
		return fmt.Errorf("不支持的数据源类型: %s", c.DataSource.Kind)
	}

	if c.Ranking.TopN < 1 {
		return fmt.Errorf("排名名次数必须大于0: %d", c.Ranking.TopN)
	}

	if c.Redis.Enabled() && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		return fmt.Errorf("Redis 端口无效: %d", c.Redis.Port)
	}

	if c.RateLimit.Enabled && (c.RateLimit.MaxRequests < 1 || c.RateLimit.Window < time.Second) {
		return fmt.Errorf("限流配置无效: 窗口 %s, 上限 %d", c.RateLimit.Window, c.RateLimit.MaxRequests)
	}

	if c.Report.Enabled && strings.TrimSpace(c.Report.Cron) == "" {
		return fmt.Errorf("启用日报时调度表达式不能为空")
	}

	if c.Report.Enabled && c.Report.Retention < 24*time.Hour {
		return fmt.Errorf("日报完成标记保留时长不能少于一天: %s", c.Report.Retention)
	}

	return nil
}
