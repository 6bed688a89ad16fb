// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/dao"
	"github.com/haierkeys/artifact-git-sync/internal/gitstore"
	"github.com/haierkeys/artifact-git-sync/internal/remote"
	"github.com/haierkeys/artifact-git-sync/pkg/logger"
	"github.com/haierkeys/artifact-git-sync/pkg/util"
	"github.com/haierkeys/artifact-git-sync/pkg/workerpool"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string          `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Database dao.Config      `yaml:"database"`
	Git      gitstore.Config `yaml:"git"`
	Remote   remote.Config   `yaml:"remote"`
	App      AppSettings     `yaml:"app"`
	Security SecurityConfig  `yaml:"security"`
	Tracer   TracerConfig    `yaml:"tracer"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"warn"`
	// File 日志文件路径，默认为 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// LoggerConfig 转换为 pkg/logger 配置
func (l LogConfig) LoggerConfig() logger.Config {
	return logger.Config{Level: l.Level, File: l.File, Production: l.Production}
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口
	HttpPort string `yaml:"http-port" default:":9000"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒），整库同步可能较慢
	WriteTimeout int `yaml:"write-timeout" default:"600"`
	// PrivateHttpListen 私有 HTTP 监听地址（pprof、metrics），为空时不启用
	PrivateHttpListen string `yaml:"private-http-listen" default:":9001"`
	// RateLimitPerSecond 每秒放入令牌数，0 表示不限流
	RateLimitPerSecond int `yaml:"rate-limit-per-second" default:"20"`
	// RateLimitCapacity 令牌桶容量
	RateLimitCapacity int `yaml:"rate-limit-capacity" default:"40"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// AuthToken API 访问令牌，为空时不校验
	AuthToken string `yaml:"auth-token"`
	// CredentialKey 仓库凭据加密口令，为空时只允许无认证仓库
	CredentialKey string `yaml:"credential-key"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认上下文超时时间，支持格式：30s、10m
	DefaultContextTimeout string `yaml:"default-context-timeout" default:"10m"`
	// AutoSyncCheckInterval 自动同步检查周期
	AutoSyncCheckInterval string `yaml:"auto-sync-check-interval" default:"1m"`
	// AutoSyncDirection 自动同步方向
	AutoSyncDirection string `yaml:"auto-sync-direction" default:"bidirectional"`

	// Worker Pool 配置
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"8"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"100"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"100"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30m"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	c, err := ParseConfig(file)
	if err != nil {
		return nil, realpath, err
	}
	c.File = realpath
	return c, realpath, nil
}

// ParseConfig 解析 YAML 配置内容
func ParseConfig(data []byte) (*AppConfig, error) {
	c := new(AppConfig)

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	// defaults.Set 只有在字段为该类型的零值时才会填充
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "re-set default config failed")
	}

	return c, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}

	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.App.WriteQueueIdleTime != "" {
		if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}

	return cfg
}

// GetContextTimeout 获取请求上下文超时时间
func (c *AppConfig) GetContextTimeout() time.Duration {
	return util.ParseDurationOr(c.App.DefaultContextTimeout, 10*time.Minute)
}

// GetAutoSyncCheckInterval 获取自动同步检查周期
func (c *AppConfig) GetAutoSyncCheckInterval() time.Duration {
	return util.ParseDurationOr(c.App.AutoSyncCheckInterval, time.Minute)
}
