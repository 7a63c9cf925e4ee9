package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "taskdesk/internal/errors"
)

// EnvConfigPath 是指定配置文件路径的环境变量。
const EnvConfigPath = "TASKDESK_CONFIG"

// DefaultPath 是未显式指定时尝试加载的配置文件。
var DefaultPath = filepath.Join("configs", "taskdesk.yaml")

const (
	ModeCommands = "commands"
	ModeGuided   = "guided"
)

// Config 描述了 taskdesk 在启动阶段需要加载的全部配置。
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Console ConsoleConfig `yaml:"console" json:"console"`
	Notify  NotifyConfig  `yaml:"notify" json:"notify"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LogConfig 控制日志级别、格式与输出位置。
type LogConfig struct {
	Level   string      `yaml:"level" json:"level"`
	Format  string      `yaml:"format" json:"format"`
	Outputs []string    `yaml:"outputs" json:"outputs"`
	Audit   AuditConfig `yaml:"audit" json:"audit"`
}

// AuditConfig 控制审计日志文件及其滚动策略。
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// ConsoleConfig 控制命令来源与交互方式。
type ConsoleConfig struct {
	Mode   string `yaml:"mode" json:"mode"`
	Script string `yaml:"script" json:"script"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// NotifyConfig 描述转交通知需要投递的渠道。
type NotifyConfig struct {
	Writer   *bool          `yaml:"writer" json:"writer"`
	Log      bool           `yaml:"log" json:"log"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" json:"rabbitmq"`
}

// WriterEnabled 报告是否把通知写回控制台，默认开启。
func (n NotifyConfig) WriterEnabled() bool {
	return n.Writer == nil || *n.Writer
}

// RedisConfig 描述 Redis 通知渠道。
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Key      string `yaml:"key" json:"key"`
}

// RabbitMQConfig 描述 RabbitMQ 通知渠道。
type RabbitMQConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	Queue   string `yaml:"queue" json:"queue"`
	Durable bool   `yaml:"durable" json:"durable"`
}

// MetricsConfig 控制 /metrics 端点，地址为空时不启动。
type MetricsConfig struct {
	Address string `yaml:"address" json:"address"`
}

// Default 返回未加载任何文件时的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Resolve 按命令行参数、环境变量、默认文件的顺序确定配置路径。
// 返回空字符串表示使用内置默认值。
func Resolve(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Load 解析指定路径的配置文件，.json 以 JSON 解析，其余按 YAML 解析。
// path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfigFailure, err, "读取配置文件失败")
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(content, &cfg)
	} else {
		err = yaml.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfigFailure, err, fmt.Sprintf("解析配置 %s 失败", path))
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置默认值，相对路径以配置文件所在目录为基准。
func (c *Config) applyDefaults(baseDir string) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	for i, out := range c.Log.Outputs {
		switch strings.ToLower(out) {
		case "stdout", "stderr":
		default:
			c.Log.Outputs[i] = resolvePath(baseDir, out)
		}
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		c.Log.Audit.Path = filepath.Join("logs", "audit.log")
	}
	if c.Log.Audit.Path != "" {
		c.Log.Audit.Path = resolvePath(baseDir, c.Log.Audit.Path)
	}

	if c.Console.Mode == "" {
		c.Console.Mode = ModeCommands
	}
	c.Console.Mode = strings.ToLower(c.Console.Mode)
	if c.Console.Prompt == "" {
		c.Console.Prompt = "> "
	}
	if c.Console.Script != "" {
		c.Console.Script = resolvePath(baseDir, c.Console.Script)
	}

	if c.Notify.Redis.Key == "" {
		c.Notify.Redis.Key = "taskdesk:notices"
	}
	if c.Notify.RabbitMQ.Queue == "" {
		c.Notify.RabbitMQ.Queue = "taskdesk.notices"
	}
}

// Validate 检查配置的一致性。
func (c *Config) Validate() error {
	switch c.Console.Mode {
	case ModeCommands, ModeGuided:
	default:
		return xerrors.New(xerrors.CodeConfigFailure, fmt.Sprintf("未知的控制台模式: %s", c.Console.Mode))
	}
	if c.Notify.Redis.Enabled && strings.TrimSpace(c.Notify.Redis.Address) == "" {
		return xerrors.New(xerrors.CodeConfigFailure, "启用 Redis 通知时必须配置 address")
	}
	if c.Notify.RabbitMQ.Enabled && strings.TrimSpace(c.Notify.RabbitMQ.URL) == "" {
		return xerrors.New(xerrors.CodeConfigFailure, "启用 RabbitMQ 通知时必须配置 url")
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
