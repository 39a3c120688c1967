package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MCP 传输方式。
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportNone  = "none"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Feedback FeedbackConfig
	MCP      MCPConfig
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Host      string `env:"FEEDBACK_HOST" envDefault:"localhost"`
	Port      int    `env:"FEEDBACK_WEB_PORT" envDefault:"8000"`
	PublicURL string `env:"FEEDBACK_PUBLIC_URL"`
	UIPath    string `env:"FEEDBACK_UI_PATH" envDefault:"/feedback_ui.html"`
	StaticDir string `env:"FEEDBACK_STATIC_DIR"`
}

// Addr 返回监听地址。
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL 返回反馈页面的外部访问地址，未配置时由 host/port 推导。
func (c ServerConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	return "http://" + c.Addr()
}

// FeedbackConfig 描述会话生命周期配置。
type FeedbackConfig struct {
	DefaultTimeoutSeconds int           `env:"FEEDBACK_DEFAULT_TIMEOUT_SECONDS" envDefault:"300"`
	SessionMaxAgeHours    int           `env:"FEEDBACK_SESSION_MAX_AGE_HOURS" envDefault:"24"`
	SweepInterval         time.Duration `env:"FEEDBACK_SWEEP_INTERVAL" envDefault:"1h"`
}

// DefaultTimeout 默认等待时长。
func (c FeedbackConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// SessionMaxAge 会话最长保留时间。
func (c FeedbackConfig) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeHours) * time.Hour
}

// MCPConfig 描述 MCP 工具服务配置。
type MCPConfig struct {
	Transport string `env:"MCP_TRANSPORT" envDefault:"stdio"`
}

// Parse 从环境变量读取配置，不做校验。
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load 从环境变量加载并校验配置。
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("FEEDBACK_HOST must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid FEEDBACK_WEB_PORT value: %d", c.Server.Port)
	}
	if c.Feedback.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid FEEDBACK_DEFAULT_TIMEOUT_SECONDS value: %d", c.Feedback.DefaultTimeoutSeconds)
	}
	if c.Feedback.SessionMaxAgeHours <= 0 {
		return fmt.Errorf("invalid FEEDBACK_SESSION_MAX_AGE_HOURS value: %d", c.Feedback.SessionMaxAgeHours)
	}
	if c.Feedback.SweepInterval <= 0 {
		return fmt.Errorf("invalid FEEDBACK_SWEEP_INTERVAL value: %s", c.Feedback.SweepInterval)
	}

	switch c.MCP.Transport {
	case TransportStdio, TransportHTTP, TransportNone:
	default:
		return fmt.Errorf("invalid MCP_TRANSPORT value: %q", c.MCP.Transport)
	}
	return nil
}
