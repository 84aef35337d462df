package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// MaxSessions 固定为 2：一名冰人、一名火人
const MaxSessions = 2

// Config 服务端可调参数，YAML 文件覆盖 DefaultConfig 的默认值
type Config struct {
	Port              int           `yaml:"port"`
	AdminAddr         string        `yaml:"adminAddr"`
	TickRate          int           `yaml:"tickRate"` // 每秒 Tick 数
	ConnectionTimeout time.Duration `yaml:"connectionTimeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	SendQueue         int           `yaml:"sendQueue"`
	LevelsDir         string        `yaml:"levelsDir"`
	Log               LogConfig     `yaml:"log"`
	Debug             DebugConfig   `yaml:"debug"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	Stderr     bool   `yaml:"stderr"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type DebugConfig struct {
	EnableCheats bool `yaml:"enableCheats"`
}

func DefaultConfig() Config {
	return Config{
		Port:              9527,
		AdminAddr:         ":8080",
		TickRate:          30,
		ConnectionTimeout: 10 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		WriteTimeout:      2 * time.Second,
		SendQueue:         64,
		Log: LogConfig{
			File:       "icefire.log",
			Level:      "info",
			Stderr:     true,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig 读取 YAML 配置并叠加到默认值上；path 为空时直接返回默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate 校验配置，一次返回全部错误
func (c Config) Validate() error {
	var err error
	if c.Port < 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TickRate <= 0 || c.TickRate > maxTickRate {
		err = multierr.Append(err, fmt.Errorf("tickRate must be in 1..%d, got %d", maxTickRate, c.TickRate))
	}
	if c.ConnectionTimeout <= 0 {
		err = multierr.Append(err, errors.New("connectionTimeout must be positive"))
	}
	if c.HeartbeatInterval <= 0 {
		err = multierr.Append(err, errors.New("heartbeatInterval must be positive"))
	}
	if c.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("writeTimeout must be positive"))
	}
	if c.SendQueue <= 0 {
		err = multierr.Append(err, errors.New("sendQueue must be positive"))
	}
	return err
}

const maxTickRate = 240

func tickInterval(rate int) time.Duration {
	return time.Second / time.Duration(rate)
}
