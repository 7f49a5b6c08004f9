package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/greactor"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 守护进程配置.
type Config struct {
	// LogLevel 日志级别: debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`

	// Heartbeat 心跳日志间隔.
	Heartbeat time.Duration `yaml:"heartbeat"`

	// Reactor Reactor 配置.
	Reactor greactor.ReactorConfig `yaml:"reactor"`
}

func (c *Config) init() error {
	if c == nil {
		return errors.New("Config nil")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Heartbeat <= 0 {
		return errors.New("Config.Heartbeat must > 0")
	}

	return nil
}

// level 返回日志级别.
func (c *Config) level() glog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// parseLevel 解析日志级别. 空字符串视为 info.
func parseLevel(s string) (glog.Level, error) {
	switch s {
	case "debug":
		return glog.DebugLevel, nil
	case "", "info":
		return glog.InfoLevel, nil
	case "warn":
		return glog.WarnLevel, nil
	case "error":
		return glog.ErrorLevel, nil
	default:
		return glog.InfoLevel, fmt.Errorf("Config.LogLevel %q unknown", s)
	}
}

// decodeConfig 严格解码 YAML 配置, 不允许未知字段.
func decodeConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, pkgerrors.WithMessage(err, "decode config")
	}

	if err := cfg.init(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfig 读取并解码配置文件.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "read config")
	}
	return decodeConfig(data)
}
