package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load 从 YAML 文件读取并解析配置，并做基础校验与默认值补齐。
// 参数：
// - path: 配置文件路径
// 返回：
// - Config: 合并默认值后的配置
// - error: 读取/解析/校验失败原因
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验配置字段合法性（端口、超时、日志输出等）。
// 参数：
// - cfg: 待校验配置
// 返回：
// - error: 校验失败原因
func Validate(cfg Config) error {
	if cfg.UDP.SendHost == "" {
		return fmt.Errorf("udp.send_host is required")
	}
	if cfg.UDP.SendPort <= 0 || cfg.UDP.SendPort > 65535 {
		return fmt.Errorf("invalid udp.send_port: %d", cfg.UDP.SendPort)
	}
	if cfg.UDP.ReceivePort <= 0 || cfg.UDP.ReceivePort > 65535 {
		return fmt.Errorf("invalid udp.receive_port: %d", cfg.UDP.ReceivePort)
	}
	if cfg.UDP.RequestTimeout <= 0 {
		return fmt.Errorf("invalid udp.request_timeout: %s", cfg.UDP.RequestTimeout)
	}
	if cfg.UDP.OpenTimeout < cfg.UDP.RequestTimeout {
		return fmt.Errorf("invalid udp.open_timeout: %s", cfg.UDP.OpenTimeout)
	}
	if cfg.UDP.ReadInterval <= 0 {
		return fmt.Errorf("invalid udp.read_interval: %s", cfg.UDP.ReadInterval)
	}
	if cfg.UDP.SendQueue <= 0 || cfg.UDP.ReceiveQueue <= 0 {
		return fmt.Errorf("invalid udp queue sizes: send=%d receive=%d", cfg.UDP.SendQueue, cfg.UDP.ReceiveQueue)
	}
	if cfg.Localization.IncomingPort < 0 || cfg.Localization.IncomingPort > 65535 {
		return fmt.Errorf("invalid localization.incoming_port: %d", cfg.Localization.IncomingPort)
	}
	if cfg.Localization.OutgoingPort < 0 || cfg.Localization.OutgoingPort > 65535 {
		return fmt.Errorf("invalid localization.outgoing_port: %d", cfg.Localization.OutgoingPort)
	}
	if cfg.Logging.Output == "file" && cfg.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when output=file")
	}
	return nil
}
