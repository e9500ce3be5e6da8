package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Boundary     BoundaryConfig     `yaml:"boundary"`
	Approval     ApprovalConfig     `yaml:"approval"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type OrchestratorConfig struct {
	URL string `yaml:"url"`
}

type BoundaryConfig struct {
	Mode            string  `yaml:"mode"`
	Strict          bool    `yaml:"strict"`
	MaxLoggedIssues int     `yaml:"max_logged_issues"`
	SampleRate      float64 `yaml:"sample_rate"`
}

type ApprovalConfig struct {
	NotifyTimeoutMs int `yaml:"notify_timeout_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Approval.NotifyTimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Orchestrator: OrchestratorConfig{
			URL: "nats://localhost:4222",
		},
		Boundary: BoundaryConfig{
			Mode:            "open",
			Strict:          false,
			MaxLoggedIssues: 5,
			SampleRate:      0.25,
		},
		Approval: ApprovalConfig{
			NotifyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CRUCIBLE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CRUCIBLE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("CRUCIBLE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("CRUCIBLE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("CRUCIBLE_ORCHESTRATOR_URL"); v != "" {
		cfg.Orchestrator.URL = v
	}
	if v := os.Getenv("CRUCIBLE_BOUNDARY_MODE"); v != "" {
		cfg.Boundary.Mode = v
	}
	if v := os.Getenv("CRUCIBLE_BOUNDARY_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Boundary.Strict = b
		}
	}
	if v := os.Getenv("CRUCIBLE_NOTIFY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Approval.NotifyTimeoutMs = n
		}
	}
	if v := os.Getenv("CRUCIBLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
