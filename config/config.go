// Package config loads service settings from an optional YAML file, an
// optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/leave-ledger/generic"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Audit struct {
		Cron    string `yaml:"cron"`
		Enabled *bool  `yaml:"enabled"`
	} `yaml:"audit"`
	Tenant struct {
		Default string `yaml:"default"`
	} `yaml:"tenant"`
}

// Defaults
const (
	DefaultPort      = 8080
	DefaultDBPath    = "leave_ledger.db"
	DefaultLogLevel  = "info"
	DefaultAuditCron = "0 3 * * *"
)

// Load reads the YAML file at path and the env file, then applies
// environment overrides and defaults. Either path may be empty, and a
// missing file is not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is fine when settings come from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LEDGER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEDGER_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LEDGER_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEDGER_AUDIT_CRON"); v != "" {
		c.Audit.Cron = v
	}
	if v := os.Getenv("LEDGER_AUDIT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEDGER_AUDIT_ENABLED %q: %w", v, err)
		}
		c.Audit.Enabled = &enabled
	}
	if v := os.Getenv("LEDGER_DEFAULT_TENANT"); v != "" {
		c.Tenant.Default = v
	}
	if v := os.Getenv("LEDGER_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDBPath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Audit.Cron == "" {
		c.Audit.Cron = DefaultAuditCron
	}
	if c.Audit.Enabled == nil {
		enabled := true
		c.Audit.Enabled = &enabled
	}
	if c.Tenant.Default == "" {
		c.Tenant.Default = string(generic.DefaultTenant)
	}
}

// AuditEnabled reports whether the scheduled audit should run.
func (c *Config) AuditEnabled() bool {
	return c.Audit.Enabled == nil || *c.Audit.Enabled
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.AuditEnabled() {
		if _, err := cron.ParseStandard(c.Audit.Cron); err != nil {
			return fmt.Errorf("audit.cron %q: %w", c.Audit.Cron, err)
		}
	}
	if strings.TrimSpace(c.Tenant.Default) == "" {
		return fmt.Errorf("tenant.default is required")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
