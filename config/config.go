package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pigchase/meta"
)

type Config struct {
	Clients       []string      `yaml:"clients"`
	Agents        AgentsConfig  `yaml:"agents"`
	Output        string        `yaml:"output"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`
	ResetRetries  int           `yaml:"reset_retries"`
	ResetInterval time.Duration `yaml:"reset_interval"`
	Log           LogConfig     `yaml:"log"`
	MetricsAddr   string        `yaml:"metrics_addr"`
}

// AgentsConfig holds the agent server URL of each trained checkpoint.
type AgentsConfig struct {
	Agent100k string `yaml:"100k"`
	Agent500k string `yaml:"500k"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Clients:       append([]string(nil), meta.DefaultClients...),
		Output:        "results/pig_chase_results.json",
		ReadyTimeout:  meta.READY_TIMEOUT,
		StopTimeout:   meta.STOP_TIMEOUT,
		ResetRetries:  meta.RESET_RETRIES,
		ResetInterval: meta.RESET_INTERVAL,
		Log:           LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PIGCHASE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PIGCHASE_CLIENTS"); v != "" {
		c.Clients = strings.Split(v, ",")
	}
	if v := os.Getenv("PIGCHASE_AGENT_100K"); v != "" {
		c.Agents.Agent100k = v
	}
	if v := os.Getenv("PIGCHASE_AGENT_500K"); v != "" {
		c.Agents.Agent500k = v
	}
	if v := os.Getenv("PIGCHASE_OUTPUT"); v != "" {
		c.Output = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Clients) < 2 {
		errs = append(errs, fmt.Errorf("need at least 2 clients, got %d", len(c.Clients)))
	}
	if c.Agents.Agent100k == "" {
		errs = append(errs, errors.New("agents.100k is required"))
	}
	if c.Agents.Agent500k == "" {
		errs = append(errs, errors.New("agents.500k is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.ResetRetries < 0 {
		errs = append(errs, errors.New("reset_retries must not be negative"))
	}
	return errors.Join(errs...)
}
