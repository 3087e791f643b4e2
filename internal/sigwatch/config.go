package sigwatch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config drives the watcher daemon. Values come from the TOML file, then
// SIGWATCH_* environment variables override individual fields.
type Config struct {
	Listen          string   `toml:"listen"`
	Signals         []string `toml:"signals"`
	PollIntervalMS  int      `toml:"poll_interval_ms"`
	EventsPerSecond float64  `toml:"events_per_second"`
	Burst           int      `toml:"burst"`
	AccessLog       string   `toml:"access_log"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8717",
		Signals:         []string{"SIGHUP", "SIGUSR1", "SIGUSR2"},
		PollIntervalMS:  500,
		EventsPerSecond: 10,
		Burst:           20,
	}
}

// LoadConfig reads path (if it exists) over the defaults and applies
// environment overrides. An empty path skips the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("sigwatch: parse %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("SIGWATCH_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SIGWATCH_SIGNALS"); v != "" {
		cfg.Signals = splitList(v)
	}
	if v := os.Getenv("SIGWATCH_POLL_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("sigwatch: SIGWATCH_POLL_INTERVAL_MS: %w", err)
		}
		cfg.PollIntervalMS = n
	}
	if v := os.Getenv("SIGWATCH_ACCESS_LOG"); v != "" {
		cfg.AccessLog = v
	}

	if cfg.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("sigwatch: poll_interval_ms must be positive, got %d", cfg.PollIntervalMS)
	}
	if len(cfg.Signals) == 0 {
		return nil, fmt.Errorf("sigwatch: no signals configured")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
