// Package traceconfig loads the ambient, site-wide toggle for the interrupt
// core's binary tracer (internal/trace). It is deliberately separate from
// any device/CLI configuration surface.
package traceconfig

import (
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const Filename = "irqcore-trace.yml"

// Config controls whether the tracer is enabled and where it writes.
type Config struct {
	Enabled *bool  `yaml:"enabled"` // pointer to distinguish unset vs false
	Path    string `yaml:"path"`
}

func (c Config) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// Load reads path and parses it as a Config. A missing file is not an error:
// it returns a zero-value (disabled) Config.
func Load(path string) Config {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to stat trace config", "path", path, "error", err)
		}
		return Config{}
	}

	// Refuse to load a world-writable config; an attacker with write access
	// to it could redirect the trace output path.
	if runtime.GOOS != "windows" && info.Mode().Perm()&0002 != 0 {
		slog.Error("trace config is world-writable, refusing to load", "path", path, "mode", info.Mode())
		return Config{}
	}

	const maxConfigSize = 1 << 20
	if info.Size() > maxConfigSize {
		slog.Warn("trace config file too large", "path", path, "size", info.Size())
		return Config{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read trace config", "path", path, "error", err)
		return Config{}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("failed to parse trace config", "path", path, "error", err)
		return Config{}
	}

	return cfg
}
