package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // file, directory or glob of .hcl/.yaml files

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Debug enables breakpoint handling. It is implied by Breakpoints and
	// RelayURL.
	Debug bool
	// Breakpoints lists node names to pause at, in addition to the ones
	// marked in the definition files.
	Breakpoints []string

	RelayURL       string
	RelayNamespace string

	// RequestTimeout bounds every http_request node. Zero uses the default.
	RequestTimeout time.Duration

	// OTLPEndpoint is the host:port of an OTLP/HTTP collector receiving
	// engine traces and metrics. Empty disables export.
	OTLPEndpoint string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.RequestTimeout < 0 {
		return nil, errors.New("request timeout must not be negative")
	}
	for _, name := range cfg.Breakpoints {
		if name == "" {
			return nil, errors.New("breakpoint node name cannot be empty")
		}
	}
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		return nil, fmt.Errorf("OTLP endpoint %q must be host:port without a scheme", cfg.OTLPEndpoint)
	}
	if cfg.RelayNamespace != "" && cfg.RelayURL == "" {
		return nil, errors.New("relay namespace requires a relay URL")
	}
	return &cfg, nil
}

// debugEnabled reports whether the engine should honor breakpoints.
func (c *Config) debugEnabled() bool {
	return c.Debug || len(c.Breakpoints) > 0 || c.RelayURL != ""
}
