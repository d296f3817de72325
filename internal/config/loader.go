package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces this process's environment variables.
const envPrefix = "HBMXML_"

// Load builds a Config by layering (low -> high):
//  1. defaults (New)
//  2. YAML file, when path or HBMXML_CONFIG names one
//  3. env vars (HBMXML_SPEED, HBMXML_DATA_DIR, ...)
func Load(ctx context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Map env keys like HBMXML_DETECT_TIMEOUT_MS -> detect_timeout_ms,
	// preserving underscores to match the koanf struct tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.Speed < 1 || cfg.Speed > 5 {
		return nil, fmt.Errorf("%w: speed must be 1..5, got %d", ErrInvalidConfig, cfg.Speed)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max_attempts must be positive", ErrInvalidConfig)
	}
	if cfg.BetweenInvoicesMS < 0 || cfg.DetectTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: non-positive interval", ErrInvalidConfig)
	}

	cfg.applyDerived()
	return &cfg, nil
}
