package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/character-studio/engine/assets"
	"github.com/spaghettifunk/character-studio/engine/avatar"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/systems"
	"github.com/spaghettifunk/character-studio/engine/telemetry"
)

// EnvPrefix is prepended to every environment override, e.g. STUDIO_ASSETS_ROOT.
const EnvPrefix = "STUDIO_"

type Config struct {
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`
	// Manifest is the catalog location loaded at startup, if any.
	Manifest  string                      `toml:"manifest" env:"MANIFEST"`
	Assets    assets.Config               `toml:"assets" envPrefix:"ASSETS_"`
	Systems   systems.SystemManagerConfig `toml:"systems" envPrefix:"SYSTEMS_"`
	Avatar    avatar.Config               `toml:"avatar" envPrefix:"AVATAR_"`
	Telemetry telemetry.Config            `toml:"telemetry" envPrefix:"TELEMETRY_"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Assets:   assets.DefaultConfig(),
		Systems:  systems.DefaultSystemManagerConfig(),
		Avatar:   avatar.Config{FailureHistory: 32},
		Telemetry: telemetry.Config{
			ServiceName: "character-studio",
		},
	}
}

/**
 * @brief Builds the configuration: defaults, then the TOML file at path
 * (skipped when path is empty), then STUDIO_* environment overrides.
 * The result is validated.
 */
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfiguration, path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrConfiguration, path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: parse env: %v", core.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q", c.LogLevel))
	}
	if c.Assets.HTTPTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("assets.http_timeout_seconds must be >= 0"))
	}
	if c.Assets.CacheTTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("assets.cache_ttl_seconds must be >= 0"))
	}
	if c.Assets.Watch && c.Assets.Root == "" {
		errs = append(errs, fmt.Errorf("assets.watch needs assets.root"))
	}
	if c.Systems.MaxGeometryCount == 0 || c.Systems.MaxMaterialCount == 0 || c.Systems.MaxTextureCount == 0 {
		errs = append(errs, fmt.Errorf("systems limits must be > 0"))
	}
	if c.Avatar.FailureHistory < 0 {
		errs = append(errs, fmt.Errorf("avatar.failure_history must be >= 0"))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, fmt.Errorf("telemetry.enabled needs telemetry.endpoint"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be in [0, 1]"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", core.ErrConfiguration, errors.Join(errs...))
}
