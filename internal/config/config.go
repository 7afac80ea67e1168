// Package config loads and validates the chart service configuration.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nsbm60/marketdata-ui-sub001/internal/indicator"
	"github.com/nsbm60/marketdata-ui-sub001/pkg/errors"
)

// Config is the top-level service configuration.
type Config struct {
	// Gateway is the websocket URL of the market-data gateway.
	Gateway string `yaml:"gateway" validate:"required,url"`

	// RequestTimeout bounds every control-channel round-trip.
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"min=0"`

	// ThrottleInterval is the shared flush interval for price consumers.
	ThrottleInterval time.Duration `yaml:"throttleInterval" validate:"min=0"`

	// VisibleBarCount sizes the visible chart window.
	VisibleBarCount int `yaml:"visibleBarCount" validate:"required,min=1"`

	// Session selects regular or extended trading hours.
	Session string `yaml:"session" validate:"required,oneof=regular extended"`

	// Indicators configures which indicator series are computed. Their
	// warm-up requirement drives how much leading history is fetched.
	Indicators IndicatorsConfig `yaml:"indicators"`
}

// IndicatorsConfig enables and parameterizes the indicator series.
type IndicatorsConfig struct {
	MAPeriod     int  `yaml:"maPeriod" validate:"min=0"`
	RSIPeriod    int  `yaml:"rsiPeriod" validate:"min=0"`
	MACDEnabled  bool `yaml:"macdEnabled"`
	MACDFast     int  `yaml:"macdFast" validate:"min=0"`
	MACDSlow     int  `yaml:"macdSlow" validate:"min=0"`
	MACDSignal   int  `yaml:"macdSignal" validate:"min=0"`
	RibbonCount  int  `yaml:"ribbonCount" validate:"min=0"`
	RibbonBase   int  `yaml:"ribbonBase" validate:"min=0"`
	RibbonStep   int  `yaml:"ribbonStep" validate:"min=0"`
	ATRPeriod    int  `yaml:"atrPeriod" validate:"min=0"`
}

// Settings converts the indicator configuration into the engine's setting
// list. A zero period disables that indicator.
func (c IndicatorsConfig) Settings() []indicator.Setting {
	return []indicator.Setting{
		{Kind: indicator.KindMA, Enabled: c.MAPeriod > 0, Period: c.MAPeriod},
		{Kind: indicator.KindRSI, Enabled: c.RSIPeriod > 0, Period: c.RSIPeriod},
		{
			Kind:    indicator.KindMACD,
			Enabled: c.MACDEnabled,
			Fast:    c.MACDFast,
			Slow:    c.MACDSlow,
			Signal:  c.MACDSignal,
		},
		{
			Kind:       indicator.KindRibbon,
			Enabled:    c.RibbonCount > 0,
			Count:      c.RibbonCount,
			BasePeriod: c.RibbonBase,
			Step:       c.RibbonStep,
		},
	}
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Gateway:          "ws://localhost:8080/ws",
		RequestTimeout:   15 * time.Second,
		ThrottleInterval: 250 * time.Millisecond,
		VisibleBarCount:  120,
		Session:          "regular",
		Indicators: IndicatorsConfig{
			MAPeriod:   20,
			RSIPeriod:  14,
			MACDFast:   12,
			MACDSlow:   26,
			MACDSignal: 9,
		},
	}
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// Load reads a YAML config file, filling unset fields from the defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
