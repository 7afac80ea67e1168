package indicator

// Kind identifies an indicator family in a chart's settings.
type Kind string

const (
	KindMA     Kind = "ma"
	KindRibbon Kind = "ribbon"
	KindRSI    Kind = "rsi"
	KindMACD   Kind = "macd"
)

// Setting is the pure configuration of one indicator on a chart. It carries
// no runtime state; only the fields relevant to its Kind are read.
type Setting struct {
	Kind    Kind `yaml:"kind" json:"kind"`
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Period applies to KindMA and KindRSI.
	Period int `yaml:"period,omitempty" json:"period,omitempty"`

	// Ribbon parameters: Count EMA lines with periods BasePeriod + k*Step.
	Count      int `yaml:"count,omitempty" json:"count,omitempty"`
	BasePeriod int `yaml:"basePeriod,omitempty" json:"basePeriod,omitempty"`
	Step       int `yaml:"step,omitempty" json:"step,omitempty"`

	// MACD parameters.
	Fast   int `yaml:"fast,omitempty" json:"fast,omitempty"`
	Slow   int `yaml:"slow,omitempty" json:"slow,omitempty"`
	Signal int `yaml:"signal,omitempty" json:"signal,omitempty"`
}

// warmupBars returns the leading-bar count this setting needs before its
// first visible bar for the indicator to be valid there.
func (s Setting) warmupBars() int {
	switch s.Kind {
	case KindMA:
		return s.Period
	case KindRibbon:
		return s.BasePeriod + (s.Count-1)*s.Step
	case KindRSI:
		return s.Period + 1
	case KindMACD:
		return s.Slow + s.Signal - 1
	default:
		return 0
	}
}

// WarmupBars returns the minimum number of leading bars needed before the
// first visible bar for every enabled indicator to be valid there. Callers
// may scale the result for scroll buffering; that policy is theirs.
func WarmupBars(settings []Setting) int {
	warmup := 0

	for _, setting := range settings {
		if !setting.Enabled {
			continue
		}

		if w := setting.warmupBars(); w > warmup {
			warmup = w
		}
	}

	return warmup
}
