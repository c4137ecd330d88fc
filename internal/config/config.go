// Package config loads the driver's tunable knobs from flags, environment
// variables, and an optional config file, with defaults matching the
// documented configuration contract.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/corvidchess/chesscore/internal/engine"
)

// Config holds every knob the driver exposes to an operator. Field names
// match the configuration contract's snake_case keys once lower-cased and
// de-camelled by viper's key matching.
type Config struct {
	MaxDepth               int     `mapstructure:"max_depth"`
	TimeBudgetSeconds      float64 `mapstructure:"time_budget_seconds"`
	QSMaxDepth             int     `mapstructure:"qs_max_depth"`
	NMRMinDepth            int     `mapstructure:"nmr_min_depth"`
	NMRReduction           int     `mapstructure:"nmr_reduction"`
	LMREnabled             bool    `mapstructure:"lmr_enabled"`
	FutilityMargins        []int   `mapstructure:"futility_margins"`
	AspirationInitialDelta int     `mapstructure:"aspiration_initial_delta"`
	AspirationWidening     []int   `mapstructure:"aspiration_widening"`
	TTCapacity             int     `mapstructure:"tt_capacity"`
	BookPath               string  `mapstructure:"book_path"`
	TablebasePath          string  `mapstructure:"tablebase_path"`
}

// widenInfinite is the sentinel stored in AspirationWidening for the
// configuration contract's literal "∞" widening step: the final re-search
// always uses a fully open window regardless of its numeric value.
const widenInfinite = math.MaxInt32

// Default returns the configuration contract's stated defaults.
func Default() Config {
	return Config{
		MaxDepth:               11,
		TimeBudgetSeconds:      7,
		QSMaxDepth:             3,
		NMRMinDepth:            3,
		NMRReduction:           2,
		LMREnabled:             true,
		FutilityMargins:        []int{0, 200, 300},
		AspirationInitialDelta: 50,
		AspirationWidening:     []int{100, widenInfinite},
		TTCapacity:             1 << 20,
	}
}

// Load builds a Config from (in ascending priority) defaults, an optional
// config file, environment variables prefixed CHESSCORE_, and command-line
// flags already registered on fs. Callers should register fs's flags (via
// RegisterFlags) and call pflag.Parse or fs.Parse before Load.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	def := Default()

	v.SetDefault("max_depth", def.MaxDepth)
	v.SetDefault("time_budget_seconds", def.TimeBudgetSeconds)
	v.SetDefault("qs_max_depth", def.QSMaxDepth)
	v.SetDefault("nmr_min_depth", def.NMRMinDepth)
	v.SetDefault("nmr_reduction", def.NMRReduction)
	v.SetDefault("lmr_enabled", def.LMREnabled)
	v.SetDefault("futility_margins", def.FutilityMargins)
	v.SetDefault("aspiration_initial_delta", def.AspirationInitialDelta)
	v.SetDefault("aspiration_widening", def.AspirationWidening)
	v.SetDefault("tt_capacity", def.TTCapacity)
	v.SetDefault("book_path", "")
	v.SetDefault("tablebase_path", "")

	v.SetEnvPrefix("chesscore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if fs != nil {
		// Flags are hyphenated (--max-depth); config keys use underscores.
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("config: binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// RegisterFlags adds the driver's knobs to fs using the configuration
// contract's keys as flag names, e.g. --max-depth.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.Int("max-depth", def.MaxDepth, "maximum iterative-deepening depth")
	fs.Float64("time-budget-seconds", def.TimeBudgetSeconds, "wall-clock search budget per move")
	fs.Int("qs-max-depth", def.QSMaxDepth, "quiescence search ply limit")
	fs.Int("nmr-min-depth", def.NMRMinDepth, "minimum depth to attempt null-move pruning")
	fs.Int("nmr-reduction", def.NMRReduction, "depth reduction applied by null-move pruning")
	fs.Bool("lmr-enabled", def.LMREnabled, "enable late-move reductions")
	fs.IntSlice("futility-margins", def.FutilityMargins, "centipawn futility margins indexed by depth")
	fs.Int("aspiration-initial-delta", def.AspirationInitialDelta, "initial aspiration window half-width")
	fs.String("book-path", "", "Polyglot opening book path")
	fs.String("tablebase-path", "", "Syzygy tablebase directory")
}

func (c Config) validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("config: max_depth must be >= 1, got %d", c.MaxDepth)
	}
	if c.TimeBudgetSeconds < 0 {
		return fmt.Errorf("config: time_budget_seconds must be >= 0, got %g", c.TimeBudgetSeconds)
	}
	if c.QSMaxDepth < 0 {
		return fmt.Errorf("config: qs_max_depth must be >= 0, got %d", c.QSMaxDepth)
	}
	if c.NMRMinDepth < 2 {
		return fmt.Errorf("config: nmr_min_depth must be >= 2, got %d", c.NMRMinDepth)
	}
	if c.NMRReduction < 1 {
		return fmt.Errorf("config: nmr_reduction must be >= 1, got %d", c.NMRReduction)
	}
	if len(c.FutilityMargins) == 0 {
		return fmt.Errorf("config: futility_margins must not be empty")
	}
	return nil
}

// TimeBudget returns the configured time budget as a time.Duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds * float64(time.Second))
}

// TTSizeMB converts the configured entry-count capacity to the megabyte
// size NewTranspositionTable expects, assuming the engine package's
// ~12-byte packed entry layout.
func (c Config) TTSizeMB() int {
	const entrySize = 12
	mb := (c.TTCapacity * entrySize) / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return mb
}

// SearchParams projects the pruning and reduction knobs onto the shape the
// search engine consumes directly.
func (c Config) SearchParams() engine.SearchParams {
	margins := make([]int, len(c.FutilityMargins))
	copy(margins, c.FutilityMargins)
	return engine.SearchParams{
		NMRMinDepth:     c.NMRMinDepth,
		NMRReduction:    c.NMRReduction,
		LMREnabled:      c.LMREnabled,
		FutilityMargins: margins,
		QSMaxDepth:      c.QSMaxDepth,
	}
}
