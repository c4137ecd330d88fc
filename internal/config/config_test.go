package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultMatchesConfigurationContract(t *testing.T) {
	def := Default()

	if def.MaxDepth != 11 {
		t.Errorf("MaxDepth = %d, want 11", def.MaxDepth)
	}
	if def.TimeBudgetSeconds != 7 {
		t.Errorf("TimeBudgetSeconds = %g, want 7", def.TimeBudgetSeconds)
	}
	if def.NMRMinDepth != 3 || def.NMRReduction != 2 {
		t.Errorf("NMR defaults = (%d, %d), want (3, 2)", def.NMRMinDepth, def.NMRReduction)
	}
	if !def.LMREnabled {
		t.Error("LMREnabled should default to true")
	}
	if len(def.AspirationWidening) != 2 || def.AspirationWidening[0] != 100 {
		t.Errorf("AspirationWidening = %v, want [100, widenInfinite]", def.AspirationWidening)
	}
}

func TestLoadWithNoFlagsOrFileReturnsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}

	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MaxDepth != Default().MaxDepth {
		t.Errorf("Load with no overrides: MaxDepth = %d, want default %d", cfg.MaxDepth, Default().MaxDepth)
	}
}

func TestLoadAppliesFlagOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--max-depth=5", "--nmr-min-depth=4"}); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}

	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5 from flag override", cfg.MaxDepth)
	}
	if cfg.NMRMinDepth != 4 {
		t.Errorf("NMRMinDepth = %d, want 4 from flag override", cfg.NMRMinDepth)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name string
		mod  func(c *Config)
	}{
		{"max depth zero", func(c *Config) { c.MaxDepth = 0 }},
		{"negative time budget", func(c *Config) { c.TimeBudgetSeconds = -1 }},
		{"negative qs depth", func(c *Config) { c.QSMaxDepth = -1 }},
		{"nmr min depth too low", func(c *Config) { c.NMRMinDepth = 1 }},
		{"nmr reduction zero", func(c *Config) { c.NMRReduction = 0 }},
		{"empty futility margins", func(c *Config) { c.FutilityMargins = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			if err := cfg.validate(); err == nil {
				t.Errorf("validate() on %s did not return an error", tc.name)
			}
		})
	}
}

func TestTimeBudgetConversion(t *testing.T) {
	cfg := Default()
	cfg.TimeBudgetSeconds = 2.5
	if got, want := cfg.TimeBudget().Seconds(), 2.5; got != want {
		t.Errorf("TimeBudget().Seconds() = %g, want %g", got, want)
	}
}

func TestTTSizeMBHasAFloor(t *testing.T) {
	cfg := Default()
	cfg.TTCapacity = 1
	if got := cfg.TTSizeMB(); got < 1 {
		t.Errorf("TTSizeMB() = %d, want >= 1 even for a tiny capacity", got)
	}
}

func TestSearchParamsProjection(t *testing.T) {
	cfg := Default()
	cfg.NMRMinDepth = 4
	sp := cfg.SearchParams()

	if sp.NMRMinDepth != 4 {
		t.Errorf("SearchParams().NMRMinDepth = %d, want 4", sp.NMRMinDepth)
	}
	if len(sp.FutilityMargins) != len(cfg.FutilityMargins) {
		t.Fatalf("SearchParams().FutilityMargins length = %d, want %d", len(sp.FutilityMargins), len(cfg.FutilityMargins))
	}

	// The projected slice must be an independent copy: mutating it should
	// never reach back into cfg.
	sp.FutilityMargins[0] = 999
	if cfg.FutilityMargins[0] == 999 {
		t.Error("SearchParams() must copy FutilityMargins, not alias the config's slice")
	}
}
