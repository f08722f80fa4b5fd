// Package config loads fixverify configuration. Values are layered, later
// sources winning: defaults, the project file (.fixverify.yaml) and
// FIXVERIFY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/gnolang/fixverify/internal/rules"
	tt "github.com/gnolang/fixverify/internal/types"
)

const (
	DefaultPath = ".fixverify.yaml"
	EnvPrefix   = "FIXVERIFY_"
)

// Config is the fixverify configuration file.
type Config struct {
	Name         string                    `koanf:"name" yaml:"name"`
	Verification Verification              `koanf:"verification" yaml:"verification"`
	Parallelism  int                       `koanf:"parallelism" yaml:"parallelism"`
	Rules        map[string]rules.Settings `koanf:"rules" yaml:"rules,omitempty"`
}

// Verification mirrors tt.VerificationOptions with severities spelled out.
type Verification struct {
	ToleratedSeverities         []string `koanf:"tolerated_severities" yaml:"tolerated_severities"`
	CompareMessages             bool     `koanf:"compare_messages" yaml:"compare_messages"`
	MaxIterations               int      `koanf:"max_iterations" yaml:"max_iterations"`
	NormalizeBeforeFinalCompare bool     `koanf:"normalize_before_final_compare" yaml:"normalize_before_final_compare"`
}

// Defaults returns the default value of every key.
func Defaults() map[string]any {
	opts := tt.DefaultOptions()
	severities := make([]string, 0, len(opts.ToleratedSeverities))
	for _, s := range opts.ToleratedSeverities {
		severities = append(severities, strings.ToLower(s.String()))
	}
	return map[string]any{
		"name":                                        "fixverify",
		"verification.tolerated_severities":           severities,
		"verification.compare_messages":               opts.CompareMessages,
		"verification.max_iterations":                 opts.MaxIterations,
		"verification.normalize_before_final_compare": opts.NormalizeBeforeFinalCompare,
		"parallelism":                                 runtime.NumCPU(),
	}
}

// Load reads configuration from path, which may not exist, and the
// environment. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")
	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// envTransform maps FIXVERIFY_VERIFICATION__MAX_ITERATIONS to
// verification.max_iterations.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks severities and rule names.
func (c *Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if _, err := c.RuleSettings(); err != nil {
		return err
	}
	if c.Verification.MaxIterations < 0 {
		return fmt.Errorf("verification.max_iterations must not be negative, got %d", c.Verification.MaxIterations)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	return nil
}

// Options converts the verification section into run options.
func (c *Config) Options() (tt.VerificationOptions, error) {
	opts := tt.VerificationOptions{
		CompareMessages:             c.Verification.CompareMessages,
		MaxIterations:               c.Verification.MaxIterations,
		NormalizeBeforeFinalCompare: c.Verification.NormalizeBeforeFinalCompare,
	}
	for _, entry := range c.Verification.ToleratedSeverities {
		// environment values arrive as one comma separated string
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			s, err := tt.ParseSeverity(name)
			if err != nil {
				return tt.VerificationOptions{}, fmt.Errorf("verification.tolerated_severities: %w", err)
			}
			opts.ToleratedSeverities = append(opts.ToleratedSeverities, s)
		}
	}
	return opts, nil
}

// RuleSettings returns the per-rule settings keyed by validated rule id.
func (c *Config) RuleSettings() (map[tt.RuleID]rules.Settings, error) {
	out := make(map[tt.RuleID]rules.Settings, len(c.Rules))
	for name, s := range c.Rules {
		id, err := rules.ParseID(name)
		if err != nil {
			return nil, fmt.Errorf("rules: %w", err)
		}
		out[id] = s
	}
	return out, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides.
func Default() Config {
	opts := tt.DefaultOptions()
	cfg := Config{
		Name: "fixverify",
		Verification: Verification{
			CompareMessages:             opts.CompareMessages,
			MaxIterations:               opts.MaxIterations,
			NormalizeBeforeFinalCompare: opts.NormalizeBeforeFinalCompare,
		},
		Parallelism: runtime.NumCPU(),
		Rules: map[string]rules.Settings{
			string(rules.HighCyclomaticComplexity): {Threshold: rules.DefaultComplexityThreshold},
		},
	}
	for _, s := range opts.ToleratedSeverities {
		cfg.Verification.ToleratedSeverities = append(cfg.Verification.ToleratedSeverities, strings.ToLower(s.String()))
	}
	return cfg
}

// Write stores cfg as YAML at path, replacing any existing file.
func Write(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath
	}
	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
