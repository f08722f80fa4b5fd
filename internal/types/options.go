package types

import "slices"

// DefaultMaxIterations bounds the number of applied fixes in one run.
const DefaultMaxIterations = 100

// VerificationOptions configures a verification run.
type VerificationOptions struct {
	// ToleratedSeverities lists severities whose new diagnostics are not
	// treated as regressions.
	ToleratedSeverities []Severity `koanf:"tolerated_severities" yaml:"tolerated_severities" toml:"tolerated_severities"`

	// CompareMessages makes diagnostic comparisons include messages.
	CompareMessages bool `koanf:"compare_messages" yaml:"compare_messages" toml:"compare_messages"`

	// MaxIterations caps the number of applied fixes. Zero means no cap.
	MaxIterations int `koanf:"max_iterations" yaml:"max_iterations" toml:"max_iterations"`

	// NormalizeBeforeFinalCompare runs the output normalizer on the final
	// document before comparing it to the expected text.
	NormalizeBeforeFinalCompare bool `koanf:"normalize_before_final_compare" yaml:"normalize_before_final_compare" toml:"normalize_before_final_compare"`
}

func DefaultOptions() VerificationOptions {
	return VerificationOptions{
		ToleratedSeverities:         []Severity{SeverityHidden, SeverityInfo},
		CompareMessages:             true,
		MaxIterations:               DefaultMaxIterations,
		NormalizeBeforeFinalCompare: true,
	}
}

func (o VerificationOptions) Tolerates(s Severity) bool {
	return slices.Contains(o.ToleratedSeverities, s)
}
