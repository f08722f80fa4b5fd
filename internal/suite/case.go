// Package suite loads verification cases from YAML or TOML files and runs
// them against the built-in rules.
package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	tt "github.com/gnolang/fixverify/internal/types"
)

// Mode selects what a case verifies.
type Mode string

const (
	// ModeFix applies the rule's fix until convergence and compares the
	// result with the expected text. Annotated spans, if any, are checked
	// first.
	ModeFix Mode = "fix"
	// ModeNoFix asserts the rule offers no fix.
	ModeNoFix Mode = "nofix"
	// ModeDiagnostic only checks the annotated spans.
	ModeDiagnostic Mode = "diagnostic"
)

var ErrUnsupportedFormat = errors.New("unsupported case file format")

// Case is one verification described in a case file.
type Case struct {
	Name           string       `yaml:"name" toml:"name"`
	Rule           string       `yaml:"rule" toml:"rule"`
	Mode           Mode         `yaml:"mode" toml:"mode"`
	Filename       string       `yaml:"filename" toml:"filename"`
	Source         string       `yaml:"source" toml:"source"`
	Expected       string       `yaml:"expected" toml:"expected"`
	Messages       []string     `yaml:"messages" toml:"messages"`
	Title          string       `yaml:"title" toml:"title"`
	EquivalenceKey string       `yaml:"equivalence_key" toml:"equivalence_key"`
	Options        *CaseOptions `yaml:"options" toml:"options"`
}

// CaseOptions overrides the run options for a single case.
type CaseOptions struct {
	ToleratedSeverities         []string `yaml:"tolerated_severities" toml:"tolerated_severities"`
	CompareMessages             *bool    `yaml:"compare_messages" toml:"compare_messages"`
	MaxIterations               *int     `yaml:"max_iterations" toml:"max_iterations"`
	NormalizeBeforeFinalCompare *bool    `yaml:"normalize_before_final_compare" toml:"normalize_before_final_compare"`
	Threshold                   *int     `yaml:"threshold" toml:"threshold"`
}

// File is a parsed case file.
type File struct {
	Path  string `yaml:"-" toml:"-"`
	Name  string `yaml:"name" toml:"name"`
	Cases []Case `yaml:"cases" toml:"cases"`
}

var extensions = []string{".yaml", ".yml", ".toml"}

func isCaseFile(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// Discover expands directories into the case files below them. Explicit
// file arguments must have a case file extension.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			if !isCaseFile(path) {
				return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
			}
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isCaseFile(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// Load discovers and parses every case file under paths.
func Load(paths []string) ([]*File, error) {
	names, err := Discover(paths)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, len(names))
	for _, name := range names {
		f, err := LoadFile(name)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFile parses one case file, choosing the format by extension.
func LoadFile(path string) (*File, error) {
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	case ".toml":
		meta, err := toml.DecodeFile(path, &f)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	f.Path = path
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.Cases) == 0 {
		return errors.New("no cases")
	}
	names := make(map[string]bool, len(f.Cases))
	for i := range f.Cases {
		c := &f.Cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case %d", i+1)
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate case name %q", c.Name)
		}
		names[c.Name] = true

		if err := c.validate(); err != nil {
			return fmt.Errorf("case %q: %w", c.Name, err)
		}
	}
	return nil
}

func (c *Case) validate() error {
	if c.Rule == "" {
		return errors.New("missing rule")
	}
	if c.Mode == "" {
		c.Mode = ModeDiagnostic
		if c.Expected != "" {
			c.Mode = ModeFix
		}
	}
	switch c.Mode {
	case ModeFix:
		if c.Expected == "" {
			return errors.New("fix cases need expected text")
		}
	case ModeNoFix, ModeDiagnostic:
		if c.Expected != "" {
			return fmt.Errorf("%s cases take no expected text", c.Mode)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Source == "" {
		return errors.New("missing source")
	}
	return nil
}

// Apply returns base with the case overrides applied.
func (o *CaseOptions) Apply(base tt.VerificationOptions) (tt.VerificationOptions, error) {
	if o == nil {
		return base, nil
	}
	if o.ToleratedSeverities != nil {
		severities := make([]tt.Severity, 0, len(o.ToleratedSeverities))
		for _, name := range o.ToleratedSeverities {
			s, err := tt.ParseSeverity(name)
			if err != nil {
				return base, fmt.Errorf("tolerated_severities: %w", err)
			}
			severities = append(severities, s)
		}
		base.ToleratedSeverities = severities
	}
	if o.CompareMessages != nil {
		base.CompareMessages = *o.CompareMessages
	}
	if o.MaxIterations != nil {
		base.MaxIterations = *o.MaxIterations
	}
	if o.NormalizeBeforeFinalCompare != nil {
		base.NormalizeBeforeFinalCompare = *o.NormalizeBeforeFinalCompare
	}
	return base, nil
}
