// Package report encodes suite results for machines: JSON for humans with
// tools, msgpack for compact storage.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gnolang/fixverify/internal/suite"
	tt "github.com/gnolang/fixverify/internal/types"
	"github.com/gnolang/fixverify/internal/verifier"
)

type Report struct {
	Name      string    `json:"name" msgpack:"name"`
	Generated time.Time `json:"generated" msgpack:"generated"`
	Passed    int       `json:"passed" msgpack:"passed"`
	Failed    int       `json:"failed" msgpack:"failed"`
	Cancelled int       `json:"cancelled" msgpack:"cancelled"`
	Cases     []Case    `json:"cases" msgpack:"cases"`
}

type Case struct {
	File       string      `json:"file" msgpack:"file"`
	Name       string      `json:"name" msgpack:"name"`
	Rule       string      `json:"rule" msgpack:"rule"`
	Mode       string      `json:"mode" msgpack:"mode"`
	Outcome    string      `json:"outcome" msgpack:"outcome"`
	Kind       string      `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Reason     string      `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Applied    int         `json:"applied" msgpack:"applied"`
	DurationMS int64       `json:"duration_ms" msgpack:"duration_ms"`
	Trail      []Iteration `json:"trail,omitempty" msgpack:"trail,omitempty"`
}

type Iteration struct {
	Version     int          `json:"version" msgpack:"version"`
	Diagnostics []Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
	Title       string       `json:"title,omitempty" msgpack:"title,omitempty"`
	Key         string       `json:"equivalence_key,omitempty" msgpack:"equivalence_key,omitempty"`
}

type Diagnostic struct {
	Rule     string `json:"rule" msgpack:"rule"`
	Severity string `json:"severity" msgpack:"severity"`
	Message  string `json:"message" msgpack:"message"`
	Start    int    `json:"start" msgpack:"start"`
	End      int    `json:"end" msgpack:"end"`
}

// New summarizes results. Trails are kept for failing cases only.
func New(name string, results []suite.CaseResult) Report {
	r := Report{Name: name, Generated: time.Now().UTC(), Cases: make([]Case, 0, len(results))}
	r.Passed, r.Failed, r.Cancelled = suite.Count(results)

	for _, res := range results {
		c := Case{
			File:       res.File,
			Name:       res.Case,
			Rule:       res.Rule.String(),
			Mode:       string(res.Mode),
			Outcome:    res.Result.Outcome.String(),
			Applied:    res.Result.AppliedCount(),
			DurationMS: res.Duration.Milliseconds(),
		}
		if f := res.Result.Failure; f != nil {
			c.Kind = f.Kind.String()
			c.Reason = f.Reason
			c.Trail = iterations(res.Result.Trail)
		}
		r.Cases = append(r.Cases, c)
	}
	return r
}

// HasFailures reports whether any case failed or was cancelled.
func (r Report) HasFailures() bool {
	return r.Failed > 0 || r.Cancelled > 0
}

func iterations(trail []verifier.TrailEntry) []Iteration {
	out := make([]Iteration, 0, len(trail))
	for _, e := range trail {
		it := Iteration{Version: e.Version, Diagnostics: diagnostics(e.Diagnostics)}
		if e.Applied != nil {
			it.Title = e.Applied.Title
			it.Key = e.Applied.EquivalenceKey
		}
		out = append(out, it)
	}
	return out
}

func diagnostics(set tt.DiagnosticSet) []Diagnostic {
	items := set.Items()
	out := make([]Diagnostic, 0, len(items))
	for _, d := range items {
		out = append(out, Diagnostic{
			Rule:     d.ID.String(),
			Severity: d.Severity.String(),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		})
	}
	return out
}

func EncodeJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}

func EncodeMsgpack(w io.Writer, r Report) error {
	if err := msgpack.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("encoding msgpack report: %w", err)
	}
	return nil
}

func DecodeMsgpack(rd io.Reader) (Report, error) {
	var r Report
	if err := msgpack.NewDecoder(rd).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decoding msgpack report: %w", err)
	}
	return r, nil
}
