package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/fixverify/internal/config"
	"github.com/gnolang/fixverify/internal/report"
)

const passingCases = `cases:
  - name: drops len
    rule: simplify-slice-range
    source: |
      package main

      func f(s []int) []int {
      	return s[:[|len(s)|]]
      }
    expected: |
      package main

      func f(s []int) []int {
      	return s[:]
      }
`

const failingCases = `cases:
  - name: wrong expected
    rule: simplify-slice-range
    source: |
      package main

      func f(s []int) []int {
      	return s[:len(s)]
      }
    expected: |
      package main
`

// execute runs the root command with fresh flag values. Commands share
// package state, so these tests do not run in parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	jsonOutput, msgpackOutput, outPath, ruleFilter, failFast = false, false, "", nil, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_Text(t *testing.T) {
	out, err := execute(t, "run", writeCases(t, passingCases))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "drops len (1 fix)")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestRun_RootAlias(t *testing.T) {
	out, err := execute(t, writeCases(t, passingCases))
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestRun_Failure(t *testing.T) {
	out, err := execute(t, "run", writeCases(t, failingCases))
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, out, "MismatchError")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestRun_JSONToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.json")
	_, err := execute(t, "run", "--json", "-o", target, writeCases(t, failingCases))
	assert.ErrorIs(t, err, ErrFailed)

	data, err := os.ReadFile(target)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Cases, 1)
	assert.Equal(t, "MismatchError", rep.Cases[0].Kind)
}

func TestRun_Msgpack(t *testing.T) {
	out, err := execute(t, "run", "--msgpack", writeCases(t, passingCases))
	require.NoError(t, err)

	rep, err := report.DecodeMsgpack(bytes.NewReader([]byte(out)))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Passed)
}

func TestRun_InvalidInvocations(t *testing.T) {
	cases := writeCases(t, passingCases)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no paths", args: []string{"run"}},
		{name: "both encodings", args: []string{"run", "--json", "--msgpack", cases}},
		{name: "unknown rule filter", args: []string{"run", "--rule", "no-such-rule", cases}},
		{name: "missing path", args: []string{"run", filepath.Join(t.TempDir(), "missing")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrFailed)
		})
	}
}

func TestRun_RuleFilter(t *testing.T) {
	out, err := execute(t, "run", "--rule", "empty-else", writeCases(t, failingCases))
	require.NoError(t, err)
	assert.Contains(t, out, "0 passed, 0 failed")
}

func TestRules(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "empty-else")
	assert.Contains(t, out, "detect-only")
	assert.NotContains(t, out, "syntax-error")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixverify.yaml")

	jsonOutput, msgpackOutput, outPath, ruleFilter, failFast = false, false, "", nil, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init", "--config", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Verification, cfg.Verification)
}
