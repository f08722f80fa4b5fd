// Package verifytest reports verification results through testify so rule
// authors can write one-line test assertions.
package verifytest

import (
	"errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/fixverify/formatter"
	"github.com/gnolang/fixverify/verify"
)

type tHelper interface {
	Helper()
}

// Describe renders res for use in test failure messages.
func Describe(name string, res *verify.Result) string {
	return formatter.Result(name, res)
}

// AssertPass reports a test error unless res passed.
func AssertPass(t assert.TestingT, res *verify.Result, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if res.Passed() {
		return true
	}
	return assert.Fail(t, "verification did not pass\n"+Describe("result", res), msgAndArgs...)
}

// RequirePass stops the test unless res passed.
func RequirePass(t require.TestingT, res *verify.Result, msgAndArgs ...any) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !AssertPass(t, res, msgAndArgs...) {
		t.FailNow()
	}
}

// AssertFailure reports a test error unless res failed with the kind of
// target, e.g. verify.ErrStuckLoop.
func AssertFailure(t assert.TestingT, res *verify.Result, target error, msgAndArgs ...any) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if errors.Is(res.Err(), target) {
		return true
	}
	return assert.Fail(t, "unexpected verification outcome, want "+target.Error()+"\n"+Describe("result", res), msgAndArgs...)
}
