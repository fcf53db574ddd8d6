package testutil

import "testing"

// step runs fn as a named subtest. Step names read as a sentence in
// `go test -v` output: "Given a migrated profile/When ...".
func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(keyword+" "+desc, fn)
}

// Given describes the state a scenario starts from.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Given", desc, fn)
}

// When describes the operation under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "When", desc, fn)
}

// Then describes an expected outcome.
func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "Then", desc, fn)
}

// And continues the previous step.
func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return step(t, "And", desc, fn)
}
