// Package testutil provides common test utilities and assertions for runjs tests.
package testutil

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/runjs/application/resolver"
)

// WriteTree writes files (slash-separated relative path to contents) under
// dir and returns the identifier of each one.
func WriteTree(t *testing.T, dir string, files map[string]string) map[string]*url.URL {
	t.Helper()

	ids := make(map[string]*url.URL, len(files))
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		ids[name] = resolver.FileURL(p)
	}
	return ids
}

// RequireErrorAs asserts err has a T in its chain and returns it.
func RequireErrorAs[T error](t *testing.T, err error, msgAndArgs ...interface{}) T {
	t.Helper()

	var target T
	require.Error(t, err, msgAndArgs...)
	require.True(t, errors.As(err, &target), "expected %T in chain of %v", target, err)
	return target
}

// AssertContiguous asserts every part occurs in s as one unbroken substring,
// and that the parts together account for all of s.
func AssertContiguous(t *testing.T, s string, parts []string, msgAndArgs ...interface{}) {
	t.Helper()

	total := 0
	for _, p := range parts {
		total += len(p)
		assert.True(t, strings.Contains(s, p), "%q is not contiguous in the buffer", p)
	}
	assert.Equal(t, total, len(s), msgAndArgs...)
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
