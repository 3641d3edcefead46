// Package testutil provides sandboxes, fixtures and servers shared by PriceNest tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEnv is a temporary directory that test file operations cannot escape.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a sandbox removed with the test.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the sandbox directory.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path joins elem under the sandbox, failing the test if the result leaves it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	p := filepath.Clean(filepath.Join(append([]string{e.rootDir}, elem...)...))
	root := filepath.Clean(e.rootDir)
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes test sandbox %q", p, e.rootDir)
	}
	return p
}

// WriteFile writes content to path, creating parent directories.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	abs := e.Path(path)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(e.t, os.WriteFile(abs, content, 0o644))
}

func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// WriteCSV writes a header line and rows, comma separated, and returns the absolute path.
func (e *TestEnv) WriteCSV(path, header string, rows ...string) string {
	e.t.Helper()
	e.WriteFileString(path, strings.Join(append([]string{header}, rows...), "\n")+"\n")
	return e.Path(path)
}

func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	content, err := os.ReadFile(e.Path(path))
	require.NoError(e.t, err)
	return content
}

func (e *TestEnv) ReadFileString(path string) string {
	e.t.Helper()
	return string(e.ReadFile(path))
}

func (e *TestEnv) MkdirAll(path string) {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(e.Path(path), 0o755))
}

// FileExists reports whether path exists in the sandbox.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()
	_, err := os.Stat(e.Path(path))
	return err == nil
}

func (e *TestEnv) RequireFileExists(path string) {
	e.t.Helper()
	require.FileExists(e.t, e.Path(path))
}

// Chdir moves the process into path until the test ends.
func (e *TestEnv) Chdir(path string) {
	e.t.Helper()

	orig, err := os.Getwd()
	require.NoError(e.t, err)
	require.NoError(e.t, os.Chdir(e.Path(path)))

	e.t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			e.t.Errorf("failed to restore directory to %q: %v", orig, err)
		}
	})
}

func (e *TestEnv) AssertFileContains(path, expected string) {
	e.t.Helper()
	require.Contains(e.t, e.ReadFileString(path), expected, "file %q", path)
}

func (e *TestEnv) String() string {
	return fmt.Sprintf("TestEnv{rootDir: %q}", e.rootDir)
}
