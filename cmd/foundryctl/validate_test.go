package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFileSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<!DOCTYPE html><html></html>")
	writeFile(t, dir, "assets/app.js", "console.log(1)")
	writeFile(t, dir, ".git/config", "hidden")

	files, err := loadFileSet(dir)
	require.NoError(t, err)

	assert.Len(t, files, 2)
	assert.Contains(t, files, "index.html")
	assert.Contains(t, files, "assets/app.js")
	assert.NotContains(t, files, ".git/config")
}

func TestLoadFileSet_Empty(t *testing.T) {
	_, err := loadFileSet(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files")
}

func TestLoadChecks_FileAndArgs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "checks.txt", "Repo has MIT license\n\n# comment\nREADME is detailed\n")

	checksFile = filepath.Join(dir, "checks.txt")
	t.Cleanup(func() { checksFile = "" })

	checks, err := loadChecks([]string{"Page has element #result"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Page has element #result",
		"Repo has MIT license",
		"README is detailed",
	}, checks)
}
