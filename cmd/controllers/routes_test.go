package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoutesCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "users.controller.yaml"), "/users:\n  get: listUsers\n  post: [auth, createUser]\n")
	writeFile(t, filepath.Join(root, "admin", "stats.controller", "index.yaml"), "/stats:\n  get: stats\n")
	writeFile(t, filepath.Join(root, "bad.controller.yaml"), "/x: [\n")

	out, errOut, err := execute(t, "routes", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Regexp(t, `^METHOD\s+PATH\s+HANDLERS$`, lines[0])
	assert.Regexp(t, `^GET\s+/users\s+1$`, lines[1])
	assert.Regexp(t, `^POST\s+/users\s+2$`, lines[2])
	assert.Regexp(t, `^GET\s+/stats\s+1$`, lines[3])
	assert.Contains(t, errOut, "bad.controller.yaml")
}

func TestRoutesCommand_NotRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.controller.yaml"), "/a:\n  get: a\n")
	writeFile(t, filepath.Join(root, "sub", "b.controller.yaml"), "/b:\n  get: b\n")

	out, _, err := execute(t, "routes", "--recursive=false", root)
	require.NoError(t, err)
	assert.Contains(t, out, "/a")
	assert.NotContains(t, out, "/b")
}

func TestRoutesCommand_CustomSuffix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.routes.toml"), "[\"/a\"]\nget = \"a\"\n")

	out, _, err := execute(t, "routes", "--suffix", ".routes.toml", root)
	require.NoError(t, err)
	assert.Contains(t, out, "/a")
}

func TestRoutesCommand_MissingDirectory(t *testing.T) {
	_, _, err := execute(t, "routes", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRoutesCommand_RequiresDirectory(t *testing.T) {
	_, _, err := execute(t, "routes")
	assert.Error(t, err)
}
