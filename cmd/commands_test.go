package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	withFlags(t, "table")
	dir := t.TempDir()
	writeScenario(t, dir, "greetings.yaml", `
name: GreetingsIT
services:
  - name: db
    container:
      image: postgres:16
      port: 5432
`)

	listCmd := newListCmd()
	var out bytes.Buffer
	listCmd.SetOut(&out)
	require.NoError(t, listCmd.RunE(listCmd, []string{dir}))

	output := out.String()
	assert.Contains(t, output, "GreetingsIT")
	assert.Contains(t, output, "db")
	assert.Contains(t, output, "container postgres:16")
}

func TestRunCommand_EmptyScenario(t *testing.T) {
	withFlags(t, "json")
	dir := t.TempDir()
	writeScenario(t, dir, "empty.yaml", "name: EmptyIT\nservices: []\n")

	runCmd := newRunCmd()
	runCmd.SetContext(context.Background())
	var out, errOut bytes.Buffer
	runCmd.SetOut(&out)
	runCmd.SetErr(&errOut)
	require.NoError(t, runCmd.RunE(runCmd, []string{dir}))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "EmptyIT", views[0]["scenario"])
	assert.Equal(t, "passed", views[0]["status"])
}

func TestRunCommand_MissingPath(t *testing.T) {
	withFlags(t, "table")

	runCmd := newRunCmd()
	runCmd.SetContext(context.Background())
	err := runCmd.RunE(runCmd, []string{t.TempDir() + "/missing.yaml"})
	require.Error(t, err)
	assert.Equal(t, ExitCodeError, getExitCode(err))
}
