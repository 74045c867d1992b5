package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gekko "github.com/gekko3d/gekko-app"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestScheduleCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schedule"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "schedule startup\n  Startup (always)\n    - announce\n")
	assert.Contains(t, out.String(), "  First (always)\n    - time\n")
	assert.Contains(t, out.String(), "  PostUpdate (always)\n    - heartbeat\n")
	assert.NotContains(t, out.String(), "exit_after")
}

func TestRunCommand_ExitAfter(t *testing.T) {
	path := writeConfig(t, `
[runner]
mode = "loop"
wait = "0s"

[logging]
level = "warn"
`)
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path, "run", "--exit-after", "3"})

	require.NoError(t, cmd.Execute())
}

func TestRunCommand_BadConfig(t *testing.T) {
	path := writeConfig(t, "[logging]\nformat = \"xml\"\n")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"-c", path, "run"})

	assert.Error(t, cmd.Execute())
}

func TestBuildDemoApp_ExitAfter(t *testing.T) {
	path := writeConfig(t, "[runner]\nwait = \"0s\"\n")
	app, err := buildDemoApp(context.Background(), &rootOptions{ConfigPath: path}, 5)
	require.NoError(t, err)

	require.NoError(t, app.Run())
	assert.Equal(t, uint64(5), app.Ticks())
	assert.Equal(t, uint64(5), gekko.Resource[gekko.Time](app.World()).Frame)
}

func TestBuildDemoApp_Scripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quit.lua"), []byte(`
gekko.system(gekko.Update, "quit", function(frame)
  if frame == 2 then gekko.exit("script") end
end)
`), 0o644))
	path := writeConfig(t, "[runner]\nwait = \"0s\"\n[scripts]\ndir = \""+filepath.ToSlash(dir)+"\"\n")

	app, err := buildDemoApp(context.Background(), &rootOptions{ConfigPath: path}, 0)
	require.NoError(t, err)
	require.NoError(t, app.Run())
	assert.Equal(t, uint64(2), app.Ticks())
}
