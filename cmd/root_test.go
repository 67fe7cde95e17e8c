package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/mpwsh/core/config"
	"github.com/josephlewis42/mpwsh/core/ttylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line with the configuration in configDir.
func execute(t *testing.T, configDir, stdin string, args ...string) (stdout, stderr string, status int) {
	t.Helper()

	cfgPath = configDir
	shellOpts = shellOptions{}

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	status = Execute()
	return out.String(), errOut.String(), status
}

// initConfig writes the default configuration to a temporary directory.
func initConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, config.Initialize(dir, log.New(io.Discard, "", 0)))
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRoot_command(t *testing.T) {
	out, stderr, status := execute(t, t.TempDir(), "", "-c", "Echo {0} {1} {#}", "x", "y")

	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "mpwsh x 2\n", out)
}

func TestRoot_stdin(t *testing.T) {
	out, stderr, status := execute(t, t.TempDir(), "Echo start\nEvaluate 1 / 0\nEcho not reached\n")

	assert.Equal(t, 1, status)
	assert.Equal(t, "start\n", out)
	assert.Equal(t, "### Evaluate - division by zero\n### MPW Shell - Execution of input Terminated.\n", stderr)
}

func TestRoot_stdinTerminalAbort(t *testing.T) {
	_, stderr, status := execute(t, t.TempDir(), "Evaluate 1 / 0\n")

	assert.Equal(t, 1, status)
	assert.Equal(t, "### Evaluate - division by zero\n", stderr)
}

func TestRoot_scriptFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.mpw")
	writeFile(t, script, "Echo {1} {#}\nIf {#} == 1\n\tEcho one parameter\nEnd\n")

	out, stderr, status := execute(t, dir, "", script, "p1")

	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "p1 1\none parameter\n", out)
}

func TestRoot_missingScript(t *testing.T) {
	dir := t.TempDir()

	_, stderr, status := execute(t, dir, "", filepath.Join(dir, "missing.mpw"))

	assert.Equal(t, 1, status)
	assert.True(t, strings.HasPrefix(stderr, "### MPW Shell - "), stderr)
}

func TestRoot_define(t *testing.T) {
	out, stderr, status := execute(t, t.TempDir(), "", "-D", "name=value", "-D", "flag", "-c", "Echo {name}-{flag}.")

	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "value-1.\n", out)

	out, stderr, status = execute(t, t.TempDir(), "", "-D", "Debug", "-D", "empty=", "-c", "If {Debug}\nEcho debug [{empty}]\nEnd")
	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "debug []\n", out)
}

func TestRoot_badDefine(t *testing.T) {
	_, stderr, status := execute(t, t.TempDir(), "", "-D", "=value", "-c", "Echo")

	assert.Equal(t, 1, status)
	assert.Contains(t, stderr, `invalid definition "=value"`)
}

func TestRoot_verbose(t *testing.T) {
	out, stderr, status := execute(t, t.TempDir(), "", "-v", "-c", "Echo hi")

	assert.Equal(t, 0, status)
	assert.Equal(t, "hi\n", out)
	assert.Contains(t, stderr, "Echo hi")
}

func TestRoot_envFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "vars.env")
	writeFile(t, envFile, "GREETING=hello\n")

	out, stderr, status := execute(t, dir, "", "--env-file", envFile, "-c", "Echo {greeting}; Export -s")

	assert.Equal(t, 0, status, stderr)
	assert.True(t, strings.HasPrefix(out, "hello\n"), out)
	assert.Contains(t, strings.Split(out, "\n"), "greeting")
}

func TestRoot_freshStatus(t *testing.T) {
	out, stderr, status := execute(t, initConfig(t), "", "-c", "Echo {Status}\nIf {Status} == 0\nEcho zero\nEnd")

	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "0\nzero\n", out)
}

func TestRoot_startup(t *testing.T) {
	dir := initConfig(t)
	writeFile(t, filepath.Join(dir, config.StartupName), "Set fromStartup yes\n")

	out, _, status := execute(t, dir, "", "-c", "Echo {fromStartup}.")
	assert.Equal(t, 0, status)
	assert.Equal(t, "yes.\n", out)

	out, _, status = execute(t, dir, "", "--no-startup", "-c", "Echo {fromStartup}.")
	assert.Equal(t, 0, status)
	assert.Equal(t, ".\n", out)
}

func TestRoot_mpwVariable(t *testing.T) {
	dir := initConfig(t)

	out, _, status := execute(t, dir, "", "-c", "Echo {MPW}")

	assert.Equal(t, 0, status)
	assert.Equal(t, dir+string(filepath.Separator)+"\n", out)
}

func TestInitCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new")

	_, stderr, status := execute(t, dir, "", "init")

	assert.Equal(t, 0, status)
	assert.Contains(t, stderr, "- Writing config.yaml")
	assert.FileExists(t, filepath.Join(dir, config.ConfigurationName))
	assert.FileExists(t, filepath.Join(dir, config.StartupName))
}

func TestBuiltinsCmd(t *testing.T) {
	out, _, status := execute(t, t.TempDir(), "", "builtins")

	assert.Equal(t, 0, status)
	assert.Contains(t, out, "Catenate\n")
	assert.Contains(t, out, "Evaluate\n")
}

func TestEventsCmd(t *testing.T) {
	dir := initConfig(t)
	configFile := filepath.Join(dir, config.ConfigurationName)
	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	writeFile(t, configFile, strings.Replace(string(data), `event_log: ""`, `event_log: events.jsonl`, 1))

	_, _, status := execute(t, dir, "", "-c", "Echo hi; Echo again")
	require.Equal(t, 0, status)

	out, stderr, status := execute(t, dir, "", "events", "report")
	assert.Equal(t, 0, status, stderr)
	assert.Contains(t, out, "run_command: 2")
	assert.Contains(t, out, "session_start: 1")

	out, stderr, status = execute(t, dir, "", "events", "sessions")
	assert.Equal(t, 0, status, stderr)
	assert.Contains(t, out, "Echo hi")
}

func TestEventsCmd_disabled(t *testing.T) {
	dir := initConfig(t)

	_, stderr, status := execute(t, dir, "", "events", "report")

	assert.Equal(t, 1, status)
	assert.Contains(t, stderr, "no event_log is configured")
}

func TestReplayCmd(t *testing.T) {
	dir := t.TempDir()
	cast := filepath.Join(dir, "session.cast")

	var recording bytes.Buffer
	rec, err := ttylog.NewRecorder(&recording, ttylog.Header{})
	require.NoError(t, err)
	io.WriteString(rec.Output(), "mpwsh % ")
	io.WriteString(rec.Input(), "Echo hi\r")
	io.WriteString(rec.Output(), "hi\r\n")
	writeFile(t, cast, recording.String())

	out, stderr, status := execute(t, dir, "", "replay", "--max-pause", "0", cast)

	assert.Equal(t, 0, status, stderr)
	assert.Equal(t, "mpwsh % hi\r\n", out)
}
