package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmon/internal/backend/monitor"
	"taskmon/internal/cli"
	"taskmon/internal/commands"
	"taskmon/internal/config"
	"taskmon/internal/exitcode"
	"taskmon/internal/service"
	"taskmon/internal/session"
	"taskmon/internal/testutil"
	"taskmon/internal/ui"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, tokens session.Store, hooks monitor.Hooks) (service.Service, error) {
		return svc, nil
	}
}

// loggedIn returns a config dir holding a stored token.
func loggedIn(t *testing.T, token string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, session.NewFileStore(filepath.Join(dir, config.TokenFile)).Set(session.NewToken(token)))
	return dir
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(t, dispatcher, "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(t, dispatcher, "version", "--config", t.TempDir())

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "taskmon 0.1.0\n", stdout)
}

func TestDispatcher_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"help", "--unknown"}, "error: unknown flag: -unknown\n"},
		{"missing value", []string{"add", "--keyword"}, "error: flag needs an argument: -keyword\n"},
		{"bad value", []string{"results", "--page", "two", "1"}, "error: invalid value \"two\" for flag -page: parse error\n"},
		{"shell argument", []string{"shell", "list"}, "error: unexpected argument: list\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

			args := append([]string{tt.args[0], "--config", t.TempDir()}, tt.args[1:]...)
			_, stderr, code := run(t, dispatcher, args...)

			assert.Equal(t, exitcode.UserError, code)
			assert.Equal(t, tt.want, stderr)
		})
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(t, dispatcher, "list", "--config", t.TempDir())

	assert.Equal(t, exitcode.AuthError, code)
	assert.Equal(t, "error: not logged in (run: taskmon login)\n", stderr)
	assert.Zero(t, svc.Calls("ListTasks"))
}

func TestDispatcher_DefaultsToList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{TaskName: "Sony A7", Keyword: "a7m4", Enabled: true})
	require.NoError(t, session.NewFileStore(filepath.Join(config.DefaultConfigDir(), config.TokenFile)).Set(session.NewToken("t")))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	stdout, stderr, code := run(t, dispatcher)

	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "   1  on   Sony A7 (a7m4)\n", stdout)
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte("log_level: loud\n"), 0o600))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, dispatcher, "version", "--config", dir)

	assert.Equal(t, exitcode.UserError, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestDispatcher_InvalidServerURL(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "version", "--config", t.TempDir(), "--server", "not a url")

	assert.Equal(t, exitcode.UserError, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestDispatcher_AgainstBackend(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.AddTask(service.Task{TaskName: "Sony A7", Keyword: "a7m4", MaxPages: 2, Enabled: true})
	dir := t.TempDir()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)
	common := []string{"--config", dir, "--server", backend.URL}

	_, stderr, code := run(t, dispatcher, append([]string{"login", "-p", testutil.FakePassword, testutil.FakeUsername}, common...)...)
	require.Equal(t, exitcode.Success, code, stderr)

	stdout, stderr, code := run(t, dispatcher, append([]string{"list"}, common...)...)
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, "   1  on   Sony A7 (a7m4)\n", stdout)

	_, stderr, code = run(t, dispatcher, append([]string{"add", "--keyword", "x100v", "--pages", "1", "Fuji"}, common...)...)
	require.Equal(t, exitcode.Success, code, stderr)
	require.Len(t, backend.Tasks(), 2)

	_, stderr, code = run(t, dispatcher, append([]string{"run", "2"}, common...)...)
	require.Equal(t, exitcode.Success, code, stderr)
	stdout, _, code = run(t, dispatcher, append([]string{"status"}, common...)...)
	require.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "   2  running")
}

func TestDispatcher_BackendFailureIsNotifiedOnce(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.AddTask(service.Task{TaskName: "a", Keyword: "k", MaxPages: 1})
	backend.Fail(http.MethodDelete, "/api/tasks/delete/1", http.StatusInternalServerError, "scheduler is busy")
	dir := loggedIn(t, backend.Token(t))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "rm", "1", "--config", dir, "--server", backend.URL)

	assert.Equal(t, exitcode.BackendError, code)
	assert.Equal(t, "error: scheduler is busy\n", stderr)
}

func TestDispatcher_ExpiredSession(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	dir := loggedIn(t, backend.ExpiredToken(t))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "list", "--config", dir, "--server", backend.URL)

	assert.Equal(t, exitcode.AuthError, code)
	assert.Equal(t, ui.LoginHint+"\nerror: Could not validate credentials\n", stderr)
	assert.NoFileExists(t, filepath.Join(dir, config.TokenFile))
}

func TestShell_SharesOneSession(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{TaskName: "a", Keyword: "k"})
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dispatcher.SetInput(strings.NewReader("list\n\nshow 1\nadd -k kw second\nlist\nexit\nlist\n"))

	stdout, stderr, code := run(t, dispatcher, "shell", "--config", loggedIn(t, "t"))

	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, 1, svc.Calls("ListTasks"))
	assert.Equal(t, 6, strings.Count(stdout, cli.ShellPrompt))
	assert.Contains(t, stdout, "   1  off  a (k)\n   2  on   second (kw)\n")
}

func TestShell_ErrorsDoNotEndSession(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	dispatcher.SetInput(strings.NewReader("bogus\nshell\nrm\nversion\n"))

	stdout, stderr, code := run(t, dispatcher, "shell", "--quiet", "--config", loggedIn(t, "t"))

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "taskmon 0.1.0\n", stdout)
	assert.Equal(t, "error: unknown command: bogus\nerror: already in a shell\nerror: task id required\n", stderr)
}

func TestShell_ReturnsLastStatus(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))
	dispatcher.SetInput(strings.NewReader("version\nrm x\n"))

	_, _, code := run(t, dispatcher, "shell", "--quiet", "--config", loggedIn(t, "t"))

	assert.Equal(t, exitcode.UserError, code)
}

func TestShell_LoginAfterExpiry(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.AddTask(service.Task{TaskName: "a", Keyword: "k", MaxPages: 1})
	dir := loggedIn(t, backend.ExpiredToken(t))
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)
	dispatcher.SetInput(strings.NewReader(
		"list\nlist\nlogin -p " + testutil.FakePassword + " " + testutil.FakeUsername + "\nlist\n"))

	stdout, stderr, code := run(t, dispatcher, "shell", "--quiet", "--config", dir, "--server", backend.URL)

	require.Equal(t, exitcode.Success, code, stderr)
	assert.Equal(t, ui.LoginHint+"\nerror: Could not validate credentials\nerror: not logged in (run: taskmon login)\n", stderr)
	assert.Equal(t, "   1  off  a (k)\n", stdout)
}

func TestShell_RedirectOnlyAffectsItsOwnCommand(t *testing.T) {
	tests := []struct {
		name  string
		after string
		want  int
	}{
		{"usage error", "login", exitcode.UserError},
		{"rejected credentials", "login -p wrong " + testutil.FakeUsername, exitcode.BackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			dir := loggedIn(t, backend.ExpiredToken(t))
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)
			dispatcher.SetInput(strings.NewReader("list\n" + tt.after + "\n"))

			_, stderr, code := run(t, dispatcher, "shell", "--quiet", "--config", dir, "--server", backend.URL)

			assert.Equal(t, tt.want, code, stderr)
			assert.Equal(t, 1, strings.Count(stderr, ui.LoginHint))
		})
	}
}
