package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/authclient/internal/identitytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	srv *identitytest.Server
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("AUTHCLIENT_BASE_URL", srv.URL())
	t.Setenv("AUTHCLIENT_SESSION_DIR", dir)
	t.Setenv("AUTHCLIENT_SESSION_BACKEND", "")
	t.Setenv("AUTHCLIENT_PASSWORD", "")
	return &harness{t: t, srv: srv, dir: dir}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-env-file", ""}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	code, out, errOut := h.run("login", "-u", "admin", "-p", "admin123")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "login successful")
	assert.Contains(t, out, "roles: ADMIN, USER")
	assert.FileExists(t, filepath.Join(h.dir, "authclient_user_session.json"))

	code, out, _ = h.run("whoami")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "user:      admin")
	assert.Contains(t, out, "token:     bearer, expires")

	code, out, _ = h.run("status")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "authenticated as admin")

	code, out, _ = h.run("has-role", "ADMIN")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "yes\n", out)

	code, out, _ = h.run("validate")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "valid for")

	code, out, _ = h.run("refresh")
	require.Equal(t, exitOK, code)
	assert.NotEmpty(t, out)

	code, _, _ = h.run("logout")
	require.Equal(t, exitOK, code)
	assert.NoFileExists(t, filepath.Join(h.dir, "authclient_user_session.json"))

	code, _, errOut = h.run("whoami")
	assert.Equal(t, exitFail, code)
	assert.Contains(t, errOut, "not logged in")
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)

	code, out, errOut := h.run("login", "-u", "admin", "-p", "nope")
	assert.Equal(t, exitFail, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestLoginPasswordFromEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("AUTHCLIENT_PASSWORD", "user123")

	code, out, errOut := h.run("login", "-u", "user")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "roles: USER")
}

func TestHasRoleMissing(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run("login", "-u", "user", "-p", "user123")
	require.Equal(t, exitOK, code)

	code, out, _ := h.run("has-role", "ROLE_ADMIN")
	assert.Equal(t, exitFail, code)
	assert.Equal(t, "no\n", out)
}

func TestStatusSyncClearsRevokedSession(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run("login", "-u", "admin", "-p", "admin123")
	require.Equal(t, exitOK, code)

	h.srv.RevokeAll()

	code, out, _ := h.run("status", "-sync")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "cached session cleared")
	assert.Contains(t, out, "not authenticated")

	code, _, _ = h.run("whoami")
	assert.Equal(t, exitFail, code)
}

func TestDemoUsersSorted(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("demo-users")
	require.Equal(t, exitOK, code)
	admin := bytes.Index([]byte(out), []byte("admin"))
	demo := bytes.Index([]byte(out), []byte("demo"))
	user := bytes.Index([]byte(out), []byte("user "))
	assert.True(t, admin >= 0 && admin < demo && demo < user, out)
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	cases := [][]string{
		{},
		{"bogus"},
		{"login", "-u", "admin"},
		{"has-role"},
		{"status", "-nope"},
	}
	for _, args := range cases {
		code, _, _ := h.run(args...)
		assert.Equal(t, exitUsage, code, "args %v", args)
	}
}

func TestConfigFileOverridesEnvironment(t *testing.T) {
	h := newHarness(t)
	other := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "authclient.yaml")
	body := "base_url: " + h.srv.URL() + "\nsession:\n  backend: file\n  dir: " + other + "\n  key: cli_test\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	code, _, errOut := h.run("-config", cfgPath, "login", "-u", "demo", "-p", "demo123")
	require.Equal(t, exitOK, code, errOut)
	assert.FileExists(t, filepath.Join(other, "cli_test.json"))
	assert.NoFileExists(t, filepath.Join(h.dir, "authclient_user_session.json"))
}

func TestMissingBaseURL(t *testing.T) {
	newHarness(t)
	t.Setenv("AUTHCLIENT_BASE_URL", "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-env-file", "", "whoami"}, &stdout, &stderr)
	assert.Equal(t, exitFail, code)
	assert.Contains(t, stderr.String(), "BaseURL required")
}
