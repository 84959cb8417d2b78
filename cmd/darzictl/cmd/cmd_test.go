package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darziflow/console/cmd/darzictl/internal/profile"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/testutil/fakeapi"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

type cli struct {
	t         *testing.T
	api       *fakeapi.Server
	profile   string
	tokenFile string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	dir := t.TempDir()
	return &cli{
		t:         t,
		api:       api,
		profile:   filepath.Join(dir, "config.yaml"),
		tokenFile: filepath.Join(dir, "token"),
	}
}

// run executes darzictl against the fake backend and returns stdout+stderr.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--server", c.api.BaseURL(),
		"--profile", c.profile,
		"--token-file", c.tokenFile,
		"--non-interactive",
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) token() string {
	c.t.Helper()
	b, err := os.ReadFile(c.tokenFile)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(c.t, err)
	return string(b)
}

func (c *cli) login(email, password string) {
	c.t.Helper()
	_, err := c.run("login", "--email", email, "--password", password)
	require.NoError(c.t, err)
}

func TestLogin_StoresTokenAndProfile(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)

	out, err := c.run("login", "--email", "mod@darzi.pk", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as")
	assert.Contains(t, out, "MODERATOR")
	assert.NotEmpty(t, c.token())

	prof, err := profile.Load(c.profile)
	require.NoError(t, err)
	assert.Equal(t, "mod@darzi.pk", prof.Email)
	assert.Equal(t, c.api.BaseURL(), prof.Server)
}

func TestLogin_RejectedKeepsBackendMessage(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)

	out, err := c.run("login", "--email", "mod@darzi.pk", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.NotContains(t, out, "Session expired")
	assert.Empty(t, c.token())
}

func TestLogin_WarnsAboutPendingPasswordChange(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("admin@darzi.pk", "secret123", domain.RoleAdmin, true)

	out, err := c.run("login", "--email", "admin@darzi.pk", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "darzictl password")
}

func TestLogin_WorkerHasNoConsoleAccess(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("worker@darzi.pk", "secret123", domain.RoleWorker, false)

	out, err := c.run("login", "--email", "worker@darzi.pk", "--password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "no access to the console")
}

func TestLogin_NonInteractiveRequiresPassword(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("login", "--email", "mod@darzi.pk")
	assert.EqualError(t, err, "--password is required")
}

func TestWhoami(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("admin@darzi.pk", "secret123", domain.RoleAdmin, false)

	_, err := c.run("whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	c.login("admin@darzi.pk", "secret123")
	out, err := c.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@darzi.pk")
	assert.Contains(t, out, "ADMIN")
}

func TestOrdersList_Filters(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)
	c.api.SeedOrder("Zara Textiles", domain.OrderPending)
	c.api.SeedOrder("Khaadi", domain.OrderQC)
	c.login("mod@darzi.pk", "secret123")

	out, err := c.run("orders", "list", "--status", "qc")
	require.NoError(t, err)
	assert.Contains(t, out, "Khaadi")
	assert.NotContains(t, out, "Zara Textiles")

	out, err = c.run("orders", "list", "--search", "zara")
	require.NoError(t, err)
	assert.Contains(t, out, "Zara Textiles")
	assert.NotContains(t, out, "Khaadi")

	out, err = c.run("orders", "list", "--status", "CANCELLED")
	require.NoError(t, err)
	assert.Contains(t, out, "No orders found")
}

func TestDepartmentsList(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)
	c.api.SeedDepartment("Cutting")
	c.api.SeedDepartment("Stitching")
	c.login("mod@darzi.pk", "secret123")

	out, err := c.run("departments", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cutting")
	assert.Contains(t, out, "Stitching")
}

func TestRevokedTokenIsDropped(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)
	c.login("mod@darzi.pk", "secret123")
	require.NotEmpty(t, c.token())

	c.api.RevokeAll()
	out, err := c.run("departments", "list")
	require.Error(t, err)
	assert.Contains(t, out, "Session expired")
	assert.Empty(t, c.token())
}

func TestRotatedTokenIsPersisted(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)
	c.login("mod@darzi.pk", "secret123")
	first := c.token()

	c.api.RotateNext()
	_, err := c.run("departments", "list")
	require.NoError(t, err)
	assert.NotEqual(t, first, c.token())

	_, err = c.run("whoami")
	assert.NoError(t, err)
}

func TestPassword(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("admin@darzi.pk", "secret123", domain.RoleAdmin, true)
	c.login("admin@darzi.pk", "secret123")

	_, err := c.run("password", "--current", "secret123", "--new", "short")
	assert.EqualError(t, err, "new password must be at least 8 characters")

	_, err = c.run("password", "--current", "nope", "--new", "longenough1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Current password is incorrect")

	out, err := c.run("password", "--current", "secret123", "--new", "longenough1")
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated")

	_, err = c.run("logout")
	require.NoError(t, err)
	c.login("admin@darzi.pk", "longenough1")
}

func TestLogout(t *testing.T) {
	c := newCLI(t)
	c.api.AddUser("mod@darzi.pk", "secret123", domain.RoleModerator, false)
	c.login("mod@darzi.pk", "secret123")

	out, err := c.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out successfully")
	assert.Empty(t, c.token())

	_, err = c.run("logout")
	assert.NoError(t, err, "logging out twice is fine")
}

func TestLogout_BackendDownStillForgetsToken(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile(c.tokenFile, []byte("T1"), 0o600))

	down := fakeapi.New()
	url := down.BaseURL()
	down.Close()

	out, err := c.run("--verbose", "--server", url, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out successfully")
	assert.Empty(t, c.token())
}

func TestServerFromProfile(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, (&profile.Profile{Server: "http://profile.invalid/api"}).Save(c.profile))

	cfg, err := resolveConfig(&rootOptions{profilePath: c.profile, tokenFile: c.tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "http://profile.invalid/api", cfg.ServerURL)

	cfg, err = resolveConfig(&rootOptions{server: "http://flag.invalid/api/", profilePath: c.profile, tokenFile: c.tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "http://flag.invalid/api", cfg.ServerURL)
}
