package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/credential"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/testutil"
)

// scriptedPrompter answers prompts with fixed values.
type scriptedPrompter struct {
	confirm  bool
	target   int
	asked    []string
	login    loginInput
	loginErr error
}

func (p *scriptedPrompter) Confirm(title, description string) (bool, error) {
	p.asked = append(p.asked, title)
	return p.confirm, nil
}

func (p *scriptedPrompter) DailyTarget(category string, current int) (int, error) {
	p.asked = append(p.asked, category)
	return p.target, nil
}

func (p *scriptedPrompter) Login(in *loginInput) error {
	if in.UserID == "" {
		in.UserID = p.login.UserID
	}
	if in.SessionID == "" {
		in.SessionID = p.login.SessionID
	}
	return p.loginErr
}

type harness struct {
	t          *testing.T
	fake       *testutil.FakeAPI
	prompt     *scriptedPrompter
	configPath string
	launched   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	prev := credential.Opener
	credential.Opener = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { credential.Opener = prev })

	dir := t.TempDir()
	cfg := model.DefaultAppConfig()
	fake := testutil.NewFakeAPI(t)
	cfg.API.BaseURL = fake.URL()
	cfg.API.TimeoutSec = 5
	cfg.Cache.Path = filepath.Join(dir, "cache.db")
	cfg.Log.File = filepath.Join(dir, "studytrack.log")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(path, cfg))

	return &harness{t: t, fake: fake, prompt: &scriptedPrompter{}, configPath: path}
}

// run executes one invocation of the CLI and returns its output.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(
		WithPrompter(h.prompt),
		withDashboard(func(e *env) error {
			h.launched++
			return nil
		}),
	)
	cmd.SetArgs(append([]string{"--config", h.configPath}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) login() {
	h.t.Helper()
	h.mustRun("login", "--user", "alice", "--session", "sess-1", "--csrf", "tok-1")
}

func (h *harness) config() *model.AppConfig {
	h.t.Helper()
	cfg, err := model.LoadConfig(h.configPath)
	require.NoError(h.t, err)
	return cfg
}

func TestLoginStoresSessionAndUser(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedTask("Two Sum", "dsa", false)

	out := h.mustRun("login", "--user", "alice", "--session", "sess-1", "--csrf", "tok-1")
	assert.Contains(t, out, "Logged in as alice (1 tasks)")

	assert.Equal(t, "alice", h.config().User.ID)
	creds, err := credential.LoadSession("alice")
	require.NoError(t, err)
	assert.Equal(t, credential.Session{SessionID: "sess-1", CSRFToken: "tok-1"}, creds)

	reqs := h.fake.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "sess-1", reqs[0].Cookies["sessionid"])
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	h := newHarness(t)
	h.prompt.login = loginInput{UserID: "bob", SessionID: "sess-2"}

	out := h.mustRun("login")
	assert.Contains(t, out, "Logged in as bob")
	assert.Equal(t, "bob", h.config().User.ID)
}

func TestLoginRejectedSession(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail("GET /api/tasks/", 403)

	_, err := h.run("login", "--user", "alice", "--session", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Empty(t, h.config().User.ID)

	_, err = credential.LoadSession("alice")
	assert.ErrorIs(t, err, credential.ErrNoSession)
}

func TestCommandsNeedLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("tasks", "list")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.mustRun("tasks", "add", "Design", "a", "URL", "shortener", "-c", "system-design")
	assert.Contains(t, out, `Added to [System Design]: "Design a URL shortener"`)
	require.Equal(t, 1, h.fake.TaskCount())

	out = h.mustRun("tasks", "list", "-c", "system_design")
	assert.Contains(t, out, "System Design (0/1)")
	assert.Contains(t, out, "[ ] 1      Design a URL shortener")

	out = h.mustRun("tasks", "done", "1")
	assert.Contains(t, out, `"Design a URL shortener" marked done`)

	out = h.mustRun("tasks", "list", "-c", "system_design", "--pending")
	assert.Contains(t, out, "System Design (1/1)")
	assert.Contains(t, out, "(none)")

	out = h.mustRun("tasks", "edit", "1", "Design", "Twitter")
	assert.Contains(t, out, `renamed to "Design Twitter"`)

	h.prompt.confirm = false
	out = h.mustRun("tasks", "rm", "1")
	assert.Contains(t, out, "Cancelled.")
	assert.Equal(t, []string{`Delete task "Design Twitter"?`}, h.prompt.asked)
	assert.Equal(t, 1, h.fake.TaskCount())

	out = h.mustRun("tasks", "rm", "1", "--yes")
	assert.Contains(t, out, `Deleted "Design Twitter"`)
	assert.Equal(t, 0, h.fake.TaskCount())
}

func TestTaskAddRejectsUnknownCategory(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("tasks", "add", "Anything", "-c", "cooking")
	require.Error(t, err)
	assert.Equal(t, 0, h.fake.TaskCount())
}

func TestListFallsBackToCache(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedTask("Two Sum", "dsa", false)
	h.login()

	h.fake.Fail("GET /api/tasks/", 500)
	h.fake.Fail("GET /api/goals/", 500)

	out := h.mustRun("tasks", "list", "-c", "dsa")
	assert.Contains(t, out, "Could not refresh from the server")
	assert.Contains(t, out, "Two Sum")
}

func TestListWarnsOnExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedTask("Two Sum", "dsa", false)
	h.login()

	h.fake.Fail("GET /api/tasks/", 401)

	out := h.mustRun("tasks", "list")
	assert.Contains(t, out, "Session expired")
	assert.Contains(t, out, "Two Sum")
}

func TestGoals(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedGoal("dsa", 4, 2)
	h.login()

	out := h.mustRun("goals", "list")
	assert.Contains(t, out, "DSA            4/day")
	assert.Contains(t, out, "week MT.....  streak 2\n")
	assert.Contains(t, out, "Development    3/day")
	assert.Contains(t, out, "(estimated)")

	out = h.mustRun("goals", "set", "dsa", "5")
	assert.Contains(t, out, "DSA daily goal set to 5 tasks")

	h.prompt.target = 2
	out = h.mustRun("goals", "set", "job-search")
	assert.Contains(t, out, "Job Search daily goal set to 2 tasks")
	assert.Equal(t, []string{"Job Search"}, h.prompt.asked)

	_, err := h.run("goals", "set", "dsa", "0")
	assert.Error(t, err)
}

func TestSummaries(t *testing.T) {
	h := newHarness(t)
	h.login()

	out := h.mustRun("summaries", "list")
	assert.Contains(t, out, "No summaries yet.")

	out = h.mustRun("summaries", "add", "Graphs", "-m", "BFS vs DFS")
	assert.Contains(t, out, `Saved summary "Graphs"`)

	out = h.mustRun("summaries", "list")
	assert.Contains(t, out, "Graphs")
	assert.Contains(t, out, "BFS vs DFS")

	_, err := h.run("summaries", "rm", "does-not-exist")
	assert.Error(t, err)
}

func TestLogoutForget(t *testing.T) {
	h := newHarness(t)
	h.fake.SeedTask("Two Sum", "dsa", false)
	h.login()

	out := h.mustRun("logout", "--forget")
	assert.Contains(t, out, "Logged out alice")
	assert.Empty(t, h.config().User.ID)

	_, err := credential.LoadSession("alice")
	assert.True(t, errors.Is(err, credential.ErrNoSession))

	out = h.mustRun("logout")
	assert.Contains(t, out, "Not logged in.")
}

func TestRootLaunchesDashboard(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.mustRun()
	h.mustRun("watch")
	assert.Equal(t, 2, h.launched)
}
