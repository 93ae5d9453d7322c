package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/services"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

type fakeAuth struct {
	sess     session.Session
	live     bool
	restore  bool
	loginErr error
	signErr  error
	refErr   error

	logins    []string
	signups   []string
	refreshes int
	logouts   int
	closed    bool
}

func (f *fakeAuth) Restore(ctx context.Context) bool {
	if f.restore {
		f.live = true
	}
	return f.restore
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) error {
	f.logins = append(f.logins, username+":"+password)
	if f.loginErr != nil {
		return f.loginErr
	}
	f.sess = session.Session{Username: username, Role: models.RoleAdmin, Token: "t"}
	f.live = true
	return nil
}

func (f *fakeAuth) Signup(ctx context.Context, username, password, confirm string) error {
	f.signups = append(f.signups, username+":"+password+":"+confirm)
	return f.signErr
}

func (f *fakeAuth) Logout(ctx context.Context) {
	f.logouts++
	f.live = false
}

func (f *fakeAuth) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.refErr
}

func (f *fakeAuth) Current() (session.Session, bool) { return f.sess, f.live }
func (f *fakeAuth) Close()                           { f.closed = true }

type fakeUploader struct {
	batches  [][]services.UploadJob
	encrypts []bool
	fail     map[string]error
}

func (f *fakeUploader) Run(ctx context.Context, jobs []services.UploadJob, encrypt bool) []services.UploadOutcome {
	f.batches = append(f.batches, jobs)
	f.encrypts = append(f.encrypts, encrypt)
	out := make([]services.UploadOutcome, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, services.UploadOutcome{Filename: j.Filename, Err: f.fail[j.Filename]})
	}
	return out
}

type fakeAdmin struct {
	created  []string
	promoted []string
	failed   []string
	failErr  error
	logs     []models.LogEntry
	logsErr  error
}

func (f *fakeAdmin) CreateUser(ctx context.Context, username, password string, role models.Role, createdBy string) error {
	f.created = append(f.created, strings.Join([]string{username, password, string(role), createdBy}, ":"))
	return nil
}

func (f *fakeAdmin) PromoteUser(ctx context.Context, username string) error {
	f.promoted = append(f.promoted, username)
	return nil
}

func (f *fakeAdmin) SimulateFailure(ctx context.Context, serverID string) error {
	f.failed = append(f.failed, serverID)
	return f.failErr
}

func (f *fakeAdmin) Logs(ctx context.Context) ([]models.LogEntry, error) {
	return f.logs, f.logsErr
}

type memPrefs struct {
	kv map[string]string
}

func (m *memPrefs) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *memPrefs) Set(ctx context.Context, key, value string) error {
	if m.kv == nil {
		m.kv = map[string]string{}
	}
	m.kv[key] = value
	return nil
}

func (m *memPrefs) Delete(ctx context.Context, key string) error {
	delete(m.kv, key)
	return nil
}

func (m *memPrefs) List(ctx context.Context) (map[string]string, error) { return m.kv, nil }

func (m *memPrefs) Clear(ctx context.Context) error {
	m.kv = nil
	return nil
}

type testApp struct {
	*App
	auth    *fakeAuth
	uploads *fakeUploader
	admin   *fakeAdmin
	prefs   *memPrefs
	out     *bytes.Buffer
}

// newTestApp builds an App over fakes whose console input is input.
func newTestApp(input string) *testApp {
	ta := &testApp{
		auth:    &fakeAuth{},
		uploads: &fakeUploader{},
		admin:   &fakeAdmin{},
		prefs:   &memPrefs{},
		out:     &bytes.Buffer{},
	}
	ta.App = &App{
		log:     logging.Discard(),
		auth:    ta.auth,
		uploads: ta.uploads,
		admin:   ta.admin,
		prefs:   ta.prefs,
		out:     ta.out,
		reader:  bufio.NewReader(strings.NewReader(input)),
	}
	return ta
}

func (ta *testApp) loginAs(role models.Role) {
	ta.auth.sess = session.Session{Username: "op", Role: role, Token: "t"}
	ta.auth.live = true
}
