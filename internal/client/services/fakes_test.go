package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
)

// ---- auth ----

type fakeAuthAPI struct {
	mu sync.Mutex

	LoginRes  client.LoginResult
	LoginErr  error
	SignupErr error
	LogoutErr error

	// loginGate, when set, blocks Login until closed.
	loginGate chan struct{}

	LoginCalls  int
	SignupCalls int
	LogoutCalls int
	LastToken   string
	LastUser    string
}

func (f *fakeAuthAPI) Login(ctx context.Context, username, password string) (client.LoginResult, error) {
	f.mu.Lock()
	f.LoginCalls++
	f.LastUser = username
	gate := f.loginGate
	res, err := f.LoginRes, f.LoginErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeAuthAPI) Signup(ctx context.Context, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignupCalls++
	f.LastUser = username
	return f.SignupErr
}

func (f *fakeAuthAPI) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	f.LastToken = token
	return f.LogoutErr
}

func (f *fakeAuthAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LoginCalls + f.SignupCalls + f.LogoutCalls
}

type memStore struct {
	mu      sync.Mutex
	sess    session.Session
	has     bool
	LoadErr error
	saves   int
	clears  int
}

func (m *memStore) Save(ctx context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess, m.has = s, true
	m.saves++
	return nil
}

func (m *memStore) Load(ctx context.Context) (session.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return session.Session{}, false, m.LoadErr
	}
	if !m.has || !m.sess.Complete() {
		return session.Session{}, false, nil
	}
	return m.sess, true, nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess, m.has = session.Session{}, false
	m.clears++
	return nil
}

type fakeViews struct {
	refreshes atomic.Int32
	resets    atomic.Int32
	lastRole  atomic.Value
}

func (f *fakeViews) Refresh(ctx context.Context, sess session.Session) error {
	f.refreshes.Add(1)
	f.lastRole.Store(sess.Role)
	return nil
}

func (f *fakeViews) Reset() { f.resets.Add(1) }

// ---- upload ----

type gatewayCall struct {
	req      models.UploadRequest
	inFlight int32
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	// respond decides the reply per filename; nil means success echoing
	// the filename.
	respond func(req models.UploadRequest) (models.UploadResult, error)
}

func (g *fakeGateway) Upload(ctx context.Context, req models.UploadRequest) (models.UploadResult, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.maxInFlight.Load()
		if n <= m || g.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{req: req, inFlight: n})
	g.mu.Unlock()

	if g.respond != nil {
		return g.respond(req)
	}
	return models.UploadResult{Filename: req.Filename}, nil
}

func (g *fakeGateway) requests() []models.UploadRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.UploadRequest, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.req)
	}
	return out
}

type reportEvent struct {
	kind     string
	index    int
	total    int
	filename string
	result   models.UploadResult
	msg      string
}

type recordingReporter struct {
	mu     sync.Mutex
	events []reportEvent
}

func (r *recordingReporter) add(e reportEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingReporter) UploadStarted(i, n int, filename string) {
	r.add(reportEvent{kind: "started", index: i, total: n, filename: filename})
}

func (r *recordingReporter) UploadSucceeded(i, n int, res models.UploadResult) {
	r.add(reportEvent{kind: "succeeded", index: i, total: n, filename: res.Filename, result: res})
}

func (r *recordingReporter) UploadFailed(i, n int, filename, msg string) {
	r.add(reportEvent{kind: "failed", index: i, total: n, filename: filename, msg: msg})
}

func (r *recordingReporter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind+":"+e.filename)
	}
	return out
}

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.n.Add(1)
	return nil
}

// ---- admin ----

type fakeAdminAPI struct {
	mu sync.Mutex

	CreateErr   error
	PromoteErr  error
	SimulateErr error
	LogsRes     []models.LogEntry
	LogsErr     error

	Created  []client.CreateUserRequest
	Promoted []string
	Failed   []string
}

func (f *fakeAdminAPI) CreateUser(ctx context.Context, req client.CreateUserRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created = append(f.Created, req)
	return f.CreateErr
}

func (f *fakeAdminAPI) PromoteUser(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Promoted = append(f.Promoted, username)
	return f.PromoteErr
}

func (f *fakeAdminAPI) SimulateFailure(ctx context.Context, serverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failed = append(f.Failed, serverID)
	return f.SimulateErr
}

func (f *fakeAdminAPI) Logs(ctx context.Context) ([]models.LogEntry, error) {
	return f.LogsRes, f.LogsErr
}

type fakeSessionRefresher struct {
	sess      session.Session
	live      bool
	refreshes int
}

func (f *fakeSessionRefresher) Current() (session.Session, bool) { return f.sess, f.live }

func (f *fakeSessionRefresher) Refresh(ctx context.Context) error {
	f.refreshes++
	return nil
}

type staticViews struct {
	v  view.View
	ok bool
}

func (s staticViews) LastView() (view.View, bool) { return s.v, s.ok }

type recordingNotifier struct {
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) { n.msgs = append(n.msgs, msg) }

type scriptedConfirmer struct {
	answer  bool
	prompts []string
}

func (c *scriptedConfirmer) Confirm(prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}
