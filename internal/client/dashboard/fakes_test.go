package dashboard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
)

// fakeSource serves canned snapshots. When gate is set, every call blocks
// until it is closed, after announcing itself on started.
type fakeSource struct {
	status    *models.ClusterStatus
	users     []models.UserRecord
	statusErr error
	usersErr  error

	gate    chan struct{}
	started chan string

	statusCalls atomic.Int32
	usersCalls  atomic.Int32
}

func (f *fakeSource) wait(ctx context.Context, name string) error {
	if f.started != nil {
		f.started <- name
	}
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) Status(ctx context.Context) (*models.ClusterStatus, error) {
	f.statusCalls.Add(1)
	if err := f.wait(ctx, "status"); err != nil {
		return nil, err
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeSource) Users(ctx context.Context) ([]models.UserRecord, error) {
	f.usersCalls.Add(1)
	if err := f.wait(ctx, "users"); err != nil {
		return nil, err
	}
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

type recordingRenderer struct {
	mu      sync.Mutex
	views   []view.View
	cleared int
}

func (r *recordingRenderer) Render(v view.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recordingRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recordingRenderer) lastView() view.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

// loaderFunc adapts a function to Loader.
type loaderFunc func(ctx context.Context, sess session.Session) (view.View, error)

func (f loaderFunc) Load(ctx context.Context, sess session.Session) (view.View, error) {
	return f(ctx, sess)
}

func sampleStatus() *models.ClusterStatus {
	return &models.ClusterStatus{
		Servers: map[string]models.ServerInfo{
			"cs2": {Host: "10.0.0.2", Port: 9002, Status: models.ServerFailed},
			"cs1": {Host: "10.0.0.1", Port: 9001, Status: models.ServerActive, LastHeartbeat: 1700000000},
			"cs3": {Host: "10.0.0.3", Port: 9003, Status: models.ServerActive, LastHeartbeat: 1700000001},
		},
		Files: map[string]models.FileInfo{
			"b.txt": {Chunks: []string{"b.txt_chunk_0"}},
			"a.txt": {Chunks: []string{"a.txt_chunk_0", "a.txt_chunk_1"}},
		},
		Chunks: map[string]models.ChunkInfo{
			"a.txt_chunk_0": {Servers: []string{"cs1", "cs3"}},
		},
		FaultTolerance: 66.67,
	}
}

var (
	adminSession   = session.Session{Username: "admin", Role: models.RoleAdmin, Token: "t1"}
	managerSession = session.Session{Username: "mgr", Role: models.RoleManager, Token: "t2"}
	userSession    = session.Session{Username: "bob", Role: models.RoleUser, Token: "t3"}
)
