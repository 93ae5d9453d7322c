package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"golang.org/x/sync/errgroup"
)

// ClusterSource is the part of the master the dashboard reads from.
type ClusterSource interface {
	Status(ctx context.Context) (*models.ClusterStatus, error)
	Users(ctx context.Context) ([]models.UserRecord, error)
}

// ViewModel fetches and derives one View per call.
type ViewModel struct {
	src ClusterSource
	now func() time.Time
}

func NewViewModel(src ClusterSource) *ViewModel {
	return &ViewModel{src: src, now: time.Now}
}

// Load fetches /status and, for admins, /users concurrently. It returns
// only once every fetch has resolved; any failure fails the whole load.
func (m *ViewModel) Load(ctx context.Context, sess session.Session) (view.View, error) {
	var (
		st    *models.ClusterStatus
		users []models.UserRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = m.src.Status(gctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		return nil
	})
	if sess.Role == models.RoleAdmin {
		g.Go(func() error {
			var err error
			users, err = m.src.Users(gctx)
			if err != nil {
				return fmt.Errorf("users: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return view.View{}, err
	}

	v := Build(sess, st, users)
	v.FetchedAt = m.now()
	return v, nil
}

// Build derives the View for sess from one snapshot. users is ignored for
// anyone but admins. Lists come out sorted by key.
func Build(sess session.Session, st *models.ClusterStatus, users []models.UserRecord) view.View {
	v := view.View{
		Username: sess.Username,
		Role:     sess.Role,
		Stats: view.Stats{
			ActiveServers:  st.ActiveServers(),
			TotalServers:   len(st.Servers),
			TotalFiles:     len(st.Files),
			FaultTolerance: st.FaultTolerance,
		},
		Servers: make([]view.ServerView, 0, len(st.Servers)),
		Files:   make([]view.FileView, 0, len(st.Files)),
	}

	for id, srv := range st.Servers {
		v.Servers = append(v.Servers, view.ServerView{
			ID:                 id,
			Host:               srv.Host,
			Port:               srv.Port,
			Status:             srv.Status,
			LastHeartbeat:      srv.HeartbeatTime(),
			CanSimulateFailure: sess.Role.CanSimulateFailure() && srv.Status != models.ServerFailed,
		})
	}
	sort.Slice(v.Servers, func(i, j int) bool { return v.Servers[i].ID < v.Servers[j].ID })

	for name, f := range st.Files {
		fv := view.FileView{
			Name:       name,
			UploadedAt: f.UploadTime.Time,
			Chunks:     make([]view.ChunkView, 0, len(f.Chunks)),
		}
		for _, id := range f.Chunks {
			fv.Chunks = append(fv.Chunks, view.ChunkView{ID: id, Servers: st.Chunks[id].Servers})
		}
		v.Files = append(v.Files, fv)
	}
	sort.Slice(v.Files, func(i, j int) bool { return v.Files[i].Name < v.Files[j].Name })

	if sess.Role == models.RoleAdmin {
		v.Stats.TotalUsers = len(users)
		v.Users = make([]view.UserView, 0, len(users))
		for _, u := range users {
			v.Users = append(v.Users, view.UserView{
				Username:   u.Username,
				Role:       u.Role,
				CreatedBy:  u.CreatedBy,
				CanPromote: u.Role == models.RoleUser,
			})
		}
		sort.Slice(v.Users, func(i, j int) bool { return v.Users[i].Username < v.Users[j].Username })
	}

	return v
}
