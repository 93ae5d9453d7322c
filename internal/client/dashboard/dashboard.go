package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

const resultStale = "stale"

// Loader produces a View for a session.
type Loader interface {
	Load(ctx context.Context, sess session.Session) (view.View, error)
}

// Dashboard runs refresh cycles and applies their results in order.
type Dashboard struct {
	loader   Loader
	renderer view.Renderer
	log      logging.Logger

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	last    view.View
	hasLast bool
}

func New(loader Loader, renderer view.Renderer, log logging.Logger) *Dashboard {
	return &Dashboard{
		loader:   loader,
		renderer: renderer,
		log:      log.With("component", "dashboard"),
	}
}

// Refresh runs one cycle for sess. Failures are logged and returned but the
// previously applied view stays in place. A cycle overtaken by a newer
// applied one, or whose ctx ended, is dropped silently.
func (d *Dashboard) Refresh(ctx context.Context, sess session.Session) error {
	seq := d.issued.Add(1)
	start := time.Now()

	v, err := d.loader.Load(ctx, sess)
	if err != nil {
		metrics.RefreshCycle(metrics.ResultError, time.Since(start))
		d.log.Warn(ctx, "refresh cycle failed", "seq", seq, "role", sess.Role, "error", err)
		return err
	}
	v.Sequence = seq

	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil || seq <= d.applied {
		metrics.RefreshCycle(resultStale, time.Since(start))
		d.log.Debug(ctx, "dropping stale view", "seq", seq, "applied", d.applied)
		return nil
	}

	d.applied = seq
	d.last = v
	d.hasLast = true
	d.renderer.Render(v)

	metrics.RefreshCycle(metrics.ResultOK, time.Since(start))
	d.log.Debug(ctx, "view applied", "seq", seq, "role", sess.Role)
	return nil
}

// LastView returns the most recently applied view.
func (d *Dashboard) LastView() (view.View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.hasLast
}

// Reset forgets the applied view and clears the renderer. Cycles started
// before the reset can no longer be applied.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.applied = d.issued.Load()
	d.last = view.View{}
	d.hasLast = false
	d.renderer.Clear()
}
