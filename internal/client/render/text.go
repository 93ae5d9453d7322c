package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
)

// EncryptedMarker follows a successful upload the gateway reports as
// encrypted.
const EncryptedMarker = "🔒 encrypted"

// Text writes views, notices and upload progress to w. It is safe for
// concurrent use; each call writes one whole block.
type Text struct {
	mu  sync.Mutex
	w   io.Writer
	loc *time.Location
}

func NewText(w io.Writer) *Text {
	return &Text{w: w, loc: time.Local}
}

func (t *Text) Render(v view.View) {
	var b strings.Builder
	t.writeView(&b, v)

	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.w, b.String())
}

func (t *Text) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, "-- dashboard cleared --")
}

func (t *Text) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, msg)
}

func (t *Text) UploadStarted(i, n int, filename string) {
	t.Notify(fmt.Sprintf("[%d/%d] Uploading %s...", i, n, filename))
}

func (t *Text) UploadSucceeded(i, n int, res models.UploadResult) {
	line := fmt.Sprintf("[%d/%d] ✓ Upload successful: %s", i, n, res.Filename)
	// size is optional in the gateway reply
	if res.Size > 0 {
		line += fmt.Sprintf(" (%d bytes)", res.Size)
	}
	if res.Encrypted {
		line += " " + EncryptedMarker
	}
	t.Notify(line)
}

func (t *Text) UploadFailed(i, n int, filename, msg string) {
	t.Notify(fmt.Sprintf("[%d/%d] ❌ %s: %s", i, n, filename, msg))
}

func (t *Text) clock(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.In(t.loc).Format(time.TimeOnly)
}

func (t *Text) writeView(b *strings.Builder, v view.View) {
	fmt.Fprintf(b, "== %s dashboard (%s) ==\n", v.Role, v.Username)

	s := v.Stats
	fmt.Fprintf(b, "Active servers: %d/%d  Files: %d  Fault tolerance: %s%%",
		s.ActiveServers, s.TotalServers, s.TotalFiles, strconv.FormatFloat(s.FaultTolerance, 'f', -1, 64))
	if v.Role == models.RoleAdmin {
		fmt.Fprintf(b, "  Users: %d", s.TotalUsers)
	}
	b.WriteString("\n\n")

	if len(v.Servers) == 0 {
		b.WriteString("No servers available\n")
	} else {
		tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERVER\tADDRESS\tSTATUS\tLAST HEARTBEAT\tACTION")
		for _, srv := range v.Servers {
			action := "-"
			if srv.CanSimulateFailure {
				action = "fail " + srv.ID
			}
			fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\t%s\n", srv.ID, srv.Host, srv.Port, srv.Status, t.clock(srv.LastHeartbeat), action)
		}
		tw.Flush()
	}
	b.WriteString("\n")

	if len(v.Files) == 0 {
		b.WriteString("No files uploaded yet\n")
	} else {
		for _, f := range v.Files {
			ids := make([]string, 0, len(f.Chunks))
			for _, c := range f.Chunks {
				ids = append(ids, c.ID)
			}
			uploaded := "-"
			if !f.UploadedAt.IsZero() {
				uploaded = f.UploadedAt.In(t.loc).Format(time.DateTime)
			}
			fmt.Fprintf(b, "📄 %s  Uploaded: %s  Chunks: %d  [%s]\n", f.Name, uploaded, len(f.Chunks), strings.Join(ids, " "))
		}
	}

	if v.Role != models.RoleAdmin {
		return
	}
	b.WriteString("\n")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tCREATED BY\tACTION")
	for _, u := range v.Users {
		action := "-"
		if u.CanPromote {
			action = "promote " + u.Username
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.Role, u.CreatedBy, action)
	}
	tw.Flush()
}
