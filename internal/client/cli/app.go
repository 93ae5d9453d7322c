package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/config"
	"github.com/dmitrijs2005/gfsdash/internal/client/dashboard"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/render"
	"github.com/dmitrijs2005/gfsdash/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gfsdash/internal/client/services"
	"github.com/dmitrijs2005/gfsdash/internal/client/session"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
)

// PrefsNamespace holds operator preferences in the metadata table.
const (
	PrefsNamespace = "prefs"
	prefEncrypt    = "encrypt"
)

type authService interface {
	Restore(ctx context.Context) bool
	Login(ctx context.Context, username, password string) error
	Signup(ctx context.Context, username, password, confirm string) error
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	Current() (session.Session, bool)
	Close()
}

type uploader interface {
	Run(ctx context.Context, jobs []services.UploadJob, encrypt bool) []services.UploadOutcome
}

type adminActions interface {
	CreateUser(ctx context.Context, username, password string, role models.Role, createdBy string) error
	PromoteUser(ctx context.Context, username string) error
	SimulateFailure(ctx context.Context, serverID string) error
	Logs(ctx context.Context) ([]models.LogEntry, error)
}

type App struct {
	config  *config.Config
	log     logging.Logger
	auth    authService
	uploads uploader
	admin   adminActions
	prefs   metadata.Repository
	live    *render.LiveServer
	db      *sql.DB

	out     io.Writer
	reader  *bufio.Reader
	encrypt bool
}

// NewApp opens the session database and wires every console component.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	master := client.NewHTTPMaster(c.MasterURL, c.RequestTimeout, log)
	gateway := client.NewHTTPGateway(c.GatewayURL, c.RequestTimeout, log)

	text := render.NewText(os.Stdout)
	renderers := view.Renderers{text}
	var hub *render.Hub
	if c.LiveViewAddr != "" {
		hub = render.NewHub(log)
		renderers = append(renderers, hub)
	}

	dash := dashboard.New(dashboard.NewViewModel(master), renderers, log)
	auth := services.NewAuthService(master, session.NewSQLiteStore(db), dash, c.RefreshInterval, log)
	master.UseTokenSource(auth.Token)
	gateway.UseTokenSource(auth.Token)

	a := &App{
		config: c,
		log:    log,
		auth:   auth,
		prefs:  metadata.NewSQLiteRepository(db, PrefsNamespace),
		db:     db,
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
	}
	a.uploads = services.NewUploadService(gateway, auth, text, c.UploadPacing, c.PostUploadRefreshDelay, log)
	a.admin = services.NewAdminService(master, auth, dash, text, a, log)
	if hub != nil {
		a.live = render.NewLiveServer(c.LiveViewAddr, hub, dash, log)
	}

	return a, nil
}

// Run restores a stored session, then serves the REPL until exit.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	if a.live != nil {
		go func() {
			if err := a.live.Run(ctx); err != nil {
				a.log.Error(ctx, "live view server failed", "error", err)
			}
		}()
	}

	a.loadPrefs(ctx)
	fmt.Fprintln(a.out, "Welcome to the GFS console (type 'help' for commands)")
	a.restore(ctx)

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) close() {
	a.auth.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(context.Background(), "closing session database", "error", err)
		}
	}
}

// restore resumes a stored session. The view is fetched right away instead
// of waiting for the first tick.
func (a *App) restore(ctx context.Context) {
	if !a.auth.Restore(ctx) {
		return
	}
	sess, _ := a.auth.Current()
	fmt.Fprintf(a.out, "Welcome back, %s (%s)\n", sess.Username, sess.Role)
	_ = a.Refresh(ctx)
}

func (a *App) loadPrefs(ctx context.Context) {
	v, ok, err := a.prefs.Get(ctx, prefEncrypt)
	if err != nil {
		a.log.Warn(ctx, "loading preferences", "error", err)
		return
	}
	a.encrypt = ok && v == "on"
}

func (a *App) current() (session.Session, bool) {
	return a.auth.Current()
}

func (a *App) isLoggedIn() bool {
	_, ok := a.current()
	return ok
}

func (a *App) role() models.Role {
	sess, _ := a.current()
	return sess.Role
}

func (a *App) status() string {
	sess, ok := a.current()
	if !ok {
		return ""
	}
	s := sess.Username + " " + string(sess.Role)
	if a.encrypt {
		s += " 🔒"
	}
	return "(" + s + ")"
}

// Confirm asks a yes/no question on the console. Anything but y/yes is no.
func (a *App) Confirm(prompt string) bool {
	fmt.Fprint(a.out, prompt+" [y/N] ")
	answer, err := readLine(a.reader)
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
