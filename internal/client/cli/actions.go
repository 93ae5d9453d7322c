package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/services"
)

// Upload sends local files through the gateway, one after another.
func (a *App) Upload(ctx context.Context, paths []string) error {
	jobs := make([]services.UploadJob, 0, len(paths))
	for _, p := range paths {
		jobs = append(jobs, services.FileJob(p))
	}
	return a.runUploads(ctx, jobs)
}

// Put uploads text typed on the console, exactly as typed. Without inline
// text the content is read as a multi-line block.
func (a *App) Put(ctx context.Context, name, text string) error {
	if text == "" {
		var err error
		text, err = GetMultiline(a.reader, "Enter file content", a.out)
		if err != nil {
			return err
		}
	}

	job, err := services.TextJob(name, text)
	if err != nil {
		fmt.Fprintln(a.out, client.Message(err, "Upload failed"))
		return err
	}
	return a.runUploads(ctx, []services.UploadJob{job})
}

func (a *App) runUploads(ctx context.Context, jobs []services.UploadJob) error {
	outcomes := a.uploads.Run(ctx, jobs, a.encrypt)

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(a.out, "%d of %d uploaded\n", len(outcomes)-failed, len(outcomes))
	if failed > 0 {
		return fmt.Errorf("%d uploads failed", failed)
	}
	return nil
}

// Encrypt shows or sets the encryption intent sent with uploads. The choice
// is remembered across runs.
func (a *App) Encrypt(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(a.out, "Encryption is %s\n", onOff(a.encrypt))
		return nil
	}

	var on bool
	switch strings.ToLower(args[0]) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		fmt.Fprintln(a.out, "Usage: encrypt [on|off]")
		return fmt.Errorf("bad encrypt argument %q", args[0])
	}

	a.encrypt = on
	if err := a.prefs.Set(ctx, prefEncrypt, onOff(on)); err != nil {
		a.log.Warn(ctx, "saving encrypt preference", "error", err)
	}
	fmt.Fprintf(a.out, "Encryption is %s\n", onOff(on))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// AddUser prompts for the new account's details. The admin service reports
// the outcome itself.
func (a *App) AddUser(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "New username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "New user's password", a.out)
	if err != nil {
		return err
	}
	rawRole, err := getSimpleText(a.reader, "Role (admin, manager, user)", a.out)
	if err != nil {
		return err
	}

	role, ok := models.ParseRole(rawRole)
	if !ok {
		role = models.Role(rawRole)
	}
	sess, _ := a.current()
	return a.admin.CreateUser(ctx, username, password, role, sess.Username)
}

func (a *App) Promote(ctx context.Context, username string) error {
	return a.admin.PromoteUser(ctx, username)
}

func (a *App) Fail(ctx context.Context, serverID string) error {
	err := a.admin.SimulateFailure(ctx, serverID)
	if errors.Is(err, services.ErrCanceled) {
		fmt.Fprintln(a.out, "Canceled")
	}
	return err
}

// Logs prints the master's recent server events.
func (a *App) Logs(ctx context.Context) error {
	logs, err := a.admin.Logs(ctx)
	if err != nil {
		fmt.Fprintln(a.out, client.Message(err, "Failed to fetch logs"))
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(a.out, "%s  %-12s %s\n", l.Timestamp, l.Server, l.Event)
	}
	return nil
}
