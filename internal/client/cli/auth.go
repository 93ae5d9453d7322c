package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Login prompts for credentials and authenticates against the master. On
// success the dashboard is drawn and kept fresh by the refresh timer.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, username, password); err != nil {
		fmt.Fprintln(a.out, client.Message(err, "Login failed"))
		return err
	}

	sess, _ := a.current()
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", sess.Username, sess.Role)
	return nil
}

// Signup registers a new account. It does not log in.
func (a *App) Signup(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword(a.reader, "Confirm password", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Signup(ctx, username, password, confirm); err != nil {
		fmt.Fprintln(a.out, client.Message(err, "Signup failed"))
		return err
	}

	fmt.Fprintf(a.out, "Account %s created. You can now log in.\n", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Refresh redraws the dashboard now, without touching the timer.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.auth.Refresh(ctx); err != nil {
		fmt.Fprintln(a.out, client.Message(err, "Could not load cluster status"))
		return err
	}
	return nil
}
