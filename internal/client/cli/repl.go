package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches into.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	role() models.Role
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Upload(ctx context.Context, paths []string) error
	Put(ctx context.Context, name, text string) error
	Encrypt(ctx context.Context, args []string) error
	AddUser(ctx context.Context) error
	Promote(ctx context.Context, username string) error
	Fail(ctx context.Context, serverID string) error
	Logs(ctx context.Context) error
}

func helpText(loggedIn bool, role models.Role) string {
	if !loggedIn {
		return "Available commands: login, signup, exit"
	}
	cmds := []string{"status", "upload <path>...", "put <name> [text]", "encrypt [on|off]", "logs"}
	if role == models.RoleAdmin {
		cmds = append(cmds, "adduser", "promote <user>")
	}
	if role.CanSimulateFailure() {
		cmds = append(cmds, "fail <server>")
	}
	cmds = append(cmds, "logout", "exit")
	return "Available commands: " + strings.Join(cmds, ", ")
}

// runREPL reads one command per line from reader, dispatches it to a and
// loops until EOF, "exit" or "quit". statusFn decorates the prompt.
//
// Commands that need a session are refused with a hint when nobody is
// logged in. Handler errors are not acted upon here; handlers print their
// own operator messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gfs %s> ", statusFn()))
		line, err := readRawLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText(a.isLoggedIn(), a.role()))
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "signup":
			_ = a.Signup(ctx)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !a.isLoggedIn() {
			if isSessionCommand(cmd) {
				printlnFn("Please log in first")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "status", "refresh":
			_ = a.Refresh(ctx)

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <path> [path...]")
				continue
			}
			_ = a.Upload(ctx, args)

		case "put":
			if len(args) == 0 {
				printlnFn("Usage: put <name> [text]")
				continue
			}
			_ = a.Put(ctx, args[0], afterFields(line, 2))

		case "encrypt":
			_ = a.Encrypt(ctx, args)

		case "adduser":
			_ = a.AddUser(ctx)

		case "promote":
			if len(args) != 1 {
				printlnFn("Usage: promote <username>")
				continue
			}
			_ = a.Promote(ctx, args[0])

		case "fail":
			if len(args) != 1 {
				printlnFn("Usage: fail <server-id>")
				continue
			}
			_ = a.Fail(ctx, args[0])

		case "logs":
			_ = a.Logs(ctx)

		case "logout":
			_ = a.Logout(ctx)

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func isSessionCommand(cmd string) bool {
	switch cmd {
	case "status", "refresh", "upload", "put", "encrypt", "adduser", "promote", "fail", "logs", "logout":
		return true
	}
	return false
}
