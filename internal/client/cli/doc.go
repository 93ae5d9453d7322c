// Package cli is the interactive gfsdash console.
//
// NewApp wires the local session database, the master and gateway clients,
// the dashboard and the services behind a line-oriented REPL. A stored
// session is restored on start and the dashboard redraws every refresh
// interval while someone is logged in.
//
// Commands depend on the session role:
//   - everyone: login, signup, help, exit
//   - logged in: status, upload, put, encrypt, logs, logout
//   - admins: adduser, promote
//   - admins and managers: fail
//
// App.Run blocks until stdin is exhausted or the operator types exit.
package cli
