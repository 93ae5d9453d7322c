// Package dashboard keeps the console's view of the cluster in step with
// what the master reports.
//
// A Scheduler fires refresh ticks while a session is live. Each tick runs
// Dashboard.Refresh, which asks the ViewModel for a fresh per-role View and
// hands it to the renderer. Ticks may overlap; every cycle carries a
// sequence number and a cycle that finishes after a newer one has been
// applied is dropped, so the display never regresses.
package dashboard
