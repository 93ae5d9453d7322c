// Package client contains the transport layer of the console.
//
// # Overview
//
// The package provides:
//  1. Service contracts for the master (Master) and the client gateway
//     (Gateway), plus JSON/HTTP implementations (HTTPMaster, HTTPGateway)
//     that inject the session bearer token and enforce a per-request
//     timeout.
//  2. Error classification shared by every caller: validation errors
//     (ValidationError, ErrValidation), rejections carrying the server
//     reason (RejectedError, ErrRejected) and transport failures
//     (ErrUnavailable). Message turns any of them into operator text.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// All operations accept context.Context and honor cancellation.
package client
