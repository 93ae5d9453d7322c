// Package render holds the presentation side of the console: a plain-text
// renderer for the terminal and a websocket hub that mirrors every applied
// view to browsers, served next to /metrics by LiveServer.
package render
