// Package dashboard renders the sensor dashboard page and serves its assets.
//
// Templates and static files are embedded into the binary with go:embed.
// For front-end work a directory with the same layout (templates/, static/)
// can be supplied instead, so edits show up without a recompile.
package dashboard
