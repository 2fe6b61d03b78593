// Package cli provides the interactive xfer command-line client.
//
// It wires configuration, the resume state cache, the storage server API and
// the transfer runner behind a small REPL. Typical flow: unlock the resume
// store with a passphrase, then put and get files.
//
// Key features:
//   - put / get: encrypted chunked upload and download
//   - list: files registered on the server
//   - pending / resume: transfers interrupted earlier
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
