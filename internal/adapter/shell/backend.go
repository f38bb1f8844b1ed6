// Package shell runs external programs for the device bridge and the
// browser opener.
package shell

import "context"

// Backend abstracts command execution.
type Backend interface {
	// Execute runs a command and returns stdout, stderr, and any error.
	Execute(ctx context.Context, command string, args []string, workDir string) (stdout, stderr string, err error)
	// Name returns the backend identifier (e.g. "local").
	Name() string
}
