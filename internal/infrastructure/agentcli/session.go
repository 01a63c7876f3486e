package agentcli

import (
	"io"
	"os/exec"
)

// procSession is a started agent process with its interleaved output stream.
// Implementations differ per platform: unix allocates a pseudo-terminal so the
// agent binary flushes line-buffered output, other platforms fall back to
// plain pipes.
type procSession interface {
	// Output interleaves stdout and stderr.
	Output() io.Reader
	// Terminate asks the process to exit. Safe to call after exit.
	Terminate() error
	// Kill forcibly stops the process.
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	// Close releases the I/O handles.
	Close() error
}

// startFunc starts cmd and wires up its output channel. Injected in tests.
type startFunc func(cmd *exec.Cmd) (procSession, error)
