//go:build !windows

package agentcli

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// ptySession runs the agent under a pseudo-terminal. The pty master carries
// stdout and stderr interleaved and reports io.EOF-equivalent EIO once the
// child closes its side.
type ptySession struct {
	cmd *exec.Cmd
	tty *os.File
}

func startSession(cmd *exec.Cmd) (procSession, error) {
	tty, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return &ptySession{cmd: cmd, tty: tty}, nil
}

func (s *ptySession) Output() io.Reader { return s.tty }

func (s *ptySession) Terminate() error {
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Signal(syscall.SIGTERM)
}

func (s *ptySession) Kill() error {
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Kill()
}

func (s *ptySession) Wait() (int, error) {
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func (s *ptySession) Close() error { return s.tty.Close() }
