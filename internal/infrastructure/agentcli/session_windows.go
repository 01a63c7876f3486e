//go:build windows

package agentcli

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// pipeSession runs the agent with stdout and stderr redirected into one pipe.
// Windows has no SIGTERM, so Terminate kills outright.
type pipeSession struct {
	cmd *exec.Cmd
	out *os.File
}

func startSession(cmd *exec.Cmd) (procSession, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, err
	}
	// The parent's write end must close so the reader sees EOF on exit.
	pw.Close()
	return &pipeSession{cmd: cmd, out: pr}, nil
}

func (s *pipeSession) Output() io.Reader { return s.out }

func (s *pipeSession) Terminate() error { return s.Kill() }

func (s *pipeSession) Kill() error {
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Kill()
}

func (s *pipeSession) Wait() (int, error) {
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func (s *pipeSession) Close() error { return s.out.Close() }
