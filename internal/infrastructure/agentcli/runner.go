package agentcli

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const (
	readBufferSize = 4096
	eventBuffer    = 64
	terminateGrace = 5 * time.Second
)

// CLIRunner drives the agent binary as a child process and decodes its
// line-oriented JSON output into events. Each Run resumes the most recent
// session in the working directory via --continue, so conversation state
// lives with the binary rather than in this service.
type CLIRunner struct {
	binary  string
	workDir string
	timeout time.Duration
	log     zerolog.Logger
	start   startFunc
}

func NewCLIRunner(cfg *config.Config, log zerolog.Logger) *CLIRunner {
	return &CLIRunner{
		binary:  cfg.AgentBinary,
		workDir: cfg.AgentWorkingDir,
		timeout: cfg.AgentTimeout,
		log:     log.With().Str("component", "agent_runner").Logger(),
		start:   startSession,
	}
}

func (r *CLIRunner) Run(ctx context.Context, prompt string) (agent.Stream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeValidation, "prompt must not be empty", nil)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)

	cmd := exec.Command(r.binary, "--continue", "--output-format", "stream-json", "--verbose", "--print", prompt)
	cmd.Dir = r.workDir

	sess, err := r.start(cmd)
	if err != nil {
		cancel()
		return nil, apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeProcessFailure, "failed to start agent process", err)
	}
	r.log.Debug().Str("binary", r.binary).Str("work_dir", r.workDir).Msg("agent process started")

	stream := &cliStream{events: make(chan agent.Event, eventBuffer)}
	go r.pump(runCtx, cancel, sess, stream)
	return stream, nil
}

// pump owns the session for its whole lifetime: it reads output until EOF,
// reaps the process, and records the terminal error on the stream before
// closing the event channel.
func (r *CLIRunner) pump(ctx context.Context, cancel context.CancelFunc, sess procSession, stream *cliStream) {
	defer cancel()
	defer close(stream.events)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			_ = sess.Terminate()
			select {
			case <-done:
			case <-time.After(terminateGrace):
				_ = sess.Kill()
			}
		}
	}()

	var pending []byte
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := sess.Output().Read(buf)
		if n > 0 {
			var events []agent.Event
			pending = append(pending, buf[:n]...)
			events, pending = DecodeBuffer(pending)
			for _, event := range events {
				stream.emit(ctx, event)
			}
		}
		if readErr != nil {
			// A pty master errors rather than returning io.EOF once the
			// child exits; both mean the output is drained.
			break
		}
	}
	for _, event := range DecodeRemainder(pending) {
		stream.emit(ctx, event)
	}

	code, waitErr := sess.Wait()
	_ = sess.Close()

	switch {
	case ctx.Err() != nil:
		stream.fail(ctx.Err())
		r.log.Warn().Err(ctx.Err()).Msg("agent process cancelled")
	case code != 0:
		stream.fail(&agent.ProcessError{ExitCode: code})
		r.log.Error().Int("exit_code", code).Msg("agent process failed")
	case waitErr != nil:
		stream.fail(waitErr)
		r.log.Error().Err(waitErr).Msg("agent process wait failed")
	default:
		r.log.Debug().Msg("agent process finished")
	}
}

// cliStream fans decoded events out to a single consumer.
type cliStream struct {
	events chan agent.Event

	mu  sync.Mutex
	err error
}

func (s *cliStream) Events() <-chan agent.Event { return s.events }

func (s *cliStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *cliStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *cliStream) emit(ctx context.Context, event agent.Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}
