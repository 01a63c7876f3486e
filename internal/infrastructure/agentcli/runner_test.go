package agentcli

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

type fakeSession struct {
	out      io.Reader
	exitCode int

	terminated bool
	killed     bool
}

func (f *fakeSession) Output() io.Reader { return f.out }

func (f *fakeSession) Terminate() error {
	f.terminated = true
	return nil
}

func (f *fakeSession) Kill() error {
	f.killed = true
	return nil
}

func (f *fakeSession) Wait() (int, error) { return f.exitCode, nil }

func (f *fakeSession) Close() error { return nil }

func newTestRunner(sess procSession, startErr error) *CLIRunner {
	return &CLIRunner{
		binary:  "claude",
		workDir: ".",
		timeout: time.Minute,
		log:     zerolog.Nop(),
		start: func(cmd *exec.Cmd) (procSession, error) {
			if startErr != nil {
				return nil, startErr
			}
			return sess, nil
		},
	}
}

func collect(t *testing.T, stream agent.Stream) []agent.Event {
	t.Helper()
	var events []agent.Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-deadline:
			t.Fatal("timed out draining stream")
		}
	}
}

func TestRunStreamsDecodedEvents(t *testing.T) {
	output := `{"type":"assistant","message":{"content":[{"type":"text","text":"hello"}]}}` + "\n" +
		`garbage line` + "\n" +
		`{"type":"result","is_error":false}`
	sess := &fakeSession{out: bytes.NewReader([]byte(output))}
	runner := newTestRunner(sess, nil)

	stream, err := runner.Run(context.Background(), "hi there")
	require.NoError(t, err)

	events := collect(t, stream)
	require.Len(t, events, 3)
	assert.Equal(t, agent.EventTypeAssistant, events[0].Type)
	assert.Equal(t, agent.EventTypeRaw, events[1].Type)
	assert.Equal(t, "garbage line", events[1].Raw)
	assert.Equal(t, agent.EventTypeResult, events[2].Type)
	assert.NoError(t, stream.Err())
}

func TestRunPassesPromptAndFlagsToBinary(t *testing.T) {
	sess := &fakeSession{out: bytes.NewReader(nil)}
	var captured *exec.Cmd
	runner := &CLIRunner{
		binary:  "claude",
		workDir: "/tmp",
		timeout: time.Minute,
		log:     zerolog.Nop(),
		start: func(cmd *exec.Cmd) (procSession, error) {
			captured = cmd
			return sess, nil
		},
	}

	stream, err := runner.Run(context.Background(), "summarise my inbox")
	require.NoError(t, err)
	collect(t, stream)

	require.NotNil(t, captured)
	assert.Equal(t, "/tmp", captured.Dir)
	assert.Equal(t, []string{
		"claude", "--continue", "--output-format", "stream-json", "--verbose", "--print", "summarise my inbox",
	}, captured.Args)
}

func TestRunRejectsBlankPrompt(t *testing.T) {
	runner := newTestRunner(&fakeSession{out: bytes.NewReader(nil)}, nil)

	_, err := runner.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRunReportsStartFailure(t *testing.T) {
	runner := newTestRunner(nil, exec.ErrNotFound)

	_, err := runner.Run(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessFailure))
}

func TestRunReportsNonZeroExit(t *testing.T) {
	sess := &fakeSession{
		out:      bytes.NewReader([]byte(`{"type":"assistant","message":{"content":[]}}` + "\n")),
		exitCode: 1,
	}
	runner := newTestRunner(sess, nil)

	stream, err := runner.Run(context.Background(), "hello")
	require.NoError(t, err)

	events := collect(t, stream)
	assert.Len(t, events, 1)

	var procErr *agent.ProcessError
	require.ErrorAs(t, stream.Err(), &procErr)
	assert.Equal(t, 1, procErr.ExitCode)
}

func TestRunTerminatesOnCancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	sess := &fakeSession{out: pr}
	runner := newTestRunner(sess, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := runner.Run(ctx, "hello")
	require.NoError(t, err)

	cancel()
	// The watchdog sends the terminate request, after which the fake
	// process "exits" by closing its output.
	assert.Eventually(t, func() bool { return sess.terminated }, 2*time.Second, 10*time.Millisecond)
	pw.Close()

	collect(t, stream)
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}

func TestNewCLIRunnerReadsConfig(t *testing.T) {
	cfg := &config.Config{
		AgentBinary:     "claude",
		AgentWorkingDir: "/workspace",
		AgentTimeout:    time.Minute,
	}
	runner := NewCLIRunner(cfg, zerolog.Nop())

	assert.Equal(t, "claude", runner.binary)
	assert.Equal(t, "/workspace", runner.workDir)
	assert.Equal(t, time.Minute, runner.timeout)
}
