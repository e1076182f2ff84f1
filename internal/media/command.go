package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/Veraticus/spice-capture/internal/common"
)

// DefaultRecorderCommand records WAV from the default input device to stdout.
var DefaultRecorderCommand = []string{"sox", "-q", "-d", "-t", "wav", "-"}

// CommandMicrophone records by running an external program that writes
// audio to stdout until interrupted.
type CommandMicrophone struct {
	MIMEType string
	Command  []string
}

// NewCommandMicrophone returns a microphone backed by command. An empty
// command uses DefaultRecorderCommand.
func NewCommandMicrophone(command []string, mimeType string) *CommandMicrophone {
	if len(command) == 0 {
		command = DefaultRecorderCommand
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return &CommandMicrophone{Command: command, MIMEType: mimeType}
}

// Open starts the recorder process.
func (m *CommandMicrophone) Open(ctx context.Context) (Stream, error) {
	if len(m.Command) == 0 {
		return nil, fmt.Errorf("%w: no recorder command configured", common.ErrDeviceUnavailable)
	}

	cmd := exec.CommandContext(ctx, m.Command[0], m.Command[1:]...) //nolint:gosec // command comes from local configuration
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDeviceUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		switch {
		case errors.Is(err, os.ErrPermission):
			return nil, fmt.Errorf("%w: %w", common.ErrPermissionDenied, err)
		default:
			return nil, fmt.Errorf("%w: start %s: %w", common.ErrDeviceUnavailable, m.Command[0], err)
		}
	}

	return &commandStream{cmd: cmd, stdout: stdout, mimeType: m.MIMEType}, nil
}

type commandStream struct {
	stdout    io.ReadCloser
	cmd       *exec.Cmd
	mimeType  string
	closeOnce sync.Once
	closeErr  error
}

func (s *commandStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *commandStream) MIMEType() string {
	return s.mimeType
}

// Stop interrupts the recorder so it can flush and exit.
func (s *commandStream) Stop() error {
	if s.cmd.Process == nil {
		return nil
	}
	err := s.cmd.Process.Signal(os.Interrupt)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Close kills the recorder if it is still running and reaps it.
func (s *commandStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.closeErr = err
			}
		}
		// Exit status after an interrupt or kill is expected to be non-zero.
		_ = s.cmd.Wait()
	})
	return s.closeErr
}
