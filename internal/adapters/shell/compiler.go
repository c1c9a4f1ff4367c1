// Package shell provides the external compiler adapter.
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
	"go.trai.ch/zerr"
)

// Compiler implements ports.UnitCompiler by invoking the configured compiler
// command via os/exec. The unit's source text is written to the process on
// stdin and the artifact is read back from stdout. Stderr is streamed to the
// logger line by line.
//
// With no command configured the source text is passed through unchanged,
// which keeps the engine usable without an external toolchain.
type Compiler struct {
	command []string
	logger  ports.Logger
}

// NewCompiler creates a Compiler running the given command for each unit.
func NewCompiler(command []string, logger ports.Logger) *Compiler {
	return &Compiler{
		command: command,
		logger:  logger,
	}
}

// Compile runs the compiler command for a single unit.
func (c *Compiler) Compile(ctx context.Context, unit *domain.CompilationUnit, content string) (string, error) {
	if len(c.command) == 0 {
		return content, nil
	}

	name := c.command[0]
	args := c.command[1:]

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // user provided command
	cmd.Stdin = strings.NewReader(content)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &logWriter{logger: c.logger}

	if err := cmd.Run(); err != nil {
		var exitCode int
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1 // Unknown or signal
		}

		werr := zerr.With(zerr.Wrap(domain.ErrCompilationFailed, err.Error()), "unit_id", unit.ID)
		return "", zerr.With(werr, "exit_code", exitCode)
	}

	return stdout.String(), nil
}

// logWriter forwards process stderr to the logger. Write may receive partial
// lines; splitting on newlines is good enough for diagnostic output.
type logWriter struct {
	logger ports.Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if line != "" {
			w.logger.Warn(line)
		}
	}
	return len(p), nil
}
