package logger_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"go.trai.ch/grain/internal/adapters/logger"
)

// newBufferedLogger returns a logger redirected into an in-memory buffer.
func newBufferedLogger() (*logger.Logger, *bytes.Buffer) {
	lg := logger.New().(*logger.Logger)
	var buf bytes.Buffer
	lg.SetOutput(&buf)
	return lg, &buf
}

func TestLogger_Info(t *testing.T) {
	lg, buf := newBufferedLogger()
	lg.Info("some message")

	output := buf.String()
	if !strings.Contains(output, "some message") {
		t.Errorf("Expected output to contain 'some message', got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("Expected output to contain 'INFO', got: %s", output)
	}
}

func TestLogger_Warn(t *testing.T) {
	lg, buf := newBufferedLogger()
	lg.Warn("some warning")

	output := buf.String()
	if !strings.Contains(output, "some warning") {
		t.Errorf("Expected output to contain 'some warning', got: %s", output)
	}
	if !strings.Contains(output, "WARN") {
		t.Errorf("Expected output to contain 'WARN', got: %s", output)
	}
}

func TestLogger_Error(t *testing.T) {
	lg, buf := newBufferedLogger()
	lg.Error(os.ErrPermission)

	output := buf.String()
	if !strings.Contains(output, "permission denied") {
		t.Errorf("Expected output to contain 'permission denied', got: %s", output)
	}
	if !strings.Contains(output, "ERROR") {
		t.Errorf("Expected output to contain 'ERROR', got: %s", output)
	}
}

func TestNew(t *testing.T) {
	lg := logger.New()
	if lg == nil {
		t.Fatal("Expected New() to return a non-nil logger")
	}
}
