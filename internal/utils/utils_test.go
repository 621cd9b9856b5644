package utils

import (
	"strings"
	"testing"
)

func TestSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand("sh", "-c", "echo boom >&2; exit 3")
	if err := cmd.Run(); err == nil {
		t.Fatal("expected non-zero exit")
	}
	if got := strings.TrimSpace(cmd.Stderr.String()); got != "boom" {
		t.Errorf("captured stderr = %q, want %q", got, "boom")
	}
}

func TestStderrTail(t *testing.T) {
	cmd := NewSafeCommand("true")
	cmd.Stderr.Write([]byte("0123456789"))

	if got := cmd.StderrTail(4); got != "...6789" {
		t.Errorf("StderrTail(4) = %q, want %q", got, "...6789")
	}
	if got := cmd.StderrTail(100); got != "0123456789" {
		t.Errorf("StderrTail(100) = %q, want full buffer", got)
	}
}

func TestNewSelfCommand(t *testing.T) {
	cmd, err := NewSelfCommand("worker", "--backend", "cpu")
	if err != nil {
		t.Fatalf("NewSelfCommand() error = %v", err)
	}
	if len(cmd.Args) != 4 || cmd.Args[1] != "worker" {
		t.Errorf("unexpected args %v", cmd.Args)
	}
}
