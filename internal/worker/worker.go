package worker

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/edgebench/internal/utils"
)

// ErrWorkerCrashed is returned when the child process stops answering.
var ErrWorkerCrashed = errors.New("worker process crashed")

// ProcessWorker is the parent-side handle of one child `edgebench worker`
// process. Requests go over the child's stdin; replies come back on a
// dedicated pipe that the child sees as FD 3, so anything the child prints to
// stdout or stderr never corrupts the protocol stream.
type ProcessWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
}

// NewProcessWorker starts cmd and wires up the request and reply pipes.
func NewProcessWorker(id int, cmd *utils.SafeCommand) (*ProcessWorker, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// The write end becomes FD 3 in the child.
	cmd.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Only the child may hold the write end, otherwise reads never see EOF.
	w.Close()

	return &ProcessWorker{
		ID:       id,
		Cmd:      cmd,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Process asks the child to run the pipeline on path. A non-nil Reply.Err is a
// per-image failure; a non-nil error means the child itself is gone.
func (w *ProcessWorker) Process(path string) (Reply, error) {
	if err := writeFrame(w.Stdin, []byte(path)); err != nil {
		return Reply{}, fmt.Errorf("%w: worker %d: send: %v", ErrWorkerCrashed, w.ID, err)
	}

	payload, err := readFrame(w.DataPipe)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: worker %d: receive: %v", ErrWorkerCrashed, w.ID, err)
	}

	reply, err := decodeReply(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("worker %d: %w", w.ID, err)
	}
	return reply, nil
}

// Close shuts the child down. Closing stdin makes it exit its read loop.
func (w *ProcessWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}
