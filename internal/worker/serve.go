package worker

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DataFD is the file descriptor the parent hands the child for replies.
const DataFD = 3

// ApplyFunc runs the pipeline on a single path.
type ApplyFunc func(path string) ([]string, error)

// Serve is the child side of the protocol: it reads paths from in until EOF,
// applies fn to each and writes one reply per request to out. Pipeline errors
// are sent back, not returned; only transport failures end the loop early.
func Serve(in io.Reader, out io.Writer, fn ApplyFunc) error {
	for {
		req, err := readFrame(in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		outputs, procErr := fn(string(req))
		if err := writeFrame(out, encodeReply(outputs, procErr)); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

// DataPipe opens the reply pipe inherited from the parent.
func DataPipe() (*os.File, error) {
	f := os.NewFile(uintptr(DataFD), "edgebench-data")
	if f == nil {
		return nil, errors.New("reply pipe (fd 3) not provided; run via the process executor")
	}
	if _, err := f.Stat(); err != nil {
		return nil, fmt.Errorf("reply pipe (fd 3) unusable: %w", err)
	}
	return f, nil
}
