package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser interfaces.
// This allows us to use in-memory buffers as if they were OS Pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

func TestProcess(t *testing.T) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	outputs := []string{"out/gray_a.png", "out/blurred_a.png", "out/edges_a.png"}
	writeFrame(dataPipeMock, encodeReply(outputs, nil))

	w := &ProcessWorker{
		ID:       1,
		Stdin:    stdinMock,
		DataPipe: dataPipeMock,
		// Cmd is nil because we aren't testing process management, just the protocol
	}

	reply, err := w.Process("images/a.png")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Verify the request framing: 4 byte header + path.
	sent := stdinMock.Bytes()
	if len(sent) != 4+len("images/a.png") {
		t.Errorf("Expected %d bytes sent, got %d", 4+len("images/a.png"), len(sent))
	}
	if n := binary.BigEndian.Uint32(sent[:4]); n != uint32(len("images/a.png")) {
		t.Errorf("Header length = %d, want %d", n, len("images/a.png"))
	}

	if reply.Err != nil {
		t.Errorf("Unexpected reply error: %v", reply.Err)
	}
	if !reflect.DeepEqual(reply.Outputs, outputs) {
		t.Errorf("Outputs = %v, want %v", reply.Outputs, outputs)
	}
}

func TestProcess_Error(t *testing.T) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	errMsg := "failed to load image: images/bad.jpg"
	writeFrame(dataPipeMock, encodeReply(nil, errors.New(errMsg)))

	w := &ProcessWorker{ID: 1, Stdin: stdinMock, DataPipe: dataPipeMock}

	reply, err := w.Process("images/bad.jpg")
	if err != nil {
		t.Fatalf("Transport should succeed, got %v", err)
	}
	var remote *RemoteError
	if !errors.As(reply.Err, &remote) {
		t.Fatalf("Expected RemoteError, got %v", reply.Err)
	}
	if remote.Message != errMsg {
		t.Errorf("Expected message %q, got %q", errMsg, remote.Message)
	}
}

func TestProcess_Crashed(t *testing.T) {
	// An empty reply pipe looks like a child that died before answering.
	w := &ProcessWorker{
		ID:       2,
		Stdin:    &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe: &MockCloser{Buffer: new(bytes.Buffer)},
	}
	if _, err := w.Process("images/a.png"); !errors.Is(err, ErrWorkerCrashed) {
		t.Errorf("Expected ErrWorkerCrashed, got %v", err)
	}
}

func TestDecodeReply_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"unknown status", []byte{7}},
		{"truncated count", []byte{statusOK, 0, 0}},
		{"string longer than payload", []byte{statusError, 0, 0, 0, 9, 'x'}},
		// A count of 2^32-1 with nothing behind it must fail without
		// reserving space for that many strings.
		{"huge count", []byte{statusOK, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeReply(tt.payload); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestServe(t *testing.T) {
	in := new(bytes.Buffer)
	writeFrame(in, []byte("good.png"))
	writeFrame(in, []byte("bad.png"))

	var seen []string
	out := new(bytes.Buffer)
	err := Serve(in, out, func(path string) ([]string, error) {
		seen = append(seen, path)
		if path == "bad.png" {
			return nil, errors.New("decode failed")
		}
		return []string{"gray_" + path}, nil
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if !reflect.DeepEqual(seen, []string{"good.png", "bad.png"}) {
		t.Errorf("handled %v", seen)
	}

	first, err := readFrame(out)
	if err != nil {
		t.Fatal(err)
	}
	r1, err := decodeReply(first)
	if err != nil || r1.Err != nil || len(r1.Outputs) != 1 || r1.Outputs[0] != "gray_good.png" {
		t.Errorf("first reply = %+v, %v", r1, err)
	}

	second, err := readFrame(out)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := decodeReply(second)
	if err != nil || r2.Err == nil || r2.Err.Error() != "decode failed" {
		t.Errorf("second reply = %+v, %v", r2, err)
	}

	if _, err := readFrame(out); err != io.EOF {
		t.Errorf("expected exactly two replies, got extra (err=%v)", err)
	}
}

func TestServe_TruncatedRequest(t *testing.T) {
	in := bytes.NewBuffer([]byte{0, 0, 0, 10, 'a', 'b'})
	err := Serve(in, io.Discard, func(string) ([]string, error) { return nil, nil })
	if err == nil {
		t.Error("expected error for truncated request")
	}
}
