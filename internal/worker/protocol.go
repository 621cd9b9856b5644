package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Every message in either direction is [uint32 big-endian length][payload].
//
// Reply payloads:
//
//	[0][uint32 n] n × ([uint32 len][output path])   success
//	[1][uint32 len][message]                        failure
const (
	statusOK    byte = 0
	statusError byte = 1
)

// maxFrame bounds a single frame so a corrupted length header cannot make us
// allocate gigabytes.
const maxFrame = 16 * 1024 * 1024

// Reply is the decoded answer for one request.
type Reply struct {
	Outputs []string
	Err     error
}

// RemoteError carries a pipeline error message across the process boundary.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func writeFrame(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header)
	if n > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func encodeReply(outputs []string, procErr error) []byte {
	buf := new(bytes.Buffer)
	if procErr != nil {
		buf.WriteByte(statusError)
		writeString(buf, procErr.Error())
		return buf.Bytes()
	}
	buf.WriteByte(statusOK)
	binary.Write(buf, binary.BigEndian, uint32(len(outputs)))
	for _, o := range outputs {
		writeString(buf, o)
	}
	return buf.Bytes()
}

func decodeReply(payload []byte) (Reply, error) {
	r := bytes.NewReader(payload)
	status, err := r.ReadByte()
	if err != nil {
		return Reply{}, errors.New("empty reply")
	}

	switch status {
	case statusOK:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Reply{}, fmt.Errorf("malformed reply: %w", err)
		}
		// Every string costs at least its 4-byte length prefix.
		outputs := make([]string, 0, min(n, uint32(r.Len()/4)))
		for i := uint32(0); i < n; i++ {
			s, err := readString(r)
			if err != nil {
				return Reply{}, fmt.Errorf("malformed reply: %w", err)
			}
			outputs = append(outputs, s)
		}
		return Reply{Outputs: outputs}, nil
	case statusError:
		msg, err := readString(r)
		if err != nil {
			return Reply{}, fmt.Errorf("malformed error reply: %w", err)
		}
		return Reply{Err: &RemoteError{Message: msg}}, nil
	default:
		return Reply{}, fmt.Errorf("unknown reply status %d", status)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
