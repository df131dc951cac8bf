package shell

import (
	"io"
	"os"
)

// Streams is the byte-stream triad a session or pipeline stage owns.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewStreams fills nil entries with /dev/null style endpoints: reads fail
// closed and writes are discarded.
func NewStreams(in io.Reader, out, err io.Writer) Streams {
	if in == nil {
		in = &devNull{}
	}
	if out == nil {
		out = &devNull{}
	}
	if err == nil {
		err = &devNull{}
	}
	return Streams{In: in, Out: out, Err: err}
}

// devNull implements io.Reader and io.Writer, always closed for reads and
// discarding writes.
type devNull struct{}

var _ io.ReadWriter = (*devNull)(nil)

func (*devNull) Read([]byte) (int, error) {
	return 0, os.ErrClosed
}

func (*devNull) Write(b []byte) (int, error) {
	return len(b), nil
}
