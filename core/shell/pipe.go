package shell

import (
	"context"
	"io"

	"josephlewis.net/gosh/core/token"
)

// Pipe runs one pipeline stage. Stages connected by | share an io.Pipe:
// the upstream stage's Out is the write end, the downstream stage's In is
// the read end. Each stage executes against its own stream view of the
// shared session.
type Pipe struct {
	closure   *Closure
	statement token.Statement
	streams   Streams

	reader *io.PipeReader
	writer *io.PipeWriter

	// stage is the closure copy the statement ran on; the driver reads
	// its error tokens after the join.
	stage     *Closure
	result    interface{}
	exception error
	done      chan struct{}
}

func newPipe(c *Closure, statement token.Statement) *Pipe {
	return &Pipe{
		closure:   c,
		statement: statement,
		done:      make(chan struct{}),
	}
}

// connect wires this stage's output to next's input.
func (p *Pipe) connect(next *Pipe) {
	r, w := io.Pipe()
	p.streams.Out = w
	p.writer = w
	next.streams = Streams{
		In:  r,
		Out: p.closure.session.Out(),
		Err: p.closure.session.Err(),
	}
	next.reader = r
}

// run executes the stage statement, then closes the pipe ends so that
// neighbours unblock: the downstream reader sees EOF, the upstream writer
// sees ErrClosedPipe.
func (p *Pipe) run(ctx context.Context) {
	defer close(p.done)
	defer func() {
		if p.writer != nil {
			p.writer.Close()
		}
		if p.reader != nil {
			p.reader.Close()
		}
	}()

	stage := *p.closure
	stage.session = p.closure.session.withStreams(p.streams)
	stage.ctx = ctx
	p.stage = &stage

	p.result, p.exception = stage.executeStatement(ctx, p.statement)
}

// interrupt tears the pipe down mid-flight on cancellation.
func (p *Pipe) interrupt() {
	if p.writer != nil {
		p.writer.CloseWithError(context.Canceled)
	}
	if p.reader != nil {
		p.reader.CloseWithError(context.Canceled)
	}
}

// joinPipes waits for every stage in construction order. On context
// cancellation all pipes are interrupted so blocked stages unwind, then
// the join completes before the cancellation error is returned.
func joinPipes(ctx context.Context, pipes []*Pipe) error {
	for _, p := range pipes {
		select {
		case <-p.done:
		case <-ctx.Done():
			for _, q := range pipes {
				q.interrupt()
			}
			for _, q := range pipes {
				<-q.done
			}
			return ctx.Err()
		}
	}
	return nil
}
