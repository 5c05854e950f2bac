package segio

import (
	"io"
	"sync"
)

// Pipe is an in-memory Source and Sink pair for handing bytes from one
// goroutine to another. Writers block while the pipe holds maxBufferSize
// bytes and readers block while it is empty; both waits honour the
// respective side's Timeout.
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  Buffer
	max  int64

	sinkClosed   bool
	sourceClosed bool

	sink   pipeSink
	source pipeSource
}

// NewPipe returns a pipe that buffers at most maxBufferSize bytes.
// It panics if maxBufferSize < 1.
func NewPipe(maxBufferSize int64) *Pipe {
	if maxBufferSize < 1 {
		panic("segio: pipe buffer size < 1")
	}
	p := &Pipe{max: maxBufferSize}
	p.cond = sync.NewCond(&p.mu)
	p.sink = pipeSink{p: p, timeout: NewTimeout()}
	p.source = pipeSource{p: p, timeout: NewTimeout()}
	return p
}

// Sink returns the write end.
func (p *Pipe) Sink() Sink { return &p.sink }

// Source returns the read end.
func (p *Pipe) Source() Source { return &p.source }

type pipeSink struct {
	p       *Pipe
	timeout *Timeout
}

func (s *pipeSink) WriteFrom(src *Buffer, n int64) error {
	if n < 0 || n > src.Size() {
		return ErrByteCount
	}
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sinkClosed {
		return ErrClosed
	}
	for n > 0 {
		if p.sourceClosed {
			return io.ErrClosedPipe
		}
		room := p.max - p.buf.Size()
		if room == 0 {
			if err := s.timeout.WaitUntilNotified(p.cond); err != nil {
				return err
			}
			continue
		}
		k := min(room, n)
		if err := p.buf.WriteFrom(src, k); err != nil {
			return err
		}
		n -= k
		p.cond.Broadcast()
	}
	return nil
}

func (s *pipeSink) Flush() error {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sinkClosed {
		return ErrClosed
	}
	return nil
}

func (s *pipeSink) Timeout() *Timeout { return s.timeout }

// Close marks the end of the stream. Readers see io.EOF once they have
// drained what was written.
func (s *pipeSink) Close() error {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sinkClosed {
		return nil
	}
	p.sinkClosed = true
	p.cond.Broadcast()
	return nil
}

type pipeSource struct {
	p       *Pipe
	timeout *Timeout
}

func (s *pipeSource) ReadAtMostTo(dst *Buffer, n int64) (int64, error) {
	if n < 0 {
		return 0, ErrByteCount
	}
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sourceClosed {
		return 0, ErrClosed
	}
	if n == 0 {
		return 0, nil
	}
	for p.buf.Size() == 0 {
		if p.sinkClosed {
			return 0, io.EOF
		}
		if err := s.timeout.WaitUntilNotified(p.cond); err != nil {
			return 0, err
		}
	}
	k := min(n, p.buf.Size())
	if err := dst.WriteFrom(&p.buf, k); err != nil {
		return 0, err
	}
	p.cond.Broadcast()
	return k, nil
}

func (s *pipeSource) Timeout() *Timeout { return s.timeout }

// Close discards unread bytes. Later writes fail with io.ErrClosedPipe.
func (s *pipeSource) Close() error {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sourceClosed {
		return nil
	}
	p.sourceClosed = true
	p.buf.Clear()
	p.cond.Broadcast()
	return nil
}
