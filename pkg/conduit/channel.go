package conduit

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/aretw0/ttystep/pkg/domain"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("conduit closed")

// Channel is a pair of unidirectional byte conduits.
type Channel struct {
	inR, inW   *os.File
	outR, outW *os.File

	mu       sync.Mutex
	cond     *sync.Cond
	obs      []byte
	written  int64
	drained  int64
	pending  int
	pumpErr  error
	pumpDone bool
	closed   bool

	pumpExited chan struct{}
	rebind     *rebinding
	closeOnce  sync.Once
	closeErr   error
}

// Option configures a Channel.
type Option func(*config)

type config struct {
	rebind bool
}

// WithStdioRebind rebinds file descriptors 0 and 1 to the conduits for the
// lifetime of the channel. Only one channel per process may do this.
func WithStdioRebind(enabled bool) Option {
	return func(c *config) {
		c.rebind = enabled
	}
}

// Open creates both conduits and starts the pump.
func Open(opts ...Option) (*Channel, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, &domain.SetupError{Resource: "conduit", Err: err}
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, &domain.SetupError{Resource: "conduit", Err: err}
	}

	c := &Channel{
		inR:        inR,
		inW:        inW,
		outR:       outR,
		outW:       outW,
		pumpExited: make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)

	if cfg.rebind {
		rb, err := rebindStdio(inR, outW)
		if err != nil {
			closeAll(inR, inW, outR, outW)
			return nil, &domain.SetupError{Resource: "conduit", Err: err}
		}
		c.rebind = rb
	}

	go c.pump()
	return c, nil
}

func (c *Channel) pump() {
	defer close(c.pumpExited)
	buf := make([]byte, 32<<10)
	for {
		n, err := c.outR.Read(buf)
		c.mu.Lock()
		if n > 0 {
			c.obs = append(c.obs, buf[:n]...)
			c.drained += int64(n)
		}
		if err != nil {
			c.pumpDone = true
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.pumpErr = err
			}
		}
		c.cond.Broadcast()
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// SendAction writes exactly one byte into the input conduit.
func (c *Channel) SendAction(a domain.Action) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending++
	c.mu.Unlock()

	if _, err := c.inW.Write([]byte{byte(a)}); err != nil {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
		return &domain.IOError{Resource: "conduit", Err: err}
	}
	return nil
}

// Settle blocks until every byte written through Output has been drained into
// the observation buffer.
func (c *Channel) Settle() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.drained < c.written && !c.pumpDone {
		c.cond.Wait()
	}
	if c.pumpErr != nil {
		return &domain.IOError{Resource: "conduit", Err: c.pumpErr}
	}
	if c.drained < c.written {
		return &domain.IOError{Resource: "conduit", Err: io.ErrClosedPipe}
	}
	return nil
}

// TakeObservation returns and clears the bytes emitted since the previous call.
func (c *Channel) TakeObservation() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	obs := c.obs
	c.obs = nil
	return obs
}

// Pending returns the number of action bytes not yet consumed by the program.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Input is the program side of the input conduit. A read never returns more
// bytes than are pending; callers check Pending first so it never blocks.
func (c *Channel) Input() io.Reader {
	return inputReader{c}
}

// Output is the program side of the output conduit.
func (c *Channel) Output() io.Writer {
	return outputWriter{c}
}

type inputReader struct{ c *Channel }

func (r inputReader) Read(p []byte) (int, error) {
	c := r.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, io.EOF
	}
	if len(p) > c.pending && c.pending > 0 {
		p = p[:c.pending]
	}
	c.mu.Unlock()

	n, err := c.inR.Read(p)
	c.mu.Lock()
	c.pending -= n
	c.mu.Unlock()
	return n, err
}

type outputWriter struct{ c *Channel }

func (w outputWriter) Write(p []byte) (int, error) {
	c := w.c
	n, err := c.outW.Write(p)
	c.mu.Lock()
	c.written += int64(n)
	c.mu.Unlock()
	if err != nil {
		return n, &domain.IOError{Resource: "conduit", Err: err}
	}
	return n, nil
}

// Close closes both conduits, stops the pump and restores rebound descriptors.
// It is idempotent.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		var errs []error
		if c.rebind != nil {
			errs = append(errs, c.rebind.restore())
		}
		errs = append(errs, c.outW.Close(), c.inW.Close())
		<-c.pumpExited
		errs = append(errs, c.outR.Close(), c.inR.Close())
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// OriginalStdin returns the preserved standard input when descriptors were
// rebound, or nil.
func (c *Channel) OriginalStdin() *os.File {
	if c.rebind == nil {
		return nil
	}
	return c.rebind.stdin
}

// OriginalStdout returns the preserved standard output when descriptors were
// rebound, or nil.
func (c *Channel) OriginalStdout() *os.File {
	if c.rebind == nil {
		return nil
	}
	return c.rebind.stdout
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		f.Close()
	}
}
