package ttyrec

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// ErrStopFollow can be returned by a Follow callback to stop cleanly.
var ErrStopFollow = errors.New("stop following")

// Follow delivers the records of a recording that is still being written.
// Existing records are delivered first; afterwards fn is called for every
// complete record appended to the file. It returns when ctx is cancelled, the
// file is removed, or fn returns an error (ErrStopFollow yields nil).
func Follow(ctx context.Context, path string, fn func(domain.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	t := &tail{src: f}
	drain := func() error {
		if err := t.read(); err != nil {
			return err
		}
		for {
			rec, ok, err := t.next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}

	finish := func(err error) error {
		if errors.Is(err, ErrStopFollow) {
			return nil
		}
		return err
	}

	if err := drain(); err != nil {
		return finish(err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					return finish(err)
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return finish(drain())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}

// tail accumulates bytes of a growing file and splits complete records.
type tail struct {
	src     io.Reader
	pending []byte
	offset  int64
	chunk   [32 << 10]byte
}

func (t *tail) read() error {
	for {
		n, err := t.src.Read(t.chunk[:])
		t.pending = append(t.pending, t.chunk[:n]...)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// next splits off the next complete record. A header that no valid record
// can carry is reported as ErrCorrupt instead of waiting for more bytes.
func (t *tail) next() (domain.Record, bool, error) {
	if len(t.pending) < domain.HeaderSize {
		return domain.Record{}, false, nil
	}
	n, err := payloadSize(t.pending, t.offset)
	if err != nil {
		return domain.Record{}, false, err
	}
	size := int(n)
	if len(t.pending) < domain.HeaderSize+size {
		return domain.Record{}, false, nil
	}
	rec := domain.Record{
		Sec:     int32(binary.LittleEndian.Uint32(t.pending[0:4])),
		Usec:    int32(binary.LittleEndian.Uint32(t.pending[4:8])),
		Channel: domain.Channel(t.pending[12]),
		Payload: append([]byte(nil), t.pending[domain.HeaderSize:domain.HeaderSize+size]...),
	}
	t.pending = t.pending[domain.HeaderSize+size:]
	t.offset += int64(domain.HeaderSize + size)
	return rec, true, nil
}
