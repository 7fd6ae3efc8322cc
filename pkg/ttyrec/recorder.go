package ttyrec

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/aretw0/ttystep/pkg/domain"
)

// Recorder turns text emissions into records appended to a sink.
type Recorder struct {
	mu      sync.Mutex
	sink    io.Writer
	tee     io.Writer
	clock   func() time.Time
	last    domain.Record
	buf     []byte
	err     error
	records int
	bytes   int64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithTee also writes the payload of every output record to w, after the record is persisted.
func WithTee(w io.Writer) Option {
	return func(r *Recorder) {
		r.tee = w
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink io.Writer, opts ...Option) *Recorder {
	r := &Recorder{
		sink:  sink,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PutChar emits a single character as a length-1 record.
func (r *Recorder) PutChar(c byte) error {
	return r.emit(domain.ChannelOutput, []byte{c})
}

// PutString emits s as one record. Empty strings produce no record.
func (r *Recorder) PutString(s string) error {
	if len(s) == 0 {
		return r.Err()
	}
	return r.emit(domain.ChannelOutput, []byte(s))
}

// Write emits p as one record.
func (r *Recorder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, r.Err()
	}
	if err := r.emit(domain.ChannelOutput, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// RecordAction appends the action fed by the driver on the input channel.
func (r *Recorder) RecordAction(a domain.Action) error {
	return r.emit(domain.ChannelInput, []byte{byte(a)})
}

// WriteRecord appends a record produced elsewhere, such as by a child image.
// Its timestamp is kept unless it would go backwards.
func (r *Recorder) WriteRecord(rec domain.Record) error {
	return r.emitAt(&rec, rec.Channel, rec.Payload)
}

// Control writes a control frame. Control frames only travel on the host wire.
func (r *Recorder) Control(payload []byte) error {
	return r.emit(domain.ChannelControl, payload)
}

// Flush flushes the sink's own buffering, if it has any.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	// Records reach the sink unbuffered; only layered writers (zstd, bufio) hold bytes back.
	if f, ok := r.sink.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			r.err = &domain.IOError{Resource: "recording", Err: err}
		}
	}
	return r.err
}

// Err returns the first write failure. Once set, every emission fails.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Records returns the number of records written.
func (r *Recorder) Records() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

// Bytes returns the number of payload bytes written.
func (r *Recorder) Bytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

func (r *Recorder) emit(ch domain.Channel, payload []byte) error {
	return r.emitAt(nil, ch, payload)
}

func (r *Recorder) emitAt(at *domain.Record, ch domain.Channel, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}

	rec := r.stamp(at)
	r.buf = AppendRecord(r.buf[:0], rec.Sec, rec.Usec, ch, payload)

	// One Write per record: a concurrent reader never sees half a header.
	if _, err := r.sink.Write(r.buf); err != nil {
		r.err = &domain.IOError{Resource: "recording", Err: err}
		return r.err
	}
	r.last = rec
	r.records++
	r.bytes += int64(len(payload))

	if r.tee != nil && ch == domain.ChannelOutput {
		if _, err := r.tee.Write(payload); err != nil {
			r.err = &domain.IOError{Resource: "observation", Err: err}
			return r.err
		}
	}
	return nil
}

// stamp returns at's timestamp, or the clock's, never going backwards.
func (r *Recorder) stamp(at *domain.Record) domain.Record {
	var rec domain.Record
	if at != nil {
		rec.Sec, rec.Usec = at.Sec, at.Usec
	} else {
		now := r.clock()
		rec.Sec = int32(now.Unix())
		rec.Usec = int32(now.Nanosecond() / int(time.Microsecond))
	}
	if r.records > 0 && rec.Before(r.last) {
		rec.Sec, rec.Usec = r.last.Sec, r.last.Usec
	}
	return rec
}

// AppendRecord appends the framed form of one record to dst.
func AppendRecord(dst []byte, sec, usec int32, ch domain.Channel, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(sec))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(usec))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, byte(ch))
	return append(dst, payload...)
}
