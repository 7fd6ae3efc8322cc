package ttyrec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/ttystep/pkg/domain"
)

// MaxPayload bounds a single record. Larger lengths are treated as corruption.
const MaxPayload = 64 << 20

// ErrCorrupt is returned for a header that cannot belong to a valid record.
var ErrCorrupt = errors.New("ttyrec: corrupt record header")

// Reader reads records from a recording stream.
type Reader struct {
	r         *bufio.Reader
	hdr       [domain.HeaderSize]byte
	truncated bool
	offset    int64
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next complete record. At the end of the stream it returns
// io.EOF; a trailing partial record also ends the stream with io.EOF and sets
// Truncated.
func (rd *Reader) Next() (domain.Record, error) {
	if _, err := io.ReadFull(rd.r, rd.hdr[:]); err != nil {
		return domain.Record{}, rd.endOfStream(err)
	}

	size, err := payloadSize(rd.hdr[:], rd.offset)
	if err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{
		Sec:     int32(binary.LittleEndian.Uint32(rd.hdr[0:4])),
		Usec:    int32(binary.LittleEndian.Uint32(rd.hdr[4:8])),
		Channel: domain.Channel(rd.hdr[12]),
		Payload: make([]byte, size),
	}
	if _, err := io.ReadFull(rd.r, rec.Payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return domain.Record{}, rd.endOfStream(err)
	}
	rd.offset += int64(domain.HeaderSize) + int64(size)
	return rec, nil
}

// endOfStream maps a short read to io.EOF. Any other read failure is returned
// with the offset of the record it interrupted.
func (rd *Reader) endOfStream(err error) error {
	switch err {
	case io.EOF:
		return io.EOF
	case io.ErrUnexpectedEOF:
		rd.truncated = true
		return io.EOF
	}
	return fmt.Errorf("ttyrec: read record at offset %d: %w", rd.offset, err)
}

// payloadSize decodes and bounds the length field of a record header.
func payloadSize(hdr []byte, offset int64) (int32, error) {
	size := int32(binary.LittleEndian.Uint32(hdr[8:12]))
	if size < 0 || size > MaxPayload {
		return 0, fmt.Errorf("%w at offset %d: length %d", ErrCorrupt, offset, size)
	}
	return size, nil
}

// Truncated reports whether the stream ended inside a record.
func (rd *Reader) Truncated() bool {
	return rd.truncated
}

// Offset returns the number of bytes consumed by complete records.
func (rd *Reader) Offset() int64 {
	return rd.offset
}

// ReadAll reads every complete record from r.
func ReadAll(r io.Reader) ([]domain.Record, error) {
	rd := NewReader(r)
	var recs []domain.Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Output concatenates the payloads of the output records, reconstructing the
// byte stream a terminal would have received.
func Output(recs []domain.Record) []byte {
	var out []byte
	for _, rec := range recs {
		if rec.Channel == domain.ChannelOutput {
			out = append(out, rec.Payload...)
		}
	}
	return out
}

// Actions returns the driver actions stored on the input channel.
func Actions(recs []domain.Record) []domain.Action {
	var acts []domain.Action
	for _, rec := range recs {
		if rec.Channel == domain.ChannelInput && len(rec.Payload) == 1 {
			acts = append(acts, domain.Action(rec.Payload[0]))
		}
	}
	return acts
}
