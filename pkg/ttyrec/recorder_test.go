package ttyrec_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

type countingWriter struct {
	writes int
	buf    bytes.Buffer
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.buf.Write(p)
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("sink closed")
	}
	w.after--
	return len(p), nil
}

func TestRecorder_Framing(t *testing.T) {
	base := time.Unix(1700000000, 250000*int64(time.Microsecond))
	sink := &countingWriter{}
	rec := ttyrec.NewRecorder(sink, ttyrec.WithClock(fixedClock(base)))

	require.NoError(t, rec.PutChar('@'))
	require.NoError(t, rec.PutString("Hello"))
	n, err := rec.Write([]byte{0x1b, '[', 'H'})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, 3, sink.writes, "each record is a single write")
	assert.Equal(t, 3, rec.Records())
	assert.Equal(t, int64(9), rec.Bytes())

	want := []byte{
		0x00, 0xf1, 0x53, 0x65, // 1700000000
		0x90, 0xd0, 0x03, 0x00, // 250000
		0x01, 0x00, 0x00, 0x00,
		0x00,
		'@',
	}
	assert.Equal(t, want, sink.buf.Bytes()[:len(want)])

	recs, err := ttyrec.ReadAll(bytes.NewReader(sink.buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []byte("@"), recs[0].Payload)
	assert.Equal(t, []byte("Hello"), recs[1].Payload)
	assert.Equal(t, int32(1700000000), recs[2].Sec)
	assert.Equal(t, int32(250000), recs[2].Usec)
}

func TestRecorder_EmptyStringProducesNoRecord(t *testing.T) {
	var sink bytes.Buffer
	rec := ttyrec.NewRecorder(&sink)

	require.NoError(t, rec.PutString(""))
	n, err := rec.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, sink.Len())
	assert.Zero(t, rec.Records())
}

func TestRecorder_MonotonicTimestamps(t *testing.T) {
	t0 := time.Unix(100, 500)
	clock := fixedClock(t0, t0.Add(-time.Second), t0.Add(time.Second))
	var sink bytes.Buffer
	rec := ttyrec.NewRecorder(&sink, ttyrec.WithClock(clock))

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, rec.PutString(s))
	}

	recs, err := ttyrec.ReadAll(&sink)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].Before(recs[i-1]), "record %d goes backwards", i)
	}
	assert.Equal(t, recs[0].Sec, recs[1].Sec)
	assert.Equal(t, int32(101), recs[2].Sec)
}

func TestRecorder_TeeAfterPersist(t *testing.T) {
	var sink, tee bytes.Buffer
	rec := ttyrec.NewRecorder(&sink, ttyrec.WithTee(&tee))

	require.NoError(t, rec.PutString("map"))
	require.NoError(t, rec.RecordAction(domain.Action('k')))
	require.NoError(t, rec.PutChar('!'))

	assert.Equal(t, "map!", tee.String(), "actions are not echoed to the observation")

	recs, err := ttyrec.ReadAll(&sink)
	require.NoError(t, err)
	assert.Equal(t, "map!", string(ttyrec.Output(recs)))
	assert.Equal(t, []domain.Action{'k'}, ttyrec.Actions(recs))
}

func TestRecorder_StickyError(t *testing.T) {
	rec := ttyrec.NewRecorder(&failingWriter{after: 1})

	require.NoError(t, rec.PutChar('a'))

	err := rec.PutChar('b')
	require.Error(t, err)
	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "recording", ioErr.Resource)

	assert.ErrorIs(t, rec.PutString("c"), err)
	assert.Equal(t, err, rec.Err())
	assert.Equal(t, err, rec.Flush())
	assert.Equal(t, 1, rec.Records())
}

func TestRecorder_WriteRecordKeepsTimestamp(t *testing.T) {
	var sink bytes.Buffer
	rec := ttyrec.NewRecorder(&sink, ttyrec.WithClock(fixedClock(time.Unix(50, 0))))

	require.NoError(t, rec.PutString("a"))
	require.NoError(t, rec.WriteRecord(domain.Record{Sec: 1, Usec: 2, Payload: []byte("b")}))
	require.NoError(t, rec.WriteRecord(domain.Record{Sec: 60, Usec: 7, Payload: []byte("c")}))

	recs, err := ttyrec.ReadAll(&sink)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int32(50), recs[1].Sec, "clamped to the previous record")
	assert.Equal(t, int32(60), recs[2].Sec)
	assert.Equal(t, int32(7), recs[2].Usec)
	assert.Equal(t, "abc", string(ttyrec.Output(recs)))
}
