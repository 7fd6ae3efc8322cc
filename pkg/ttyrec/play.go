package ttyrec

import (
	"context"
	"io"
	"time"

	"github.com/aretw0/ttystep/pkg/domain"
)

// MaxDelay caps the pause between two replayed records.
const MaxDelay = 2 * time.Second

// Play writes the output records to w, sleeping between them as long as the
// original session did, divided by speed. A speed of zero or less disables the
// delays.
func Play(ctx context.Context, w io.Writer, recs []domain.Record, speed float64) error {
	var prev time.Time
	for _, rec := range recs {
		if rec.Channel != domain.ChannelOutput {
			continue
		}
		if speed > 0 && !prev.IsZero() {
			delay := time.Duration(float64(rec.Time().Sub(prev)) / speed)
			if delay > MaxDelay {
				delay = MaxDelay
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.Write(rec.Payload); err != nil {
			return err
		}
		prev = rec.Time()
	}
	return nil
}
