package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/ttystep/internal/presentation/tui"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// Replay writes the output of a recording to w, paced by its timestamps
// divided by speed. A speed of 0 or less replays without delays.
func Replay(ctx context.Context, w io.Writer, path string, speed float64) error {
	recs, truncated, err := ttyrec.Load(path)
	if err != nil {
		return err
	}
	if err := ttyrec.Play(ctx, w, recs, speed); err != nil {
		return err
	}
	if truncated {
		printSystemMessage(w, "%s", tui.Warn("recording ends with a partial record"))
	}
	return nil
}

// FollowReplay writes the output of a recording as it is being written,
// until ctx is cancelled or the file is removed.
func FollowReplay(ctx context.Context, w io.Writer, path string) error {
	err := ttyrec.Follow(ctx, path, func(rec domain.Record) error {
		if rec.Channel != domain.ChannelOutput {
			return nil
		}
		_, err := w.Write(rec.Payload)
		return err
	})
	if err != nil && !isInterrupted(err) {
		return fmt.Errorf("follow %s: %w", path, err)
	}
	return nil
}
