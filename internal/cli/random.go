package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
)

// DefaultPrelude answers the character selection and dismisses the welcome.
var DefaultPrelude = []domain.Action{domain.ActionYes, domain.ActionYes, domain.ActionNewline}

// RandomOptions configures random play.
type RandomOptions struct {
	Episodes int
	// MaxSteps bounds each episode; 0 plays until the program is done.
	MaxSteps int
	Seed     uint64
	Actions  []domain.Action
	Prelude  []domain.Action
	// ReportEvery prints a progress line to Out at this interval; 0 disables it.
	ReportEvery time.Duration
	Out         io.Writer
	Session     []ttystep.Option
	Logger      *slog.Logger
}

// RandomStats summarises a random play run.
type RandomStats struct {
	Episodes int
	Steps    int
	Elapsed  time.Duration
	Session  domain.SessionInfo
}

// StepsPerSecond is the stepping rate over the whole run.
func (s RandomStats) StepsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Steps) / s.Elapsed.Seconds()
}

// RandomPlay runs Episodes episodes of uniformly random actions, resetting
// the session between them.
func RandomPlay(ctx context.Context, opts RandomOptions) (RandomStats, error) {
	if opts.Episodes <= 0 {
		opts.Episodes = 1
	}
	if len(opts.Actions) == 0 {
		opts.Actions = domain.MoreAndCompass
	}
	if opts.Prelude == nil {
		opts.Prelude = DefaultPrelude
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var stats RandomStats
	sess, err := ttystep.Start(ctx, append([]ttystep.Option{ttystep.WithLogger(logger)}, opts.Session...)...)
	if err != nil {
		return stats, err
	}
	defer sess.End()

	start := time.Now()
	lastReport := start
	step := func(a domain.Action) (bool, error) {
		done, err := sess.Step(ctx, a)
		if err != nil {
			return done, err
		}
		stats.Steps++
		if opts.ReportEvery > 0 && time.Since(lastReport) >= opts.ReportEvery {
			lastReport = time.Now()
			elapsed := lastReport.Sub(start)
			fmt.Fprintf(opts.Out, "episode %d: %d steps, %.0f steps/s\n",
				stats.Episodes+1, stats.Steps, float64(stats.Steps)/elapsed.Seconds())
		}
		return done, nil
	}

	for ep := 0; ep < opts.Episodes; ep++ {
		if ep > 0 {
			if err := sess.Reset(ctx); err != nil {
				return finish(stats, start, sess), err
			}
		}

		done := sess.Done()
		for _, a := range opts.Prelude {
			if done {
				break
			}
			if done, err = step(a); err != nil {
				return finish(stats, start, sess), err
			}
		}
		for n := 0; !done && (opts.MaxSteps == 0 || n < opts.MaxSteps); n++ {
			a := opts.Actions[rng.IntN(len(opts.Actions))]
			if done, err = step(a); err != nil {
				return finish(stats, start, sess), err
			}
		}
		stats.Episodes++
		logger.Debug("Episode finished", "episode", stats.Episodes, "steps", stats.Steps, "done", done)
	}

	stats = finish(stats, start, sess)
	if err := sess.End(); err != nil {
		return stats, err
	}
	stats.Session = sess.Info()
	return stats, nil
}

func finish(stats RandomStats, start time.Time, sess *ttystep.Session) RandomStats {
	stats.Elapsed = time.Since(start)
	stats.Session = sess.Info()
	return stats
}
