package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/ttystep/pkg/domain"
)

// LogHooks logs every lifecycle event at debug level, and fatal ones at error.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(level slog.Level) func(context.Context, *domain.SessionEvent) {
		return func(ctx context.Context, e *domain.SessionEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"event", string(e.Type),
				"done", e.Done,
				"output", e.Output,
				"records", e.Records,
			}
			if e.Type == domain.EventStep {
				attrs = append(attrs, "action", e.Action.String(), "duration", e.Duration)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.Log(ctx, level, "session_event", attrs...)
		}
	}
	return domain.LifecycleHooks{
		OnStart: log(slog.LevelDebug),
		OnStep:  log(slog.LevelDebug),
		OnReset: log(slog.LevelDebug),
		OnEnd:   log(slog.LevelDebug),
		OnFatal: log(slog.LevelError),
	}
}

// Combine returns hooks that call each set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(context.Context, *domain.SessionEvent)) func(context.Context, *domain.SessionEvent) {
		var fns []func(context.Context, *domain.SessionEvent)
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *domain.SessionEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return domain.LifecycleHooks{
		OnStart: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnStart }),
		OnStep:  pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnStep }),
		OnReset: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnReset }),
		OnEnd:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnEnd }),
		OnFatal: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnFatal }),
	}
}
