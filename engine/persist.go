package engine

import (
	"context"
	"log/slog"
)

func (eng *Engine) persistCounters(ctx context.Context, eff *Effects) error {
	if eng.Counters == nil {
		return nil
	}
	for _, ref := range eff.CounterIncrements {
		if err := eng.Counters.Increment(ctx, ref.Name, ref.Val); err != nil {
			return err
		}
	}
	for _, ref := range eff.CounterDistinctIncrements {
		if err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val); err != nil {
			return err
		}
	}
	return nil
}

func (eng *Engine) persistFlags(ctx context.Context, eff *Effects) error {
	if eng.Flags == nil {
		return nil
	}
	for _, ref := range eff.Flags {
		if err := eng.Flags.Add(ctx, ref.Key, []string{ref.Flag}); err != nil {
			return err
		}
	}
	return nil
}

// Runs queued bundles in order. Within a bundle, the first failure skips the remaining actions and runs the fallback.
func (eng *Engine) executeActions(ctx context.Context, logger *slog.Logger, eff *Effects) {
	for _, b := range eff.Bundles {
		if !eng.runActions(ctx, logger, b.Actions) {
			eng.runActions(ctx, logger, b.Fallback)
		}
	}
}

func (eng *Engine) runActions(ctx context.Context, logger *slog.Logger, actions []Action) bool {
	for _, a := range actions {
		if eng.Transport == nil {
			logger.Debug("no transport, dropping action", "kind", a.Kind())
			continue
		}
		actionCount.WithLabelValues(a.Kind()).Inc()
		if err := eng.Transport.Execute(ctx, a); err != nil {
			actionErrorCount.WithLabelValues(a.Kind()).Inc()
			logger.Warn("action failed", "kind", a.Kind(), "room", a.RoomID(), "err", err)
			return false
		}
	}
	return true
}

// Logs a single line summarizing everything the event caused.
func (e *Effects) CanonicalLogLine(logger *slog.Logger) {
	logger.Info("canonical-event-line",
		"bundles", len(e.Bundles),
		"texts", e.Count(KindSendText),
		"deletes", e.Count(KindDeleteMessage),
		"mutes", e.Count(KindMuteUser),
		"edits", e.Count(KindEditMessage),
		"counters", len(e.CounterIncrements),
		"flags", e.flagNames(),
	)
}
