package middleware

import (
	"context"
	"log/slog"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/outbox"
)

// OutboxFlush binds an event batch to the command context and hands the
// batch to box once the inner chain, including the commit, succeeded.
// Relay failures are logged; the command already took effect.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, nested := outbox.BatchFromContext(ctx); nested {
				return nextFn(ctx, cmd)
			}
			execCtx, batch := outbox.ContextWithBatch(ctx)
			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			records := batch.Records()
			if len(records) == 0 {
				return res, nil
			}
			for _, rec := range records {
				if err := box.Add(ctx, rec); err != nil {
					logger.Error("outbox add failed", "command", cmd.Key(), "event", rec.Name, "error", err)
				}
			}
			if err := box.Flush(ctx); err != nil {
				logger.Error("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
