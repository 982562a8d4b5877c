package middleware

import (
	"context"
	"errors"
	"fmt"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs every command inside its own unit of work. A unit already
// bound to the context is reused so nested dispatches share one boundary.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return nextFn(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, fmt.Errorf("begin unit of work: %w", err)
			}
			execCtx := uow.ContextWithUnitOfWork(ctx, unit)

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				if rbErr := unit.Rollback(execCtx); rbErr != nil {
					return nil, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
				}
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				_ = unit.Rollback(execCtx)
				return nil, fmt.Errorf("commit: %w", err)
			}
			return res, nil
		})
	}
}
