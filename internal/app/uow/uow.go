package uow

import (
	"context"
	"errors"

	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlistings.Repository
	Conversations() domainmessaging.ConversationRepository
	Messages() domainmessaging.MessageRepository
	Notifications() domainnotifications.Repository
	Favorites() domainfavorites.Repository
	SavedSearches() domainsavedsearch.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Require returns the unit bound to ctx or ErrUnitOfWorkMissing.
func Require(ctx context.Context) (UnitOfWork, error) {
	unit, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkMissing
	}
	return unit, nil
}

// BeginReadOnly reuses the unit already in ctx or opens a read-only one.
// The returned release func is never nil.
func BeginReadOnly(ctx context.Context, factory UoWFactory) (UnitOfWork, context.Context, func(), error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, func() {}, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, func() {}, err
	}
	execCtx := ContextWithUnitOfWork(ctx, unit)
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}
