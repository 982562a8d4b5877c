package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"motomarket/internal/app/uow"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

// Begin opens a sql.Tx and binds every repository to it.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	txOpts := &sql.TxOptions{}
	if opts.ReadOnly && s.dialect == dialectPostgres {
		txOpts.ReadOnly = true
	}
	tx, err := s.db.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Unit{tx: tx, r: s.runner(tx), lockRows: s.lockRows(opts)}, nil
}

// lockRows reports whether a unit reads conversations FOR UPDATE. Postgres
// runs at READ COMMITTED; SQLite already holds the database write lock from
// BEGIN IMMEDIATE.
func (s *Store) lockRows(opts uow.TxOptions) bool {
	return !opts.ReadOnly && s.dialect == dialectPostgres
}

type Unit struct {
	tx       *sql.Tx
	r        runner
	lockRows bool
}

func (u *Unit) Users() domainuser.Repository                          { return userRepo{u.r} }
func (u *Unit) Listings() domainlistings.Repository                   { return listingRepo{u.r} }
func (u *Unit) Conversations() domainmessaging.ConversationRepository { return conversationRepo{u.r, u.lockRows} }
func (u *Unit) Messages() domainmessaging.MessageRepository           { return messageRepo{u.r} }
func (u *Unit) Notifications() domainnotifications.Repository         { return notificationRepo{u.r} }
func (u *Unit) Favorites() domainfavorites.Repository                 { return favoriteRepo{u.r} }
func (u *Unit) SavedSearches() domainsavedsearch.Repository           { return savedSearchRepo{u.r} }

func (u *Unit) Commit(ctx context.Context) error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
