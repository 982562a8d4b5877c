package memory

import (
	"context"
	"errors"
	"sync"

	"motomarket/internal/app/uow"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnly             = errors.New("memory: write in read-only unit of work")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory opens units over a shared Store. Writing units are serialized so a
// rollback can undo its own changes without clobbering a concurrent writer.
type Factory struct {
	Store *Store

	writeMu sync.Mutex
}

func NewFactory(store *Store) *Factory {
	return &Factory{Store: store}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	unit := &Unit{store: f.Store, readOnly: opts.ReadOnly}
	if !opts.ReadOnly {
		f.writeMu.Lock()
		unit.release = f.writeMu.Unlock
	}
	return unit, nil
}

// Users returns a repository that writes straight to the store outside of
// any unit of work. The auth service uses it for registration and login.
func (f *Factory) Users() domainuser.Repository {
	return userRepo{&Unit{store: f.Store, autocommit: true}}
}

// Unit journals an undo step for every write and replays the journal in
// reverse on Rollback.
type Unit struct {
	store      *Store
	readOnly   bool
	autocommit bool

	mu      sync.Mutex
	undo    []func()
	done    bool
	release func()
}

func (u *Unit) Users() domainuser.Repository                          { return userRepo{u} }
func (u *Unit) Listings() domainlistings.Repository                   { return listingRepo{u} }
func (u *Unit) Conversations() domainmessaging.ConversationRepository { return conversationRepo{u} }
func (u *Unit) Messages() domainmessaging.MessageRepository           { return messageRepo{u} }
func (u *Unit) Notifications() domainnotifications.Repository         { return notificationRepo{u} }
func (u *Unit) Favorites() domainfavorites.Repository                 { return favoriteRepo{u} }
func (u *Unit) SavedSearches() domainsavedsearch.Repository           { return savedSearchRepo{u} }

func (u *Unit) Commit(ctx context.Context) error {
	return u.finish(false)
}

func (u *Unit) Rollback(ctx context.Context) error {
	return u.finish(true)
}

func (u *Unit) finish(rollback bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		if rollback {
			return nil
		}
		return ErrUnitClosed
	}
	u.done = true
	if rollback && len(u.undo) > 0 {
		u.store.mu.Lock()
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
		u.store.mu.Unlock()
	}
	u.undo = nil
	if u.release != nil {
		u.release()
		u.release = nil
	}
	return nil
}

// write runs fn under the store lock. fn returns the undo step for its change
// or nil when nothing changed.
func (u *Unit) write(fn func(s *Store) (func(), error)) error {
	if u.readOnly {
		return ErrReadOnly
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.store.mu.Lock()
	undo, err := fn(u.store)
	u.store.mu.Unlock()
	if err != nil {
		return err
	}
	if undo != nil && !u.autocommit {
		u.undo = append(u.undo, undo)
	}
	return nil
}

func (u *Unit) read(fn func(s *Store) error) error {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return fn(u.store)
}

var (
	_ uow.UoWFactory = (*Factory)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
