package memory

import (
	"context"
	"strings"

	domainuser "motomarket/internal/domain/user"
)

type userRepo struct{ u *Unit }

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var out *domainuser.User
	err := r.u.read(func(s *Store) error {
		user, ok := s.users[id]
		if !ok {
			return domainuser.ErrNotFound
		}
		out = cloneUser(user)
		return nil
	})
	return out, err
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var out *domainuser.User
	err := r.u.read(func(s *Store) error {
		id, ok := s.emails[domainuser.NormalizeEmail(email)]
		if !ok {
			return domainuser.ErrNotFound
		}
		user, ok := s.users[id]
		if !ok {
			return domainuser.ErrNotFound
		}
		out = cloneUser(user)
		return nil
	})
	return out, err
}

func (r userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	emailKey := domainuser.NormalizeEmail(user.Email)
	if emailKey == "" {
		return domainuser.ErrEmailRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		if existingID, ok := s.emails[emailKey]; ok && existingID != user.ID {
			return nil, domainuser.ErrEmailAlreadyUsed
		}
		prev, existed := s.users[user.ID]
		s.users[user.ID] = cloneUser(user)
		s.emails[emailKey] = user.ID
		if existed && domainuser.NormalizeEmail(prev.Email) != emailKey {
			delete(s.emails, domainuser.NormalizeEmail(prev.Email))
		}
		return func() {
			delete(s.emails, emailKey)
			if existed {
				s.users[user.ID] = prev
				s.emails[domainuser.NormalizeEmail(prev.Email)] = prev.ID
				return
			}
			delete(s.users, user.ID)
		}, nil
	})
}

var _ domainuser.Repository = userRepo{}
