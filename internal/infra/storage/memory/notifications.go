package memory

import (
	"context"
	"sort"
	"strings"

	domainnotifications "motomarket/internal/domain/notifications"
	domainuser "motomarket/internal/domain/user"
)

type notificationRepo struct{ u *Unit }

func (r notificationRepo) Save(ctx context.Context, n *domainnotifications.Notification) error {
	if n == nil || strings.TrimSpace(string(n.ID)) == "" {
		return domainnotifications.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.notifications[n.ID]
		s.notifications[n.ID] = cloneNotification(n)
		return func() {
			if existed {
				s.notifications[n.ID] = prev
				return
			}
			delete(s.notifications, n.ID)
		}, nil
	})
}

func (r notificationRepo) ByID(ctx context.Context, id domainnotifications.ID) (*domainnotifications.Notification, error) {
	var out *domainnotifications.Notification
	err := r.u.read(func(s *Store) error {
		n, ok := s.notifications[id]
		if !ok {
			return domainnotifications.ErrNotFound
		}
		out = cloneNotification(n)
		return nil
	})
	return out, err
}

func (r notificationRepo) ListByRecipient(ctx context.Context, recipient domainuser.ID, params domainnotifications.ListParams) ([]*domainnotifications.Notification, error) {
	var out []*domainnotifications.Notification
	err := r.u.read(func(s *Store) error {
		for _, n := range s.notifications {
			if n.RecipientID != recipient {
				continue
			}
			if params.UnreadOnly && n.IsRead {
				continue
			}
			out = append(out, cloneNotification(n))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r notificationRepo) CountUnread(ctx context.Context, recipient domainuser.ID) (int, error) {
	var count int
	err := r.u.read(func(s *Store) error {
		for _, n := range s.notifications {
			if n.RecipientID == recipient && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r notificationRepo) MarkAllRead(ctx context.Context, recipient domainuser.ID) (int, error) {
	var changed int
	err := r.u.write(func(s *Store) (func(), error) {
		var flipped []*domainnotifications.Notification
		for _, n := range s.notifications {
			if n.RecipientID == recipient && !n.IsRead {
				n.IsRead = true
				flipped = append(flipped, n)
			}
		}
		changed = len(flipped)
		if changed == 0 {
			return nil, nil
		}
		return func() {
			for _, n := range flipped {
				n.IsRead = false
			}
		}, nil
	})
	return changed, err
}

var _ domainnotifications.Repository = notificationRepo{}
