package memory

import (
	"context"
	"sort"
	"strings"

	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

type conversationRepo struct{ u *Unit }

func (r conversationRepo) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	var out *domainmessaging.Conversation
	err := r.u.read(func(s *Store) error {
		conv, ok := s.conversations[id]
		if !ok {
			return domainmessaging.ErrConversationNotFound
		}
		out = cloneConversation(conv)
		return nil
	})
	return out, err
}

func (r conversationRepo) FindByParticipants(ctx context.Context, a, b domainuser.ID, listing domainlistings.ListingID) (*domainmessaging.Conversation, error) {
	var out *domainmessaging.Conversation
	err := r.u.read(func(s *Store) error {
		conv := s.findPair(a, b, listing)
		if conv == nil {
			return domainmessaging.ErrConversationNotFound
		}
		out = cloneConversation(conv)
		return nil
	})
	return out, err
}

// ListByParticipant returns the user's threads, most recent activity first.
func (r conversationRepo) ListByParticipant(ctx context.Context, participant domainuser.ID) ([]*domainmessaging.Conversation, error) {
	var out []*domainmessaging.Conversation
	err := r.u.read(func(s *Store) error {
		for _, conv := range s.conversations {
			if conv.HasParticipant(participant) {
				out = append(out, cloneConversation(conv))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r conversationRepo) Create(ctx context.Context, conv *domainmessaging.Conversation) error {
	if conv == nil || strings.TrimSpace(string(conv.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		if _, ok := s.conversations[conv.ID]; ok {
			return nil, domainmessaging.ErrConversationExists
		}
		if s.findPair(conv.Participants[0], conv.Participants[1], conv.ListingID) != nil {
			return nil, domainmessaging.ErrConversationExists
		}
		s.conversations[conv.ID] = cloneConversation(conv)
		return func() { delete(s.conversations, conv.ID) }, nil
	})
}

func (r conversationRepo) Save(ctx context.Context, conv *domainmessaging.Conversation) error {
	if conv == nil || strings.TrimSpace(string(conv.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.conversations[conv.ID]
		if !ok {
			return nil, domainmessaging.ErrConversationNotFound
		}
		s.conversations[conv.ID] = cloneConversation(conv)
		return func() { s.conversations[conv.ID] = prev }, nil
	})
}

// findPair must be called with s.mu held.
func (s *Store) findPair(a, b domainuser.ID, listing domainlistings.ListingID) *domainmessaging.Conversation {
	lo, hi := domainmessaging.OrderedPair(a, b)
	for _, conv := range s.conversations {
		if conv.ListingID != listing {
			continue
		}
		cl, ch := domainmessaging.OrderedPair(conv.Participants[0], conv.Participants[1])
		if cl == lo && ch == hi {
			return conv
		}
	}
	return nil
}

type messageRepo struct{ u *Unit }

func (r messageRepo) Append(ctx context.Context, msg *domainmessaging.Message) error {
	if msg == nil || strings.TrimSpace(string(msg.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		if _, ok := s.conversations[msg.ConversationID]; !ok {
			return nil, domainmessaging.ErrConversationNotFound
		}
		s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], cloneMessage(msg))
		return func() {
			thread := s.messages[msg.ConversationID]
			for i := len(thread) - 1; i >= 0; i-- {
				if thread[i].ID == msg.ID {
					s.messages[msg.ConversationID] = append(thread[:i:i], thread[i+1:]...)
					return
				}
			}
		}, nil
	})
}

func (r messageRepo) ListByConversation(ctx context.Context, id domainmessaging.ConversationID, page domainmessaging.MessagePage) ([]*domainmessaging.Message, error) {
	var out []*domainmessaging.Message
	err := r.u.read(func(s *Store) error {
		thread := s.messages[id]
		if page.BeforeID != "" {
			cut := 0
			for i, msg := range thread {
				if msg.ID == page.BeforeID {
					cut = i
					break
				}
			}
			thread = thread[:cut]
		}
		for _, msg := range thread {
			if !page.Before.IsZero() && !msg.SentAt.Before(page.Before) {
				continue
			}
			out = append(out, cloneMessage(msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[len(out)-page.Limit:]
	}
	return out, nil
}

func (r messageRepo) MarkRead(ctx context.Context, id domainmessaging.ConversationID, reader domainuser.ID) (int, error) {
	var changed int
	err := r.u.write(func(s *Store) (func(), error) {
		var flipped []*domainmessaging.Message
		for _, msg := range s.messages[id] {
			if msg.SenderID != reader && !msg.IsRead {
				msg.IsRead = true
				flipped = append(flipped, msg)
			}
		}
		changed = len(flipped)
		if changed == 0 {
			return nil, nil
		}
		return func() {
			for _, msg := range flipped {
				msg.IsRead = false
			}
		}, nil
	})
	return changed, err
}

func (r messageRepo) CountUnread(ctx context.Context, id domainmessaging.ConversationID, reader domainuser.ID) (int, error) {
	var count int
	err := r.u.read(func(s *Store) error {
		for _, msg := range s.messages[id] {
			if msg.SenderID != reader && !msg.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

var (
	_ domainmessaging.ConversationRepository = conversationRepo{}
	_ domainmessaging.MessageRepository      = messageRepo{}
)
