package memory

import (
	"context"
	"sync"
	"time"

	domainauth "motomarket/internal/domain/auth"
	domainuser "motomarket/internal/domain/user"
)

// SessionStore keeps login sessions in memory. Not suitable for production.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[domainauth.SessionID]*domainauth.Session
	userIndex map[domainuser.ID]map[domainauth.SessionID]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  make(map[domainauth.SessionID]*domainauth.Session),
		userIndex: make(map[domainuser.ID]map[domainauth.SessionID]struct{}),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.ID == "" {
		return domainauth.ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	if _, ok := s.userIndex[session.UserID]; !ok {
		s.userIndex[session.UserID] = make(map[domainauth.SessionID]struct{})
	}
	s.userIndex[session.UserID][session.ID] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id domainauth.SessionID) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, domainauth.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *SessionStore) Delete(ctx context.Context, id domainauth.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	if index, ok := s.userIndex[session.UserID]; ok {
		delete(index, id)
		if len(index) == 0 {
			delete(s.userIndex, session.UserID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.userIndex[userID] {
		delete(s.sessions, id)
	}
	delete(s.userIndex, userID)
	return nil
}

func cloneSession(s *domainauth.Session) *domainauth.Session {
	copySession := *s
	copySession.Roles = append([]domainuser.Role(nil), s.Roles...)
	return &copySession
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
