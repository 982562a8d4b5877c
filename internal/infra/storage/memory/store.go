package memory

import (
	"sync"

	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

// Store holds every aggregate of the marketplace in process memory. It backs
// demo runs and tests; repositories reach it through a Unit.
type Store struct {
	mu sync.RWMutex

	users         map[domainuser.ID]*domainuser.User
	emails        map[string]domainuser.ID
	listings      map[domainlistings.ListingID]*domainlistings.Listing
	conversations map[domainmessaging.ConversationID]*domainmessaging.Conversation
	messages      map[domainmessaging.ConversationID][]*domainmessaging.Message
	notifications map[domainnotifications.ID]*domainnotifications.Notification
	favorites     map[domainuser.ID]map[domainlistings.ListingID]domainfavorites.Favorite
	savedSearches map[domainsavedsearch.ID]*domainsavedsearch.SavedSearch
}

func NewStore() *Store {
	return &Store{
		users:         make(map[domainuser.ID]*domainuser.User),
		emails:        make(map[string]domainuser.ID),
		listings:      make(map[domainlistings.ListingID]*domainlistings.Listing),
		conversations: make(map[domainmessaging.ConversationID]*domainmessaging.Conversation),
		messages:      make(map[domainmessaging.ConversationID][]*domainmessaging.Message),
		notifications: make(map[domainnotifications.ID]*domainnotifications.Notification),
		favorites:     make(map[domainuser.ID]map[domainlistings.ListingID]domainfavorites.Favorite),
		savedSearches: make(map[domainsavedsearch.ID]*domainsavedsearch.SavedSearch),
	}
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	copyUser := *u
	copyUser.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &copyUser
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	copyListing := *l
	copyListing.Photos = append([]string(nil), l.Photos...)
	copyListing.ClearEvents()
	return &copyListing
}

func cloneConversation(c *domainmessaging.Conversation) *domainmessaging.Conversation {
	if c == nil {
		return nil
	}
	copyConv := *c
	copyConv.Unread = make(map[domainuser.ID]int, len(c.Unread))
	for id, n := range c.Unread {
		copyConv.Unread[id] = n
	}
	copyConv.ClearEvents()
	return &copyConv
}

func cloneMessage(m *domainmessaging.Message) *domainmessaging.Message {
	if m == nil {
		return nil
	}
	copyMsg := *m
	return &copyMsg
}

func cloneNotification(n *domainnotifications.Notification) *domainnotifications.Notification {
	if n == nil {
		return nil
	}
	copyNote := *n
	if n.Actor != nil {
		actor := *n.Actor
		copyNote.Actor = &actor
	}
	copyNote.ClearEvents()
	return &copyNote
}

func cloneSavedSearch(s *domainsavedsearch.SavedSearch) *domainsavedsearch.SavedSearch {
	if s == nil {
		return nil
	}
	copySearch := *s
	return &copySearch
}
