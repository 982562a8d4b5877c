package listings

import "time"

const (
	EventPublished = "listings.published"
	EventUpdated   = "listings.updated"
	EventSold      = "listings.sold"
	EventRemoved   = "listings.removed"
)

type ListingPublishedEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingPublishedEvent) EventName() string     { return EventPublished }
func (e ListingPublishedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingPublishedEvent) OccurredAt() time.Time { return e.At }

type ListingUpdatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingUpdatedEvent) EventName() string     { return EventUpdated }
func (e ListingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdatedEvent) OccurredAt() time.Time { return e.At }

type ListingSoldEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingSoldEvent) EventName() string     { return EventSold }
func (e ListingSoldEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSoldEvent) OccurredAt() time.Time { return e.At }

type ListingRemovedEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingRemovedEvent) EventName() string     { return EventRemoved }
func (e ListingRemovedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingRemovedEvent) OccurredAt() time.Time { return e.At }
