package policies

import "context"

// Notifier pushes a realtime event to every live connection of a user.
// Delivery is best effort; offline users simply miss the push.
type Notifier interface {
	Send(ctx context.Context, to string, kind string, data any) error
}

type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, string, string, any) error { return nil }
