package messaging

import "context"

// Broker publishes appointment events for sibling applications (CRM,
// reporting) that subscribe to the scheduling channel.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
