//go:generate mockgen -package=sse -destination=mock.go -source=interfaces.go

// Package sse fans live updates out to connected browsers. Each auction
// gets a named channel; publishes travel through a redis stream so every
// instance broadcasts bids admitted anywhere.
package sse

// Envelope wraps a message with the channel it belongs to while it
// travels through the stream.
type Envelope[T any] struct {
	Channel string `json:"channel" msgpack:"channel"`
	Message T      `json:"message" msgpack:"message"`
}

// IChannel manages the subscribers of one topic.
type IChannel[T any] interface {
	// Subscribe registers a new subscriber and returns its receive channel.
	Subscribe() <-chan T
	// Unsubscribe removes and closes one subscriber.
	Unsubscribe(ch <-chan T)
	// UnsubscribeAll removes and closes every subscriber.
	UnsubscribeAll()
	// Broadcast delivers the message to every subscriber.
	Broadcast(message T)
	// IsIdle reports whether no subscribers remain.
	IsIdle() bool
}

// IManager routes published messages to channel subscribers across
// instances.
type IManager[T any] interface {
	// Start begins relaying messages. Call before anything else.
	Start()
	// Close stops the relay and drops every subscriber.
	Close()
	// Subscribe joins the named channel.
	Subscribe(channelName string) (<-chan T, error)
	// Publish pushes data to the named channel on every instance.
	Publish(channelName string, data T) error
	// Unsubscribe leaves the named channel.
	Unsubscribe(channelName string, ch <-chan T)
}
