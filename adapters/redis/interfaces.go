//go:generate mockgen -package=redis -destination=mock.go -source=interfaces.go

// Package redis carries the cross-instance plumbing of the platform: the
// stream producer and consumer that fan admitted bids out to every
// instance, and the auto-renewing distributed mutex that serializes bid
// admission per horse.
package redis

import (
	"context"
)

// IProducer publishes messages onto a stream.
type IProducer[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// IConsumer tails a stream and hands parsed messages downstream.
type IConsumer[T any] interface {
	Start()
	Subscribe() <-chan T
	Close()
}

// IAutoRenewMutex is a distributed lock that keeps itself alive until
// unlocked.
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}
