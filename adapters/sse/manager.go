package sse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"remate/adapters/redis"
)

// manager routes envelopes between the stream and local channel
// subscribers. Publishing goes up through the producer so every
// instance, this one included, receives the message through its
// consumer and broadcasts it locally.
type manager[T any] struct {
	logger *slog.Logger

	mu     sync.RWMutex
	wg     sync.WaitGroup
	active bool

	producer redis.IProducer[Envelope[T]]
	consumer redis.IConsumer[Envelope[T]]
	channels map[string]IChannel[T]
}

// NewManager builds a manager over an existing producer and consumer
// pair. Both must speak Envelope[T].
func NewManager[T any](producer redis.IProducer[Envelope[T]], consumer redis.IConsumer[Envelope[T]], logger *slog.Logger) IManager[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &manager[T]{
		logger:   logger.With(slog.String("caller", "sse.Manager")),
		producer: producer,
		consumer: consumer,
		channels: make(map[string]IChannel[T]),
		active:   true,
	}
}

// NewRedisManager wires a manager to a redis stream.
func NewRedisManager[T any](client *goredis.Client, stream string, logger *slog.Logger) (IManager[T], error) {
	producer, err := redis.NewProducer[Envelope[T]](client, stream)
	if err != nil {
		return nil, fmt.Errorf("build stream producer: %w", err)
	}
	consumer, err := redis.NewConsumer[Envelope[T]](client, stream)
	if err != nil {
		return nil, fmt.Errorf("build stream consumer: %w", err)
	}
	return NewManager[T](producer, consumer, logger), nil
}

// Start begins relaying stream messages into local channels.
func (m *manager[T]) Start() {
	m.producer.Start()
	m.consumer.Start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for envelope := range m.consumer.Subscribe() {
			m.mu.RLock()
			if channel, ok := m.channels[envelope.Channel]; ok {
				channel.Broadcast(envelope.Message)
			}
			m.mu.RUnlock()
		}
	}()
}

// Close stops the relay and drops every subscriber.
func (m *manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}

	m.active = false
	m.producer.Close()
	m.consumer.Close()
	m.wg.Wait()
	for _, channel := range m.channels {
		channel.UnsubscribeAll()
	}
	clear(m.channels)
}

// Subscribe joins the named channel, creating it on first use.
func (m *manager[T]) Subscribe(channelName string) (<-chan T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil, context.Canceled
	}

	c, ok := m.channels[channelName]
	if !ok {
		c = NewChannel[T]()
		m.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

// Publish pushes data onto the stream for the named channel.
func (m *manager[T]) Publish(channelName string, data T) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.active {
		return context.Canceled
	}

	return m.producer.Publish(Envelope[T]{
		Channel: channelName,
		Message: data,
	})
}

// Unsubscribe leaves the named channel, dropping it once idle.
func (m *manager[T]) Unsubscribe(channelName string, ch <-chan T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(m.channels, channelName)
	}
}
