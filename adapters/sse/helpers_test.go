package sse_test

import (
	"io"
	"log"
	"sync"

	"remate/adapters/sse"
)

func init() {
	log.SetOutput(io.Discard)
}

// bidMessage is the kind of payload the platform relays: one admitted
// bid on its way to the browsers watching the auction.
type bidMessage struct {
	Horse  int    `json:"horse" msgpack:"horse"`
	Amount string `json:"amount" msgpack:"amount"`
}

// loopbackBroker feeds published envelopes straight back to the
// subscriber channel, standing in for the redis stream.
type loopbackBroker struct {
	mu     sync.Mutex
	out    chan sse.Envelope[bidMessage]
	closed bool
}

func newLoopbackBroker() *loopbackBroker {
	return &loopbackBroker{out: make(chan sse.Envelope[bidMessage], 16)}
}

func (b *loopbackBroker) Start() {}

func (b *loopbackBroker) Publish(envelope sse.Envelope[bidMessage]) error {
	b.out <- envelope
	return nil
}

func (b *loopbackBroker) Subscribe() <-chan sse.Envelope[bidMessage] {
	return b.out
}

func (b *loopbackBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.out)
}
