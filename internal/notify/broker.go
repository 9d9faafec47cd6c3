package notify

import (
	"context"
	"sync"
)

const defaultBufferSize = 64

// Publisher is what the engine and reminder scheduler depend on.
type Publisher interface {
	Publish(n Notification)
}

// Broker fans notifications out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the notification.
type Broker struct {
	subs       map[chan Notification]struct{}
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
}

func NewBroker() *Broker {
	return NewBrokerWithBuffer(defaultBufferSize)
}

func NewBrokerWithBuffer(size int) *Broker {
	return &Broker{
		subs:       make(map[chan Notification]struct{}),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// Subscribe returns a channel that is closed when ctx ends or the broker closes.
func (b *Broker) Subscribe(ctx context.Context) <-chan Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Notification)
		close(ch)
		return ch
	default:
	}

	sub := make(chan Notification, b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}
		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

func (b *Broker) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	for sub := range b.subs {
		select {
		case sub <- n:
		default:
		}
	}
}

// Close shuts the broker down and closes every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
