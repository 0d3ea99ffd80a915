package events

import (
	"context"
	"sync"
	"time"
)

// Event types published on the order lifecycle channel
const (
	TypeNewOrder          = "newOrder"
	TypeOrderCancelled    = "orderCancelled"
	TypeOrderStatusUpdate = "orderStatusUpdate"
)

// Event is one order lifecycle notification
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Customer   string    `json:"customer"`
	TotalPrice float64   `json:"totalPrice"`
	At         time.Time `json:"at"`
}

// Bus fans order lifecycle events out to operational consumers
type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a receive channel and a cancel function that must
	// be called when the consumer goes away.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// MemoryBus is an in-process Bus used in tests and single-node setups
type MemoryBus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]chan Event)}
}

func (b *MemoryBus) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Slow consumer; drop rather than block publishers
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}

	return ch, cancel, nil
}
