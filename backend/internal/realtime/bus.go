package realtime

import (
	"context"
	"slices"
	"sync"
)

// Bus carries retained values: a new subscriber first receives the last
// value published on its topic, then every later one.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, fn func(payload []byte)) (unsubscribe func(), err error)
}

// MemoryBus is an in-process Bus with retained semantics.
// Delivery is synchronous and ordered per topic; callbacks must not call back into the bus.
type MemoryBus struct {
	mu       sync.Mutex
	nextID   int
	retained map[string][]byte
	subs     map[string]map[int]func([]byte)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		retained: map[string][]byte{},
		subs:     map[string]map[int]func([]byte){},
	}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.retained[topic] = slices.Clone(payload)

	for _, fn := range b.subs[topic] {
		fn(slices.Clone(payload))
	}

	return nil
}

func (b *MemoryBus) Subscribe(topic string, fn func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.subs[topic] == nil {
		b.subs[topic] = map[int]func([]byte){}
	}

	b.subs[topic][id] = fn

	if v, ok := b.retained[topic]; ok {
		fn(slices.Clone(v))
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subs[topic], id)
		})
	}, nil
}
