package notify

import (
	"context"
	"sync"
)

// MemoryPublisher records published events in memory. Used by unit and
// handler tests in place of the Kafka publisher.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []RegistrationSubmitted
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishRegistrationSubmitted(_ context.Context, event RegistrationSubmitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []RegistrationSubmitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RegistrationSubmitted{}, p.events...)
}
