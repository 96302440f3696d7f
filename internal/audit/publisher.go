package audit

import "context"

// EventStore is the append side of an audit trail store.
type EventStore interface {
	Append(ctx context.Context, event Event) error
}

// StorePublisher adapts an EventStore to the publisher interface services
// expect. Events appended inside a service transaction ride the tx in the
// context, so a rolled-back transition leaves no trail entry.
type StorePublisher struct {
	store EventStore
}

func NewStorePublisher(store EventStore) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, event)
}
