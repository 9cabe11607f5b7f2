package search

import (
	"context"

	"helplink/domain/event"
)

// Sink feeds the index from the event fanout. Indexing lag only affects
// search results, never message durability.
type Sink struct {
	index *Index
}

func NewSink(index *Index) *Sink {
	return &Sink{index: index}
}

func (s *Sink) Consume(_ context.Context, e event.DomainEvent) error {
	if posted, ok := e.(event.MessagePosted); ok {
		return s.index.Add(posted.Message)
	}
	return nil
}
