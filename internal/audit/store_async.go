package audit

import "context"

// AsyncStore decouples audit writes from the request path. Append drops the
// event onto a bounded inbox and a Worker drains it into the inner store.
// When the inbox is full the event is dropped; audit is best-effort and must
// never stall authentication.
type AsyncStore struct {
	inner Store
	inbox chan Event
}

func NewAsyncStore(inner Store, buffer int) *AsyncStore {
	return &AsyncStore{
		inner: inner,
		inbox: make(chan Event, buffer),
	}
}

func (s *AsyncStore) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
	default:
	}
	return nil
}

func (s *AsyncStore) ListByNation(ctx context.Context, nationID string) ([]Event, error) {
	return s.inner.ListByNation(ctx, nationID)
}

// Worker returns the consumer that drains the inbox into the inner store.
// Exactly one worker should run per AsyncStore.
func (s *AsyncStore) Worker() *Worker {
	return NewWorker(s.inner, s.inbox)
}
