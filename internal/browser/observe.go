package browser

import "errors"

var errEmptyPage = errors.New("source returned no page")

// Subscribe registers fn to be called with a fresh snapshot after every
// state change. Calls are serialized and ordered. fn must not block for long
// and must not call Subscribe or the returned cancel func. The returned func
// removes the subscription.
func (b *Browser) Subscribe(fn func(State)) func() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.nextObserver++
	id := b.nextObserver
	b.observers = append(b.observers, observer{id: id, fn: fn})

	return func() {
		b.notifyMu.Lock()
		defer b.notifyMu.Unlock()
		for i, o := range b.observers {
			if o.id == id {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// Watch returns a channel signaled after state changes, for event loops that
// must never block inside a callback. Bursts of changes coalesce into a
// single pending signal; the receiver reads the latest state with Snapshot.
func (b *Browser) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	cancel := b.Subscribe(func(State) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, cancel
}

// publish notifies observers. The snapshot is taken under notifyMu so
// observers never see states out of order.
func (b *Browser) publish() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if len(b.observers) == 0 {
		return
	}
	s := b.Snapshot()
	for _, o := range b.observers {
		o.fn(s)
	}
}
