package utils

import "sync"

type Subscription[T interface{}] struct {
	channel    chan T
	blocking   bool
	dispatcher *Dispatcher[T]
	closed     chan struct{}
	closeOnce  sync.Once
}

type Dispatcher[T interface{}] struct {
	mutex         sync.Mutex
	subscriptions []*Subscription[T]
}

func (d *Dispatcher[T]) Subscribe(capacity int, blocking bool) *Subscription[T] {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	subscription := &Subscription[T]{
		channel:    make(chan T, capacity),
		blocking:   blocking,
		dispatcher: d,
		closed:     make(chan struct{}),
	}
	d.subscriptions = append(d.subscriptions, subscription)

	return subscription
}

func (s *Subscription[T]) Unsubscribe() {
	// releases a Fire blocked on this subscription before taking the dispatcher lock
	s.closeOnce.Do(func() {
		close(s.closed)
	})

	d := s.dispatcher
	if d == nil {
		return
	}

	d.Unsubscribe(s)
}

func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

func (d *Dispatcher[T]) Unsubscribe(subscription *Subscription[T]) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if subscription.dispatcher != d {
		return
	}

	count := len(d.subscriptions)

	for i, s := range d.subscriptions {
		if s == subscription {
			if i < count-1 {
				d.subscriptions[i] = d.subscriptions[count-1]
			}

			d.subscriptions[count-1] = nil
			d.subscriptions = d.subscriptions[:count-1]
			subscription.dispatcher = nil

			return
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (d *Dispatcher[T]) SubscriberCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return len(d.subscriptions)
}

// Fire delivers data to all subscriptions and returns the number of non-blocking subscriptions that dropped it
func (d *Dispatcher[T]) Fire(data T) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	dropped := 0
	for _, s := range d.subscriptions {
		if s.blocking {
			select {
			case s.channel <- data:
			case <-s.closed:
			}
		} else {
			select {
			case s.channel <- data:
			default:
				dropped++
			}
		}
	}

	return dropped
}
