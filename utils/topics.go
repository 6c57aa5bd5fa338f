package utils

import "sync"

// TopicDispatcher is a typed publish/subscribe registry that routes events to the handlers of one topic.
// Handlers are called synchronously by Publish, outside of the registry lock.
type TopicDispatcher[K comparable, T any] struct {
	mutex  sync.RWMutex
	topics map[K]map[*TopicSubscription[K, T]]func(T)
}

type TopicSubscription[K comparable, T any] struct {
	topic      K
	dispatcher *TopicDispatcher[K, T]
	once       sync.Once
}

func NewTopicDispatcher[K comparable, T any]() *TopicDispatcher[K, T] {
	return &TopicDispatcher[K, T]{
		topics: map[K]map[*TopicSubscription[K, T]]func(T){},
	}
}

// Subscribe registers handler for topic. Every call creates a distinct subscription, even for the same handler.
func (d *TopicDispatcher[K, T]) Subscribe(topic K, handler func(T)) *TopicSubscription[K, T] {
	subscription := &TopicSubscription[K, T]{
		topic:      topic,
		dispatcher: d,
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	handlers := d.topics[topic]
	if handlers == nil {
		handlers = map[*TopicSubscription[K, T]]func(T){}
		d.topics[topic] = handlers
	}
	handlers[subscription] = handler

	return subscription
}

// Topic returns the topic the subscription is registered for
func (s *TopicSubscription[K, T]) Topic() K {
	return s.topic
}

// Unsubscribe removes the subscription. Safe to call multiple times.
func (s *TopicSubscription[K, T]) Unsubscribe() {
	s.once.Do(func() {
		s.dispatcher.remove(s)
	})
}

func (d *TopicDispatcher[K, T]) remove(subscription *TopicSubscription[K, T]) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	handlers := d.topics[subscription.topic]
	if handlers == nil {
		return
	}

	delete(handlers, subscription)
	if len(handlers) == 0 {
		delete(d.topics, subscription.topic)
	}
}

// Publish calls all handlers registered for topic and returns how many were called
func (d *TopicDispatcher[K, T]) Publish(topic K, event T) int {
	d.mutex.RLock()
	handlers := make([]func(T), 0, len(d.topics[topic]))
	for _, handler := range d.topics[topic] {
		handlers = append(handlers, handler)
	}
	d.mutex.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}

	return len(handlers)
}

// HasTopic returns true if at least one handler is registered for topic
func (d *TopicDispatcher[K, T]) HasTopic(topic K) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.topics[topic]) > 0
}

func (d *TopicDispatcher[K, T]) TopicCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.topics)
}

func (d *TopicDispatcher[K, T]) HandlerCount(topic K) int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.topics[topic])
}
