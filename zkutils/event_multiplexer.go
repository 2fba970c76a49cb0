package zkutils

import (
	"sync"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/samuel/go-zookeeper/zk"
)

var (
	eventMultiplexerSubscriberBuffer = 16
)

// Event multiplexer.
//
// Fans the session events of a single connection out to any number of
// subscribers. A subscriber whose buffer is full is dropped and its channel
// closed, so that it cannot miss an event unknowingly.
type EventMultiplexer struct {
	in   <-chan zk.Event
	outs []chan zk.Event
	done bool
	lock sync.Mutex
}

// New event multiplexer.
func NewEventMultiplexer(eventChan <-chan zk.Event) *EventMultiplexer {
	m := &EventMultiplexer{
		in:   eventChan,
		outs: make([]chan zk.Event, 0),
	}

	go m.run()

	return m
}

func (m *EventMultiplexer) run() {
	for ev := range m.in {
		m.lock.Lock()

		kept := m.outs[:0]
		for _, out := range m.outs {
			select {
			case out <- ev:
				kept = append(kept, out)
			default:
				log.Warn("Dropping slow ZooKeeper event subscriber")
				close(out)
			}
		}
		m.outs = kept

		m.lock.Unlock()
	}

	m.lock.Lock()
	for _, out := range m.outs {
		close(out)
	}
	m.outs = nil
	m.done = true
	m.lock.Unlock()
}

// Subscribe to events.
//
// Subscribing after the underlying event channel has been closed yields a
// closed channel.
func (m *EventMultiplexer) Subscribe() <-chan zk.Event {
	ec := make(chan zk.Event, eventMultiplexerSubscriberBuffer)

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.done {
		close(ec)
	} else {
		m.outs = append(m.outs, ec)
	}

	return ec
}

// Unsubscribe from events.
//
// Closes the channel, unless it has already been closed.
func (m *EventMultiplexer) Unsubscribe(ch <-chan zk.Event) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i, out := range m.outs {
		if out == ch {
			close(out)
			m.outs = append(m.outs[:i], m.outs[i+1:]...)
			return
		}
	}
}
