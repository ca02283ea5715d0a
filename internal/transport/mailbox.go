package transport

import "sync"

// mailbox is an unbounded FIFO in front of the Events channel. Producers never block,
// even while holding the transport lock, and consumers see events in push order.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	out    chan Event
	done   chan struct{}
	once   sync.Once
}

func newMailbox() *mailbox {
	m := &mailbox{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
		done:   make(chan struct{}),
	}
	go m.pump()
	return m
}

func (m *mailbox) push(ev Event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) pump() {
	defer close(m.out)
	for {
		select {
		case <-m.notify:
		case <-m.done:
			return
		}

		for {
			m.mu.Lock()
			if len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			ev := m.queue[0]
			m.queue[0] = Event{}
			m.queue = m.queue[1:]
			m.mu.Unlock()

			select {
			case m.out <- ev:
			case <-m.done:
				return
			}
		}
	}
}

func (m *mailbox) close() {
	m.once.Do(func() { close(m.done) })
}
