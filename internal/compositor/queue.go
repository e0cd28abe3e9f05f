package compositor

import (
	"slices"
	"sync"

	"github.com/ItsNotGoodName/composer/internal/core"
)

// Queue collects inbound messages from any goroutine. Pushing never blocks the tick.
type Queue struct {
	mu   sync.Mutex
	msgs []Message
	wake chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Push appends msgs. A pointer update directly following an update of the same
// gesture replaces it, since updates carry absolute positions.
func (q *Queue) Push(msgs ...Message) {
	q.mu.Lock()
	for _, msg := range msgs {
		if update, ok := msg.(PointerUpdate); ok && len(q.msgs) > 0 {
			if last, ok := q.msgs[len(q.msgs)-1].(PointerUpdate); ok && last.Gesture == update.Gesture {
				q.msgs[len(q.msgs)-1] = update
				continue
			}
		}
		q.msgs = append(q.msgs, msg)
	}
	q.mu.Unlock()

	core.FlagChannel(q.wake)
}

// Drain removes and returns every queued message in arrival order.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	msgs := q.msgs
	q.msgs = nil
	q.mu.Unlock()
	return msgs
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Peek returns a copy of the queued messages.
func (q *Queue) Peek() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.msgs)
}

// Wake is signalled after every Push.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
