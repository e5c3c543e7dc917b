package worker

// ErrorQueueCapacity is the number of user-visible errors kept at once.
const ErrorQueueCapacity = 3

// ErrorQueue is a bounded FIFO of error messages. Once full, new messages
// are dropped and the oldest ones stay visible.
// It is not safe for concurrent use; State guards it.
type ErrorQueue struct {
	items    []string
	capacity int
}

func NewErrorQueue(capacity int) *ErrorQueue {
	return &ErrorQueue{items: make([]string, 0, capacity), capacity: capacity}
}

// Push appends msg and reports whether it was kept.
func (q *ErrorQueue) Push(msg string) bool {
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, msg)
	return true
}

// Peek returns the oldest message.
func (q *ErrorQueue) Peek() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	return q.items[0], true
}

// Pop removes and returns the oldest message.
func (q *ErrorQueue) Pop() (string, bool) {
	msg, ok := q.Peek()
	if ok {
		q.items = q.items[1:]
	}
	return msg, ok
}

func (q *ErrorQueue) Len() int { return len(q.items) }
