package playback

import "sync"

// envelope is a unit of work for the engine goroutine. seq is the order in
// which it was posted.
type envelope struct {
	seq uint64
	run func(seq uint64)
}

// mailbox is an unbounded FIFO feeding the engine goroutine. Posting never
// blocks, so device callbacks can use it from any goroutine.
type mailbox struct {
	mu     sync.Mutex
	queue  []envelope
	seq    uint64
	closed bool
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// post queues fn and reports whether the mailbox accepted it
func (m *mailbox) post(fn func(seq uint64)) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.seq++
	m.queue = append(m.queue, envelope{seq: m.seq, run: fn})
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// lastSeq returns the sequence number of the most recently posted envelope
func (m *mailbox) lastSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// take removes every queued envelope. done is true once the mailbox is
// closed and empty.
func (m *mailbox) take() (batch []envelope, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, m.queue = m.queue, nil
	return batch, m.closed && len(batch) == 0
}

// close rejects further posts. Already queued envelopes are still delivered.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}
