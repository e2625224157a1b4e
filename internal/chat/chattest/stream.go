package chattest

import (
	"context"
	"io"
	"sync"

	"github.com/wesleyorama2/chatload/internal/chat"
)

// Stream is an unbounded in-memory chat.EventStream. Tests can build one with
// NewStream and drive it with Push and End.
type Stream struct {
	mu      sync.Mutex
	queue   []chat.Event
	err     error
	closed  bool
	notify  chan struct{}
	onClose func()
}

// NewStream creates an open stream with no events.
func NewStream() *Stream {
	return &Stream{notify: make(chan struct{}, 1)}
}

// Push appends an event. It is a no-op once the stream has ended.
func (st *Stream) Push(ev chat.Event) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err != nil || st.closed {
		return
	}
	st.queue = append(st.queue, ev)
	st.signal()
}

// End terminates the stream after queued events. A nil err ends it with io.EOF.
func (st *Stream) End(err error) {
	if err == nil {
		err = io.EOF
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.err == nil {
		st.err = err
	}
	st.signal()
}

func (st *Stream) signal() {
	select {
	case st.notify <- struct{}{}:
	default:
	}
}

// Next implements chat.EventStream.
func (st *Stream) Next(ctx context.Context) (chat.Event, error) {
	for {
		st.mu.Lock()
		if st.closed {
			st.mu.Unlock()
			return chat.Event{}, io.EOF
		}
		if len(st.queue) > 0 {
			ev := st.queue[0]
			st.queue = st.queue[1:]
			st.mu.Unlock()
			return ev, nil
		}
		if st.err != nil {
			err := st.err
			st.mu.Unlock()
			return chat.Event{}, err
		}
		st.mu.Unlock()

		select {
		case <-ctx.Done():
			return chat.Event{}, ctx.Err()
		case <-st.notify:
		}
	}
}

// Close implements chat.EventStream.
func (st *Stream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	st.queue = nil
	onClose := st.onClose
	st.signal()
	st.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

// Closed reports whether Close was called.
func (st *Stream) Closed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

var _ chat.EventStream = (*Stream)(nil)
