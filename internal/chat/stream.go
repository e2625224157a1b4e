package chat

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

type subscribeFrame struct {
	Type   string   `json:"type"`
	Guilds []uint64 `json:"guilds"`
}

type eventFrame struct {
	Type    string `json:"type"`
	GuildID uint64 `json:"guild_id"`
	Error   string `json:"error,omitempty"`
}

type streamItem struct {
	event Event
	err   error
}

// socketStream pumps frames from a WebSocket into a channel so that Next can
// select on ctx as well as on the socket.
type socketStream struct {
	conn  *websocket.Conn
	items chan streamItem
	done  chan struct{}
	once  sync.Once
}

func newSocketStream(conn *websocket.Conn) *socketStream {
	s := &socketStream{
		conn:  conn,
		items: make(chan streamItem, 64),
		done:  make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *socketStream) pump() {
	defer close(s.items)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.emit(streamItem{err: translateReadError(err)})
			return
		}

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.emit(streamItem{err: &StreamError{Err: err}})
			return
		}
		if frame.Type == "error" {
			s.emit(streamItem{err: &StreamError{Message: frame.Error}})
			return
		}

		if !s.emit(streamItem{event: Event{Type: frame.Type, GuildID: frame.GuildID, Payload: data}}) {
			return
		}
	}
}

func (s *socketStream) emit(item streamItem) bool {
	select {
	case s.items <- item:
		return true
	case <-s.done:
		return false
	}
}

// Next returns the next event.
func (s *socketStream) Next(ctx context.Context) (Event, error) {
	select {
	case <-s.done:
		return Event{}, io.EOF
	default:
	}

	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-s.done:
		return Event{}, io.EOF
	case item, ok := <-s.items:
		if !ok {
			return Event{}, io.EOF
		}
		return item.event, item.err
	}
}

// Close closes the socket. It is safe to call more than once.
func (s *socketStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}

func translateReadError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return &StreamError{Err: err}
}
