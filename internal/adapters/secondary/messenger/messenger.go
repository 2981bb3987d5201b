package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthurdotwork/karaoke/internal/domain"
	"github.com/arthurdotwork/karaoke/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. Must be less than the read
	// side's pong wait.
	pingPeriod = 54 * time.Second

	sendBuffer = 256
)

var ErrClosed = errors.New("connection closed")

// Messenger is the outbound half of one participant connection. All writes
// to the websocket go through a single pump goroutine; callers only enqueue.
type Messenger struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewMessenger(conn *websocket.Conn) *Messenger {
	m := &Messenger{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	go m.writePump()

	return m
}

func (m *Messenger) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = m.conn.Close()
	}()

	for {
		select {
		case msg := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := m.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				m.Close()
				return
			}
		case <-ticker.C:
			_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.Close()
				return
			}
		case <-m.done:
			_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = m.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (m *Messenger) SendEvent(ctx context.Context, event domain.Event) error {
	return m.enqueue(ctx, protocol.Delta(event))
}

func (m *Messenger) SendSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	return m.enqueue(ctx, protocol.SnapshotFrame(snapshot))
}

func (m *Messenger) SendError(ctx context.Context, code string, message string) error {
	return m.enqueue(ctx, protocol.Error(code, message))
}

func (m *Messenger) SendServerClosing(ctx context.Context) error {
	return m.enqueue(ctx, protocol.ServerClosing())
}

func (m *Messenger) enqueue(ctx context.Context, frame protocol.ServerFrame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	select {
	case m.send <- b:
		return nil
	case <-m.done:
		return ErrClosed
	default:
		// A consumer that cannot drain its buffer is better dropped than
		// allowed to stall fan-out; it can rejoin and resync.
		slog.WarnContext(ctx, "dropping slow consumer", "remote_addr", m.conn.RemoteAddr())
		m.Close()
		return ErrClosed
	}
}

func (m *Messenger) Close() {
	m.once.Do(func() { close(m.done) })
}
