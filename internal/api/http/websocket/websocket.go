package websocket

import (
	"net/http"
	"sync"
	"time"

	"stop-game-be/internal/service"
	"stop-game-be/internal/service/dto"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// NOTE: 暂时允许所有来源
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// 单条消息的最大长度
const MAX_MESSAGE_SIZE = 16 * 1024

var heartbeatHandler = func(conn *websocket.Conn, timeout time.Duration) func(string) error {
	return func(string) error {
		conn.SetReadDeadline(time.Now().Add(timeout))
		return nil
	}
}

// wsConn is the service.Conn of one websocket. Messages are queued on sendCh
// and written by the write pump; a full queue is reported, never waited on.
type wsConn struct {
	conn   *websocket.Conn
	sendCh chan dto.ResponseWrapper

	closed    chan struct{}
	closeOnce sync.Once
}

var _ service.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn:   conn,
		sendCh: make(chan dto.ResponseWrapper, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) TrySend(msg dto.ResponseWrapper) error {
	select {
	case <-c.closed:
		return service.ErrNoConnection
	default:
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return service.ErrBackpressure
	}
}

// Close is safe to call from any goroutine and more than once. The blocked
// reader wakes up with an error.
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}
