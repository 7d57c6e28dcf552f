package server

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

var errSendBufferFull = errors.New("send buffer full")

// wsConn wraps a gorilla connection with a dedicated writer goroutine and the
// per-connection heartbeat flag. It implements registry.Conn.
type wsConn struct {
	conn         *websocket.Conn
	sendCh       chan []byte
	done         chan struct{}
	writerDone   chan struct{}
	closeOnce    sync.Once
	open         atomic.Bool
	awaitingPong atomic.Bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{
		conn:       conn,
		sendCh:     make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.open.Store(true)
	go c.writePump()
	return c
}

func (c *wsConn) writePump() {
	defer close(c.writerDone)
	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.open.Store(false)
				return
			}
		case <-c.done:
			// Flush whatever was enqueued before the close, e.g. a final
			// protocol error frame.
			for {
				select {
				case msg := <-c.sendCh:
					c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// SendJSON enqueues a frame for the writer goroutine. A full buffer means the
// client is too slow; the frame is dropped and an error returned.
func (c *wsConn) SendJSON(v any) error {
	if !c.open.Load() {
		return errors.New("connection closed")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.sendCh <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Ping sends a transport-level ping. WriteControl is safe to call
// concurrently with the writer goroutine.
func (c *wsConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
		// Let the writer flush before tearing down the socket. Write
		// deadlines bound the wait.
		<-c.writerDone
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) IsOpen() bool { return c.open.Load() }

func (c *wsConn) AwaitingPong() bool     { return c.awaitingPong.Load() }
func (c *wsConn) SetAwaitingPong(v bool) { c.awaitingPong.Store(v) }
