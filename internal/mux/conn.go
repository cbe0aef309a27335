package mux

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("connection closed")

// Conn is an ordered, reliable, message-framed connection.
type Conn interface {
	WriteMessage(Message) error
	ReadMessage() (Message, error)
	Close() error
}

// WSConn carries one frame per binary websocket message.
type WSConn struct {
	ws *websocket.Conn

	wmu          sync.Mutex
	writeTimeout time.Duration
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws, writeTimeout: 5 * time.Second}
}

func (c *WSConn) WriteMessage(m Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, m.Encode())
}

// ReadMessage skips non-binary websocket messages and frames too short to
// carry a header.
func (c *WSConn) ReadMessage() (Message, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return Message{}, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		m, err := Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "mux").Int("len", len(data)).Msg("bad frame skipped")
			continue
		}
		return m, nil
	}
}

// Close sends a close frame before tearing the socket down.
func (c *WSConn) Close() error {
	c.wmu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.wmu.Unlock()
	return c.ws.Close()
}

// Pipe returns two in-memory connections wired to each other.
func Pipe() (Conn, Conn) {
	ab := make(chan Message, 64)
	ba := make(chan Message, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeConn{in: ba, out: ab, done: done, once: once}
	b := &pipeConn{in: ab, out: ba, done: done, once: once}
	return a, b
}

type pipeConn struct {
	in   <-chan Message
	out  chan<- Message
	done chan struct{}
	once *sync.Once
}

func (p *pipeConn) WriteMessage(m Message) error {
	payload := append([]byte(nil), m.Payload...)
	m.Payload = payload
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- m:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// ReadMessage drains queued messages before reporting ErrClosed.
func (p *pipeConn) ReadMessage() (Message, error) {
	select {
	case m := <-p.in:
		return m, nil
	default:
	}
	select {
	case m := <-p.in:
		return m, nil
	case <-p.done:
		return Message{}, ErrClosed
	}
}

// Close closes both ends.
func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
