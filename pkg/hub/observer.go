package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	queueSize    = 256
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10
	readLimit    = 64 << 10 // observers only send control frames
)

// Conn is what an Observer needs from a websocket. *websocket.Conn has it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Observer is one dashboard connection.
type Observer struct {
	hub   *Hub
	conn  Conn
	queue chan Frame
}

// Join registers conn with h. It returns nil once h has stopped.
func Join(h *Hub, conn Conn) *Observer {
	o := &Observer{hub: h, conn: conn, queue: make(chan Frame, queueSize)}
	select {
	case h.joins <- o:
		return o
	case <-h.done:
		return nil
	}
}

// Serve pumps frames to the connection and blocks until it closes.
func (o *Observer) Serve() {
	go o.write()
	o.read()
}

// read only exists to notice disconnects and keep pongs flowing.
func (o *Observer) read() {
	defer o.conn.Close()
	defer o.leave()

	extend := func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	o.conn.SetReadLimit(readLimit)
	extend("")
	o.conn.SetPongHandler(extend)

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (o *Observer) leave() {
	select {
	case o.hub.leaves <- o:
	case <-o.hub.done:
	}
}

// write is the connection's only writer.
func (o *Observer) write() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer o.conn.Close()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case f, ok := <-o.queue:
			if !ok {
				o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				o.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, f.Data
			if f.Binary {
				kind = websocket.BinaryMessage
			}
		case <-ping.C:
		}

		o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := o.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
