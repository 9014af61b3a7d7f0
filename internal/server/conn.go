package server

import (
	"bufio"
	"bytes"
	"log"
	"net"
	"sync"
	"time"

	"github.com/codemaster/backend/internal/game"
	"github.com/codemaster/backend/internal/protocol"
)

// Conn drives one player connection: a read loop feeding parsed frames to
// the coordinator and a dedicated writer draining a bounded queue. The
// driver owns the socket; nothing else reads or writes it.
type Conn struct {
	id    string
	sock  net.Conn
	coord *game.Coordinator

	sendCh       chan []byte
	closeCh      chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newConn(id string, sock net.Conn, coord *game.Coordinator, queueSize int, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		sock:         sock,
		coord:        coord,
		sendCh:       make(chan []byte, queueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Send enqueues a frame for the writer. It never blocks: a full queue means
// the client is too slow to keep up with the broadcaster, and the caller
// reacts by kicking it.
func (c *Conn) Send(frame []byte) bool {
	select {
	case <-c.closeCh:
		return true // already closing, drop silently
	default:
	}
	select {
	case c.sendCh <- frame:
		return true
	default:
		return false
	}
}

// Kick tears the connection down. The read loop notices the closed socket
// and reports a normal disconnect to the coordinator.
func (c *Conn) Kick() {
	c.close()
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.sock.Close()
	})
}

// readLoop consumes newline-delimited frames until EOF or error, then
// reports the disconnect. Runs on its own goroutine per connection.
func (c *Conn) readLoop() {
	defer func() {
		c.close()
		c.coord.Disconnect(c.id)
	}()

	scanner := bufio.NewScanner(c.sock)
	scanner.Buffer(make([]byte, 64*1024), protocol.MaxFrameSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer across Scan calls.
		frame := make([]byte, len(line))
		copy(frame, line)
		c.coord.HandleFrame(c.id, frame)
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-c.closeCh:
			// expected: the socket was closed under the scanner
		default:
			log.Printf("[CONN] Read error for player %s: %v", c.id, err)
		}
	}
}

// writeLoop flushes queued frames in enqueue order, appending the newline
// terminator. On shutdown it drains whatever is already queued best-effort.
func (c *Conn) writeLoop() {
	for {
		select {
		case frame := <-c.sendCh:
			if !c.writeFrame(frame) {
				c.close()
				return
			}
		case <-c.closeCh:
			c.drain()
			return
		}
	}
}

func (c *Conn) drain() {
	for {
		select {
		case frame := <-c.sendCh:
			if !c.writeFrame(frame) {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) writeFrame(frame []byte) bool {
	c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	// Broadcast frames are shared across connections; never append into the
	// caller's slice, its spare capacity is shared too.
	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')
	if _, err := c.sock.Write(buf); err != nil {
		select {
		case <-c.closeCh:
		default:
			log.Printf("[CONN] Write error for player %s: %v", c.id, err)
		}
		return false
	}
	return true
}
