// Package server accepts Code-Master client connections over TCP and wires
// each one to the game coordinator through a per-connection driver.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/codemaster/backend/internal/game"
)

type Server struct {
	addr         string
	coord        *game.Coordinator
	queueSize    int
	writeTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]bool
}

func NewServer(addr string, coord *game.Coordinator, queueSize int, writeTimeout time.Duration) *Server {
	if queueSize <= 0 {
		queueSize = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		addr:         addr,
		coord:        coord,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		conns:        make(map[*Conn]bool),
	}
}

// Listen binds the TCP listener. Split from Serve so callers (and tests)
// can learn the bound address before accepting.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	log.Printf("[SERVER] Listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled. Each accepted
// connection gets a player id, a registered driver, and its own read and
// write goroutines.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("serve called before listen")
	}

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	for {
		sock, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.handle(sock)
	}
}

// ListenAndServe binds and serves in one call.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handle(sock net.Conn) {
	playerID := "player_" + generateToken(8)
	conn := newConn(playerID, sock, s.coord, s.queueSize, s.writeTimeout)

	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()

	// Writer first, so the welcome frame from Join has a consumer.
	go conn.writeLoop()
	s.coord.Join(playerID, conn)
	go func() {
		conn.readLoop()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
}

func (s *Server) shutdown() {
	s.mu.Lock()
	ln := s.listener
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.close()
	}
	log.Printf("[SERVER] Shut down (%d connections closed)", len(conns))
}

func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
