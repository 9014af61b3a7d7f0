// Package client implements the state a Code-Master client must mirror to
// interpret server events, plus the console command table.
package client

import (
	"sync"

	"github.com/codemaster/backend/internal/protocol"
)

// Session tracks the client-side view of the game. Either the your_turn
// frame or the turn_change frame may arrive first; both flip the turn flag,
// so the client acts on whichever it observes first.
type Session struct {
	mu              sync.Mutex
	playerID        string
	gameActive      bool
	myTurn          bool
	codeLength      int
	allowedAttempts int
}

func NewSession() *Session {
	return &Session{}
}

// Apply updates the session from one decoded server event.
func (s *Session) Apply(ev protocol.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case protocol.TypeWelcome:
		s.playerID = ev.Welcome.PlayerID
	case protocol.TypeGameStart:
		s.gameActive = true
		s.myTurn = false
		s.codeLength = ev.GameStart.CodeLength
		s.allowedAttempts = ev.GameStart.AllowedAttempts
	case protocol.TypeYourTurn:
		s.myTurn = true
	case protocol.TypeTurnChange:
		s.myTurn = ev.TurnChange.PlayerID == s.playerID
	case protocol.TypeGameEnd:
		s.gameActive = false
		s.myTurn = false
	}
}

// CanGuess reports whether sending a guess is currently allowed, with a
// human-readable reason when it is not.
func (s *Session) CanGuess() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gameActive {
		return false, "no game is in progress"
	}
	if !s.myTurn {
		return false, "it is not your turn"
	}
	return true, ""
}

func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) GameActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameActive
}

func (s *Session) MyTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.myTurn
}

// GameInfo returns the rules announced in game_start.
func (s *Session) GameInfo() (codeLength, allowedAttempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codeLength, s.allowedAttempts
}
