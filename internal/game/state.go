package game

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrNotActive is returned when a guess arrives for a finished game or from
// a player who is not a participant.
var ErrNotActive = errors.New("game is not active or player is not a participant")

// Config carries the per-match rules. The zero value is not usable; build it
// from config.Config in the coordinator.
type Config struct {
	CodeLength      int
	AllowedAttempts int
	MinPlayers      int
	MaxPlayers      int
	Alphabet        string

	// GenerateSecret overrides random secret generation when set. Tests use
	// it to force a known code.
	GenerateSecret func() string
}

// GuessOutcome is the result of one applied guess.
type GuessOutcome struct {
	BlackMarkers int
	WhiteMarkers int
	Attempts     int // the guessing player's attempt count, after this guess
	IsWinner     bool
	GameOver     bool
}

// State holds one active match. It is owned by the Coordinator and carries
// no locking of its own.
type State struct {
	cfg      Config
	secret   string
	attempts map[string]int
	winner   string
	gameOver bool
}

// NewState creates an empty match state; call Start to begin a game.
func NewState(cfg Config) *State {
	return &State{cfg: cfg, attempts: map[string]int{}}
}

// Start begins a new match for the given players. It rejects player counts
// outside the configured bounds.
func (s *State) Start(playerIDs []string) bool {
	if len(playerIDs) < s.cfg.MinPlayers || len(playerIDs) > s.cfg.MaxPlayers {
		return false
	}

	if s.cfg.GenerateSecret != nil {
		s.secret = s.cfg.GenerateSecret()
	} else {
		s.secret = generateSecret(s.cfg.Alphabet, s.cfg.CodeLength)
	}

	s.attempts = make(map[string]int, len(playerIDs))
	for _, id := range playerIDs {
		s.attempts[id] = 0
	}
	s.winner = ""
	s.gameOver = false
	return true
}

// ApplyGuess evaluates one well-formed (correct-length, uppercased) guess.
// Every call consumes an attempt, right or wrong. Once the game is over the
// state is frozen and further guesses return ErrNotActive.
func (s *State) ApplyGuess(playerID, guess string) (GuessOutcome, error) {
	if s.gameOver {
		return GuessOutcome{}, ErrNotActive
	}
	if _, ok := s.attempts[playerID]; !ok {
		return GuessOutcome{}, ErrNotActive
	}

	s.attempts[playerID]++

	black, white := Evaluate(s.secret, guess)

	if black == s.cfg.CodeLength {
		s.winner = playerID
		s.gameOver = true
	} else if s.allExhausted() {
		s.gameOver = true
	}

	return GuessOutcome{
		BlackMarkers: black,
		WhiteMarkers: white,
		Attempts:     s.attempts[playerID],
		IsWinner:     s.winner == playerID,
		GameOver:     s.gameOver,
	}, nil
}

func (s *State) allExhausted() bool {
	for _, n := range s.attempts {
		if n < s.cfg.AllowedAttempts {
			return false
		}
	}
	return true
}

// Secret returns the code. The coordinator reveals it only on termination.
func (s *State) Secret() string {
	return s.secret
}

// Winner returns the winning player id, or "" if there is none.
func (s *State) Winner() string {
	return s.winner
}

// GameOver reports whether the match reached a terminal state.
func (s *State) GameOver() bool {
	return s.gameOver
}

// Attempts returns a copy of the per-player attempt counts.
func (s *State) Attempts() map[string]int {
	out := make(map[string]int, len(s.attempts))
	for id, n := range s.attempts {
		out[id] = n
	}
	return out
}

// generateSecret samples length symbols uniformly from the alphabet using
// crypto/rand, so codes never repeat deterministically across games.
func generateSecret(alphabet string, length int) string {
	symbols := []rune(alphabet)
	max := big.NewInt(int64(len(symbols)))

	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic("game: secret generation: " + err.Error())
		}
		b.WriteRune(symbols[n.Int64()])
	}
	return b.String()
}
