package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/codemaster/backend/internal/events"
	"github.com/codemaster/backend/internal/protocol"
	"github.com/codemaster/backend/internal/record"
)

// Coordinator drives the lobby→game→end cycle. It is the single writer over
// all game state: every event (join, leave, guess, chat, start request) is
// serialized under one mutex, and fan-out only enqueues frames, so the lock
// is never held across socket I/O.
type Coordinator struct {
	cfg      Config
	registry *Registry
	recorder record.Recorder
	events   *events.Publisher

	mu        sync.Mutex
	state     *State
	playing   bool
	gameID    string
	startTime time.Time
	queue     []string // turn order == admission order
	current   int
}

// Status is a point-in-time view for the admin API.
type Status struct {
	Waiting  int    `json:"waiting_players"`
	Active   int    `json:"active_players"`
	Playing  bool   `json:"game_in_progress"`
	GameID   string `json:"game_id,omitempty"`
	TurnHeld string `json:"current_turn,omitempty"`
}

func NewCoordinator(cfg Config, recorder record.Recorder, publisher *events.Publisher) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		registry: NewRegistry(),
		recorder: recorder,
		events:   publisher,
		state:    NewState(cfg),
	}
}

// Registry exposes the connection registry for the transport layer.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Join registers a freshly accepted connection, greets it, and re-evaluates
// the admit condition.
func (c *Coordinator) Join(playerID string, sender Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Attach(playerID, sender)
	log.Printf("[LOBBY] Player connected: %s", playerID)

	c.registry.Send(playerID, protocol.Marshal(protocol.Welcome{
		Type:     protocol.TypeWelcome,
		PlayerID: playerID,
		Message:  "Welcome to Code-Master! Your ID: " + playerID,
	}))

	c.checkStartGame()
}

// Disconnect removes a player. Active players leaving mid-game either shrink
// the turn queue or, below min_players, abort the match.
func (c *Coordinator) Disconnect(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := c.playing && c.queueIndex(playerID) >= 0
	c.registry.Detach(playerID)
	log.Printf("[LOBBY] Player disconnected: %s", playerID)

	if !wasActive {
		return
	}

	idx := c.queueIndex(playerID)
	c.queue = append(c.queue[:idx], c.queue[idx+1:]...)

	if len(c.queue) < c.cfg.MinPlayers {
		log.Printf("[GAME] Game %s aborted: %d active players remain", c.gameID, len(c.queue))
		c.endGame("")
		return
	}

	heldTurn := idx == c.current
	if idx < c.current {
		c.current--
	}
	if c.current >= len(c.queue) {
		c.current = 0
	}
	if heldTurn {
		// The turn passes to whoever sat after the departed player.
		c.announceTurn()
	}
}

// HandleFrame decodes one inbound frame and dispatches it. Malformed frames
// earn the sender a directed error; the connection stays open.
func (c *Coordinator) HandleFrame(playerID string, data []byte) {
	msg, err := protocol.DecodeClient(data)
	if err != nil {
		log.Printf("[GAME] Bad frame from %s: %v", playerID, err)
		c.sendError(playerID, "Invalid message: "+err.Error())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := msg.(type) {
	case protocol.GuessMessage:
		c.handleGuess(playerID, m.Guess)
	case protocol.ChatMessage:
		c.registry.Broadcast(protocol.Marshal(protocol.Chat{
			Type:     protocol.TypeChat,
			PlayerID: playerID,
			Text:     m.Text,
		}), nil)
	case protocol.StartGameMessage:
		// Same admit check as a join event, nothing more.
		c.checkStartGame()
	}
}

// sendError takes the coordinator lock itself; use from paths that do not
// already hold it.
func (c *Coordinator) sendError(playerID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErrorLocked(playerID, message)
}

// sendErrorLocked requires c.mu to be held.
func (c *Coordinator) sendErrorLocked(playerID, message string) {
	c.registry.Send(playerID, protocol.Marshal(protocol.Error{
		Type:    protocol.TypeError,
		Message: message,
	}))
}

func (c *Coordinator) handleGuess(playerID, guess string) {
	if !c.playing {
		c.sendErrorLocked(playerID, "No game is in progress")
		return
	}
	if c.queueIndex(playerID) < 0 {
		c.sendErrorLocked(playerID, "You are not part of the current game")
		return
	}
	if playerID != c.queue[c.current] {
		c.sendErrorLocked(playerID, "It is not your turn")
		return
	}

	guess = strings.ToUpper(guess)
	if len([]rune(guess)) != c.cfg.CodeLength {
		// Length mismatch is a validation error, not a consumed attempt.
		c.sendErrorLocked(playerID, fmt.Sprintf("Guess must be %d symbols long", c.cfg.CodeLength))
		return
	}

	outcome, err := c.state.ApplyGuess(playerID, guess)
	if err != nil {
		c.sendErrorLocked(playerID, "No game is in progress")
		return
	}

	c.registry.Broadcast(protocol.Marshal(protocol.GuessResult{
		Type:         protocol.TypeGuessResult,
		PlayerID:     playerID,
		Guess:        guess,
		BlackMarkers: outcome.BlackMarkers,
		WhiteMarkers: outcome.WhiteMarkers,
		Attempts:     outcome.Attempts,
	}), nil)

	if outcome.GameOver {
		winner := ""
		if outcome.IsWinner {
			winner = playerID
		}
		c.endGame(winner)
		return
	}

	c.current = (c.current + 1) % len(c.queue)
	c.announceTurn()
}

// announceTurn broadcasts the turn change, then reminds the new actor
// directly. Broadcast before directed send, per the wire contract.
func (c *Coordinator) announceTurn() {
	next := c.queue[c.current]
	c.registry.Broadcast(protocol.Marshal(protocol.TurnChange{
		Type:     protocol.TypeTurnChange,
		PlayerID: next,
	}), nil)
	c.registry.Send(next, protocol.Marshal(protocol.YourTurn{
		Type:    protocol.TypeYourTurn,
		Message: "Your turn! Enter a guess.",
	}))
}

// checkStartGame starts a match when the lobby satisfies the admit
// condition: no game in progress and min ≤ waiting ≤ max.
func (c *Coordinator) checkStartGame() {
	if c.playing {
		return
	}

	waiting := c.registry.WaitingSnapshot()
	if len(waiting) < c.cfg.MinPlayers || len(waiting) > c.cfg.MaxPlayers {
		return
	}

	if !c.state.Start(waiting) {
		log.Printf("[GAME] Failed to start game with %d players", len(waiting))
		return
	}

	c.gameID = generateGameID()
	c.startTime = time.Now()
	c.playing = true
	c.queue = waiting
	c.current = 0
	c.registry.MoveToActive(waiting)

	log.Printf("[GAME] Game started: %s, players=%v", c.gameID, waiting)

	c.registry.Broadcast(protocol.Marshal(protocol.GameStart{
		Type:            protocol.TypeGameStart,
		GameID:          c.gameID,
		Players:         waiting,
		CodeLength:      c.cfg.CodeLength,
		AllowedAttempts: c.cfg.AllowedAttempts,
	}), nil)

	c.registry.Send(c.queue[0], protocol.Marshal(protocol.YourTurn{
		Type:    protocol.TypeYourTurn,
		Message: "Your turn! Enter a guess.",
	}))

	c.events.MatchStarted(c.gameID, waiting)
}

// endGame persists the match, reveals the outcome, returns survivors to the
// lobby, and re-evaluates admission. Persistence failure is logged and
// swallowed; the game_end broadcast always goes out.
func (c *Coordinator) endGame(winner string) {
	endTime := time.Now()
	secret := c.state.Secret()
	attempts := c.state.Attempts()

	players := make([]record.PlayerResult, 0, len(attempts))
	for _, id := range c.queue {
		players = append(players, record.PlayerResult{ID: id, Attempts: attempts[id]})
	}
	// Players who disconnected mid-game still have attempt counts.
	for id, n := range attempts {
		if c.queueIndex(id) < 0 {
			players = append(players, record.PlayerResult{ID: id, Attempts: n})
		}
	}

	if c.recorder != nil {
		locator, err := c.recorder.Record(context.Background(), record.Match{
			GameID:     c.gameID,
			StartTime:  c.startTime,
			EndTime:    endTime,
			SecretCode: secret,
			Winner:     winner,
			Players:    players,
		})
		if err != nil {
			log.Printf("[RECORD] Failed to persist game %s: %v", c.gameID, err)
		} else {
			log.Printf("[RECORD] Game %s saved to %s", c.gameID, locator)
		}
	}

	var winnerField *string
	if winner != "" {
		winnerField = &winner
	}
	c.registry.Broadcast(protocol.Marshal(protocol.GameEnd{
		Type:           protocol.TypeGameEnd,
		Winner:         winnerField,
		SecretCode:     secret,
		PlayerAttempts: attempts,
	}), nil)

	c.events.MatchEnded(c.gameID, winner, secret)

	log.Printf("[GAME] Game %s ended, winner=%s", c.gameID, orNone(winner))

	survivors := make([]string, len(c.queue))
	copy(survivors, c.queue)

	c.playing = false
	c.gameID = ""
	c.queue = nil
	c.current = 0
	c.state = NewState(c.cfg)
	c.registry.ReturnToWaiting(survivors)

	c.checkStartGame()
}

// StatusSnapshot reports lobby and game state for the admin API.
func (c *Coordinator) StatusSnapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiting, active := c.registry.Counts()
	st := Status{
		Waiting: waiting,
		Active:  active,
		Playing: c.playing,
		GameID:  c.gameID,
	}
	if c.playing {
		st.TurnHeld = c.queue[c.current]
	}
	return st
}

func (c *Coordinator) queueIndex(playerID string) int {
	for i, id := range c.queue {
		if id == playerID {
			return i
		}
	}
	return -1
}

func orNone(id string) string {
	if id == "" {
		return "none"
	}
	return id
}

// generateToken returns a secure random hex token.
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateGameID() string {
	return "game_" + generateToken(8)
}
