// Package protocol defines the newline-delimited JSON frames exchanged
// between the Code-Master server and its clients. Every frame is a single
// UTF-8 JSON object carrying a "type" field, terminated by '\n'.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Server frame types.
const (
	TypeWelcome     = "welcome"
	TypeGameStart   = "game_start"
	TypeYourTurn    = "your_turn"
	TypeTurnChange  = "turn_change"
	TypeGuessResult = "guess_result"
	TypeGameEnd     = "game_end"
	TypeChat        = "chat"
	TypeError       = "error"
)

// Client frame types.
const (
	TypeGuess     = "guess"
	TypeStartGame = "start_game"
)

// MaxFrameSize is the largest frame either side will accept.
const MaxFrameSize = 256 * 1024

// Welcome is sent to a player immediately after their connection is accepted.
type Welcome struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Message  string `json:"message,omitempty"`
}

// GameStart announces a new match to every connected player.
type GameStart struct {
	Type            string   `json:"type"`
	GameID          string   `json:"game_id"`
	Players         []string `json:"players"`
	CodeLength      int      `json:"code_length"`
	AllowedAttempts int      `json:"allowed_attempts"`
}

// YourTurn is directed to the player who now holds the turn.
type YourTurn struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// TurnChange broadcasts the id of the next actor after a guess.
type TurnChange struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

// GuessResult broadcasts the markers for an accepted guess.
type GuessResult struct {
	Type         string `json:"type"`
	PlayerID     string `json:"player_id"`
	Guess        string `json:"guess"`
	BlackMarkers int    `json:"black_markers"`
	WhiteMarkers int    `json:"white_markers"`
	Attempts     int    `json:"attempts"`
}

// GameEnd broadcasts the outcome of a finished match. Winner is nil when
// nobody guessed the code.
type GameEnd struct {
	Type           string         `json:"type"`
	Winner         *string        `json:"winner"`
	SecretCode     string         `json:"secret_code"`
	PlayerAttempts map[string]int `json:"player_attempts"`
}

// Chat relays a chat line to every connected player.
type Chat struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// Error is directed to the offending player only; it never terminates the
// connection.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Marshal serializes a frame without the trailing newline. Frames are plain
// structs, so a marshal failure is a programming error.
func Marshal(frame any) []byte {
	data, err := json.Marshal(frame)
	if err != nil {
		panic(fmt.Sprintf("protocol: marshal %T: %v", frame, err))
	}
	return data
}

// ClientMessage is one of GuessMessage, ChatMessage, StartGameMessage.
type ClientMessage interface {
	clientMessage()
}

// GuessMessage is a code guess from the player holding the turn.
type GuessMessage struct {
	Guess string
}

// ChatMessage is a chat line to relay to everyone.
type ChatMessage struct {
	Text string
}

// StartGameMessage asks the server to re-evaluate the lobby admit condition.
type StartGameMessage struct{}

func (GuessMessage) clientMessage()     {}
func (ChatMessage) clientMessage()      {}
func (StartGameMessage) clientMessage() {}

type clientEnvelope struct {
	Type  string  `json:"type"`
	Guess *string `json:"guess"`
	Text  *string `json:"text"`
}

// DecodeClient parses one inbound frame into its tagged variant. Unknown
// types and missing required fields are errors; the caller answers them with
// a directed error frame.
func DecodeClient(data []byte) (ClientMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	switch env.Type {
	case TypeGuess:
		if env.Guess == nil {
			return nil, fmt.Errorf("guess message missing %q field", "guess")
		}
		return GuessMessage{Guess: *env.Guess}, nil
	case TypeChat:
		if env.Text == nil {
			return nil, fmt.Errorf("chat message missing %q field", "text")
		}
		return ChatMessage{Text: *env.Text}, nil
	case TypeStartGame:
		return StartGameMessage{}, nil
	case "":
		return nil, fmt.Errorf("message missing %q field", "type")
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// ServerEvent is the decoded form of a server frame, used by client
// implementations. Exactly one pointer is non-nil depending on Type.
type ServerEvent struct {
	Type        string
	Welcome     *Welcome
	GameStart   *GameStart
	YourTurn    *YourTurn
	TurnChange  *TurnChange
	GuessResult *GuessResult
	GameEnd     *GameEnd
	Chat        *Chat
	Error       *Error
}

// DecodeServer parses one server frame into a ServerEvent.
func DecodeServer(data []byte) (ServerEvent, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ServerEvent{}, fmt.Errorf("invalid server frame: %w", err)
	}

	ev := ServerEvent{Type: probe.Type}
	var err error
	switch probe.Type {
	case TypeWelcome:
		ev.Welcome = &Welcome{}
		err = json.Unmarshal(data, ev.Welcome)
	case TypeGameStart:
		ev.GameStart = &GameStart{}
		err = json.Unmarshal(data, ev.GameStart)
	case TypeYourTurn:
		ev.YourTurn = &YourTurn{}
		err = json.Unmarshal(data, ev.YourTurn)
	case TypeTurnChange:
		ev.TurnChange = &TurnChange{}
		err = json.Unmarshal(data, ev.TurnChange)
	case TypeGuessResult:
		ev.GuessResult = &GuessResult{}
		err = json.Unmarshal(data, ev.GuessResult)
	case TypeGameEnd:
		ev.GameEnd = &GameEnd{}
		err = json.Unmarshal(data, ev.GameEnd)
	case TypeChat:
		ev.Chat = &Chat{}
		err = json.Unmarshal(data, ev.Chat)
	case TypeError:
		ev.Error = &Error{}
		err = json.Unmarshal(data, ev.Error)
	default:
		return ServerEvent{}, fmt.Errorf("unknown server frame type %q", probe.Type)
	}
	if err != nil {
		return ServerEvent{}, err
	}
	return ev, nil
}
