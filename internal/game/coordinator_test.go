package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/codemaster/backend/internal/protocol"
	"github.com/codemaster/backend/internal/record"
)

func coordConfig(secret string) Config {
	return Config{
		CodeLength:      len(secret),
		AllowedAttempts: 10,
		MinPlayers:      2,
		MaxPlayers:      4,
		Alphabet:        "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		GenerateSecret:  func() string { return secret },
	}
}

// events decodes everything the fake sender has received so far.
func (f *fakeSender) events(t *testing.T) []protocol.ServerEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]protocol.ServerEvent, 0, len(f.frames))
	for _, frame := range f.frames {
		ev, err := protocol.DecodeServer(frame)
		if err != nil {
			t.Fatalf("undecodable frame %s: %v", frame, err)
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeSender) lastOfType(t *testing.T, typ string) *protocol.ServerEvent {
	t.Helper()
	evs := f.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return &evs[i]
		}
	}
	return nil
}

func (f *fakeSender) countOfType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, ev := range f.events(t) {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func guessFrame(guess string) []byte {
	return []byte(fmt.Sprintf(`{"type":"guess","guess":%q}`, guess))
}

func TestJoinBelowMinSendsWelcomeOnly(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1 := &fakeSender{}
	c.Join("p1", s1)

	evs := s1.events(t)
	if len(evs) != 1 || evs[0].Type != protocol.TypeWelcome {
		t.Fatalf("events after solo join = %v, want single welcome", evs)
	}
	if evs[0].Welcome.PlayerID != "p1" {
		t.Errorf("welcome player_id = %q, want p1", evs[0].Welcome.PlayerID)
	}
}

func TestGameStartsAtMinPlayers(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	start := s2.lastOfType(t, protocol.TypeGameStart)
	if start == nil {
		t.Fatal("no game_start broadcast")
	}
	if start.GameStart.CodeLength != 4 || start.GameStart.AllowedAttempts != 10 {
		t.Errorf("game_start rules = %+v", start.GameStart)
	}
	if len(start.GameStart.Players) != 2 {
		t.Errorf("game_start players = %v", start.GameStart.Players)
	}

	// First in the queue is the first to have joined.
	if s1.lastOfType(t, protocol.TypeYourTurn) == nil {
		t.Error("p1 did not receive your_turn")
	}
	if s2.lastOfType(t, protocol.TypeYourTurn) != nil {
		t.Error("p2 received your_turn out of order")
	}
}

func TestAdmitGuardRejectsOverfullLobby(t *testing.T) {
	cfg := coordConfig("ABCD")
	cfg.MaxPlayers = 2
	c := NewCoordinator(cfg, record.NewMemoryRecorder(), nil)

	senders := []*fakeSender{{}, {}, {}}
	// Three connect while a game is running, so all three end up waiting.
	c.Join("p1", senders[0])
	c.Join("p2", senders[1]) // game starts here with p1, p2
	c.Join("p3", senders[2])

	// End the running game: p1 wins instantly.
	c.HandleFrame("p1", guessFrame("ABCD"))

	// Lobby now holds three players: above max, so no new game may start.
	if senders[2].lastOfType(t, protocol.TypeGameStart) != nil {
		t.Fatal("game started with waiting population above max_players")
	}

	st := c.StatusSnapshot()
	if st.Playing {
		t.Fatal("coordinator reports a game in progress")
	}
	if st.Waiting != 3 {
		t.Fatalf("waiting = %d, want 3", st.Waiting)
	}
}

func TestOutOfTurnGuessRejected(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p2", guessFrame("ABCD"))

	if s2.lastOfType(t, protocol.TypeError) == nil {
		t.Error("out-of-turn guesser did not receive error")
	}
	if s1.countOfType(t, protocol.TypeGuessResult) != 0 {
		t.Error("out-of-turn guess was broadcast")
	}
	st := c.StatusSnapshot()
	if !st.Playing {
		t.Error("game ended by out-of-turn guess")
	}
}

func TestWrongLengthGuessIsFree(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("AB"))

	if s1.lastOfType(t, protocol.TypeError) == nil {
		t.Error("wrong-length guess did not earn an error")
	}
	if s2.countOfType(t, protocol.TypeGuessResult) != 0 {
		t.Error("wrong-length guess was broadcast")
	}

	// The attempt was free and the turn did not move.
	c.HandleFrame("p1", guessFrame("ZZZZ"))
	res := s2.lastOfType(t, protocol.TypeGuessResult)
	if res == nil {
		t.Fatal("follow-up guess not broadcast")
	}
	if res.GuessResult.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 (wrong-length guess must not count)", res.GuessResult.Attempts)
	}
}

func TestGuessWhileIdleRejected(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1 := &fakeSender{}
	c.Join("p1", s1)

	c.HandleFrame("p1", guessFrame("ABCD"))

	if s1.lastOfType(t, protocol.TypeError) == nil {
		t.Error("idle guess did not earn an error")
	}
}

func TestGuessNormalizedToUppercase(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("abcd"))

	end := s2.lastOfType(t, protocol.TypeGameEnd)
	if end == nil {
		t.Fatal("lowercase winning guess did not end the game")
	}
	if end.GameEnd.Winner == nil || *end.GameEnd.Winner != "p1" {
		t.Errorf("winner = %v, want p1", end.GameEnd.Winner)
	}
	if end.GameEnd.SecretCode != "ABCD" {
		t.Errorf("secret_code = %q, want ABCD", end.GameEnd.SecretCode)
	}

	res := s2.lastOfType(t, protocol.TypeGuessResult)
	if res.GuessResult.Guess != "ABCD" {
		t.Errorf("broadcast guess = %q, want uppercased ABCD", res.GuessResult.Guess)
	}
}

func TestTurnRotationAndNotificationOrder(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("ZZZZ"))

	evs := s2.events(t)
	var gotTurnChange, gotYourTurn bool
	for _, ev := range evs {
		switch ev.Type {
		case protocol.TypeTurnChange:
			if ev.TurnChange.PlayerID != "p2" {
				t.Errorf("turn_change player_id = %q, want p2", ev.TurnChange.PlayerID)
			}
			if gotYourTurn {
				t.Error("your_turn arrived before turn_change")
			}
			gotTurnChange = true
		case protocol.TypeYourTurn:
			gotYourTurn = true
		}
	}
	if !gotTurnChange || !gotYourTurn {
		t.Fatalf("p2 missing turn notifications: turn_change=%v your_turn=%v", gotTurnChange, gotYourTurn)
	}

	// The actor also sees the turn_change broadcast.
	if s1.lastOfType(t, protocol.TypeTurnChange) == nil {
		t.Error("actor did not see turn_change broadcast")
	}
}

func TestChatBroadcastsToEveryone(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p2", []byte(`{"type":"chat","text":"hello"}`))

	for name, s := range map[string]*fakeSender{"p1": s1, "p2": s2} {
		chat := s.lastOfType(t, protocol.TypeChat)
		if chat == nil {
			t.Fatalf("%s did not receive chat", name)
		}
		if chat.Chat.PlayerID != "p2" || chat.Chat.Text != "hello" {
			t.Errorf("%s chat = %+v", name, chat.Chat)
		}
	}
}

func TestMalformedFrameEarnsErrorOnly(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	for _, frame := range []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"guess"}`,
		`{"type":"chat"}`,
	} {
		before := s1.countOfType(t, protocol.TypeError)
		c.HandleFrame("p1", []byte(frame))
		if s1.countOfType(t, protocol.TypeError) != before+1 {
			t.Errorf("frame %q did not earn exactly one error", frame)
		}
	}

	if s2.countOfType(t, protocol.TypeError) != 0 {
		t.Error("errors leaked to another player")
	}
}

func TestStartGameMessageTriggersAdmitCheck(t *testing.T) {
	cfg := coordConfig("ABCD")
	cfg.MaxPlayers = 2
	c := NewCoordinator(cfg, record.NewMemoryRecorder(), nil)

	s1, s2, s3 := &fakeSender{}, &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2) // game starts with p1, p2
	c.Join("p3", s3) // waits

	c.HandleFrame("p1", guessFrame("ABCD")) // p1 wins, lobby has 3 > max

	// p1 leaves, dropping the lobby to the admit window.
	c.Disconnect("p1")
	if s3.lastOfType(t, protocol.TypeGameStart) != nil {
		t.Fatal("game started without a join or start_game trigger")
	}

	c.HandleFrame("p3", []byte(`{"type":"start_game"}`))

	start := s3.lastOfType(t, protocol.TypeGameStart)
	if start == nil {
		t.Fatal("start_game did not trigger admission")
	}
	if len(start.GameStart.Players) != 2 {
		t.Errorf("second game players = %v", start.GameStart.Players)
	}
}

func TestDisconnectBelowMinAbortsGame(t *testing.T) {
	rec := record.NewMemoryRecorder()
	c := NewCoordinator(coordConfig("ABCD"), rec, nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("ZZZZ"))
	c.Disconnect("p1")

	end := s2.lastOfType(t, protocol.TypeGameEnd)
	if end == nil {
		t.Fatal("survivor did not receive game_end on abort")
	}
	if end.GameEnd.Winner != nil {
		t.Errorf("aborted game has winner %v", *end.GameEnd.Winner)
	}
	if end.GameEnd.SecretCode != "ABCD" {
		t.Errorf("aborted game_end secret = %q, want ABCD", end.GameEnd.SecretCode)
	}
	if end.GameEnd.PlayerAttempts["p1"] != 1 {
		t.Errorf("departed player attempts = %d, want 1", end.GameEnd.PlayerAttempts["p1"])
	}

	matches, _ := rec.Recent(context.Background(), 10)
	if len(matches) != 1 {
		t.Fatalf("recorded %d matches, want 1", len(matches))
	}
	if matches[0].Winner != "" {
		t.Errorf("recorded winner = %q, want none", matches[0].Winner)
	}

	st := c.StatusSnapshot()
	if st.Playing || st.Waiting != 1 {
		t.Errorf("post-abort status = %+v, want idle lobby of 1", st)
	}
}

// startThreePlayerGame returns a coordinator running a match whose turn
// queue is [p3, p1, p2]: p1 and p2 play a first game while p3 waits, p1 wins
// it, and the rematch admits all three with p3 at the head of the lobby.
func startThreePlayerGame(t *testing.T) (*Coordinator, map[string]*fakeSender) {
	t.Helper()

	cfg := coordConfig("ABCD")
	cfg.MaxPlayers = 3
	c := NewCoordinator(cfg, record.NewMemoryRecorder(), nil)

	senders := map[string]*fakeSender{"p1": {}, "p2": {}, "p3": {}}
	c.Join("p1", senders["p1"])
	c.Join("p2", senders["p2"])
	c.Join("p3", senders["p3"])
	c.HandleFrame("p1", guessFrame("ABCD"))

	start := senders["p3"].lastOfType(t, protocol.TypeGameStart)
	if start == nil || len(start.GameStart.Players) != 3 {
		t.Fatal("rematch with three players did not start")
	}
	if st := c.StatusSnapshot(); st.TurnHeld != "p3" {
		t.Fatalf("turn held by %q, want p3", st.TurnHeld)
	}
	return c, senders
}

func TestDisconnectOfCurrentActorAdvancesTurn(t *testing.T) {
	c, senders := startThreePlayerGame(t)

	// p3 holds the turn and leaves; the turn passes to whoever sat next.
	c.Disconnect("p3")

	tc := senders["p1"].lastOfType(t, protocol.TypeTurnChange)
	if tc == nil {
		t.Fatal("no turn_change after current actor left")
	}
	if tc.TurnChange.PlayerID != "p1" {
		t.Errorf("turn passed to %q, want p1", tc.TurnChange.PlayerID)
	}
	if senders["p1"].lastOfType(t, protocol.TypeYourTurn) == nil {
		t.Error("new actor did not receive your_turn")
	}

	st := c.StatusSnapshot()
	if !st.Playing || st.TurnHeld != "p1" {
		t.Errorf("status after departure = %+v", st)
	}
}

func TestDisconnectBeforeCurrentDecrementsIndex(t *testing.T) {
	c, senders := startThreePlayerGame(t)

	c.HandleFrame("p3", guessFrame("ZZZZ")) // turn moves to p1
	c.Disconnect("p3")                      // departed index 0 < current 1

	// The turn must still belong to p1: a guess from p2 is out of turn.
	c.HandleFrame("p2", guessFrame("ZZZZ"))
	if senders["p2"].lastOfType(t, protocol.TypeError) == nil {
		t.Error("p2 guessed successfully while p1 held the turn")
	}

	c.HandleFrame("p1", guessFrame("ZZZZ"))
	res := senders["p1"].lastOfType(t, protocol.TypeGuessResult)
	if res == nil || res.GuessResult.PlayerID != "p1" {
		t.Fatal("p1 could not guess after earlier player departed")
	}

	// Rotation continues within the shrunken queue [p1, p2].
	tc := senders["p2"].lastOfType(t, protocol.TypeTurnChange)
	if tc.TurnChange.PlayerID != "p2" {
		t.Errorf("turn passed to %q, want p2", tc.TurnChange.PlayerID)
	}

	if !c.StatusSnapshot().Playing {
		t.Error("game ended despite enough remaining players")
	}
}

func TestDisconnectAfterCurrentLeavesTurnAlone(t *testing.T) {
	c, senders := startThreePlayerGame(t)

	// p3 holds the turn; p2 sits at index 2, after the current index.
	c.Disconnect("p2")

	if senders["p1"].lastOfType(t, protocol.TypeTurnChange) != nil {
		t.Error("turn_change emitted though the actor did not change")
	}
	if st := c.StatusSnapshot(); st.TurnHeld != "p3" {
		t.Errorf("turn held by %q, want p3", st.TurnHeld)
	}

	c.HandleFrame("p3", guessFrame("ZZZZ"))
	if senders["p1"].lastOfType(t, protocol.TypeGuessResult) == nil {
		t.Error("actor could not guess after a later player departed")
	}
}

func TestSurvivorsReturnToLobbyAfterGameEnd(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("ABCD"))

	// Both players return to waiting, which satisfies the admit condition,
	// so a fresh game starts immediately.
	if n := s2.countOfType(t, protocol.TypeGameStart); n != 2 {
		t.Errorf("p2 saw %d game_start frames, want 2 (rematch after win)", n)
	}
}

func TestEveryAcceptedGuessBroadcastsExactlyOnce(t *testing.T) {
	c := NewCoordinator(coordConfig("ABCD"), record.NewMemoryRecorder(), nil)
	s1, s2 := &fakeSender{}, &fakeSender{}
	c.Join("p1", s1)
	c.Join("p2", s2)

	c.HandleFrame("p1", guessFrame("ZZZZ"))
	c.HandleFrame("p2", guessFrame("YYYY"))
	c.HandleFrame("p1", guessFrame("XXXX"))

	for name, s := range map[string]*fakeSender{"p1": s1, "p2": s2} {
		if n := s.countOfType(t, protocol.TypeGuessResult); n != 3 {
			t.Errorf("%s saw %d guess_result frames, want 3", name, n)
		}
		if n := s.countOfType(t, protocol.TypeTurnChange); n != 3 {
			t.Errorf("%s saw %d turn_change frames, want 3", name, n)
		}
	}
}
