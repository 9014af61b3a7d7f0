package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/codemaster/backend/internal/client"
	"github.com/codemaster/backend/internal/protocol"
)

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.String("port", "8888", "server port")
	flag.Parse()

	conn, err := net.Dial("tcp", net.JoinHostPort(*host, *port))
	if err != nil {
		log.Fatalf("Failed to connect to %s:%s: %v", *host, *port, err)
	}
	defer conn.Close()

	session := client.NewSession()

	var writeMu sync.Mutex
	send := func(frame any) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err = conn.Write(append(data, '\n'))
		return err
	}

	done := make(chan struct{})
	console := client.NewConsole(session, send, func() {
		conn.Close()
		close(done)
	}, os.Stdout)

	// Server frames: decode, update the session, render.
	go func() {
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 64*1024), protocol.MaxFrameSize)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			ev, err := protocol.DecodeServer([]byte(line))
			if err != nil {
				fmt.Printf("! undecodable server frame: %v\n", err)
				continue
			}
			session.Apply(ev)
			render(session, ev)
		}
		select {
		case <-done:
		default:
			fmt.Println("Disconnected from server")
			close(done)
		}
	}()

	fmt.Println("Type /help for commands.")

	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			if err := console.Execute(stdin.Text()); err != nil {
				fmt.Printf("! send failed: %v\n", err)
				close(done)
				return
			}
		}
	}()

	<-done
}

func render(session *client.Session, ev protocol.ServerEvent) {
	switch ev.Type {
	case protocol.TypeWelcome:
		fmt.Printf("Connected as %s\n", ev.Welcome.PlayerID)
		if ev.Welcome.Message != "" {
			fmt.Println(ev.Welcome.Message)
		}
	case protocol.TypeGameStart:
		fmt.Printf("Game %s started: %d players, code length %d, %d attempts each\n",
			ev.GameStart.GameID, len(ev.GameStart.Players),
			ev.GameStart.CodeLength, ev.GameStart.AllowedAttempts)
	case protocol.TypeYourTurn:
		if ev.YourTurn.Message != "" {
			fmt.Println(ev.YourTurn.Message)
		} else {
			fmt.Println("Your turn!")
		}
	case protocol.TypeTurnChange:
		if ev.TurnChange.PlayerID == session.PlayerID() {
			fmt.Println("Turn: yours")
		} else {
			fmt.Printf("Turn: %s\n", ev.TurnChange.PlayerID)
		}
	case protocol.TypeGuessResult:
		who := ev.GuessResult.PlayerID
		if who == session.PlayerID() {
			who = "you"
		}
		fmt.Printf("Guess %q by %s: %d black, %d white (attempt %d)\n",
			ev.GuessResult.Guess, who,
			ev.GuessResult.BlackMarkers, ev.GuessResult.WhiteMarkers,
			ev.GuessResult.Attempts)
	case protocol.TypeGameEnd:
		if ev.GameEnd.Winner != nil {
			who := *ev.GameEnd.Winner
			if who == session.PlayerID() {
				who = "you"
			}
			fmt.Printf("Game over! Winner: %s. The code was %s\n", who, ev.GameEnd.SecretCode)
		} else {
			fmt.Printf("Game over! Nobody guessed the code %s\n", ev.GameEnd.SecretCode)
		}
	case protocol.TypeChat:
		fmt.Printf("[%s] %s\n", ev.Chat.PlayerID, ev.Chat.Text)
	case protocol.TypeError:
		fmt.Printf("! %s\n", ev.Error.Message)
	}
}
