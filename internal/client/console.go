package client

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SendFunc serializes a client frame and puts it on the wire.
type SendFunc func(frame any) error

// Console dispatches slash commands through a table keyed by command word.
type Console struct {
	session  *Session
	send     SendFunc
	exit     func()
	out      io.Writer
	commands map[string]command
}

type command struct {
	usage string
	help  string
	run   func(args string) error
}

func NewConsole(session *Session, send SendFunc, exit func(), out io.Writer) *Console {
	c := &Console{
		session: session,
		send:    send,
		exit:    exit,
		out:     out,
	}
	c.commands = map[string]command{
		"/guess": {
			usage: "/guess <code>",
			help:  "submit a guess (only on your turn)",
			run:   c.cmdGuess,
		},
		"/chat": {
			usage: "/chat <text>",
			help:  "send a chat message to everyone",
			run:   c.cmdChat,
		},
		"/start": {
			usage: "/start",
			help:  "ask the server to start a game now",
			run:   c.cmdStart,
		},
		"/status": {
			usage: "/status",
			help:  "show your local session state",
			run:   c.cmdStatus,
		},
		"/help": {
			usage: "/help",
			help:  "show this help",
			run:   c.cmdHelp,
		},
		"/exit": {
			usage: "/exit",
			help:  "disconnect and quit",
			run:   c.cmdExit,
		},
	}
	return c
}

// Execute runs one console line. Lines without a leading slash are chat.
func (c *Console) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return c.cmdChat(line)
	}

	word, args, _ := strings.Cut(line, " ")
	cmd, ok := c.commands[word]
	if !ok {
		fmt.Fprintf(c.out, "Unknown command %s, try /help\n", word)
		return nil
	}
	return cmd.run(strings.TrimSpace(args))
}

func (c *Console) cmdGuess(args string) error {
	if args == "" {
		fmt.Fprintln(c.out, "Usage: /guess <code>")
		return nil
	}
	if ok, reason := c.session.CanGuess(); !ok {
		fmt.Fprintf(c.out, "Cannot guess: %s\n", reason)
		return nil
	}
	return c.send(map[string]string{"type": "guess", "guess": args})
}

func (c *Console) cmdChat(args string) error {
	if args == "" {
		fmt.Fprintln(c.out, "Usage: /chat <text>")
		return nil
	}
	return c.send(map[string]string{"type": "chat", "text": args})
}

func (c *Console) cmdStart(string) error {
	return c.send(map[string]string{"type": "start_game"})
}

func (c *Console) cmdStatus(string) error {
	codeLength, attempts := c.session.GameInfo()
	fmt.Fprintf(c.out, "Player: %s\n", c.session.PlayerID())
	fmt.Fprintf(c.out, "Game active: %v\n", c.session.GameActive())
	fmt.Fprintf(c.out, "Your turn: %v\n", c.session.MyTurn())
	if c.session.GameActive() {
		fmt.Fprintf(c.out, "Code length: %d, allowed attempts: %d\n", codeLength, attempts)
	}
	return nil
}

func (c *Console) cmdHelp(string) error {
	words := make([]string, 0, len(c.commands))
	for word := range c.commands {
		words = append(words, word)
	}
	sort.Strings(words)
	fmt.Fprintln(c.out, "Commands:")
	for _, word := range words {
		cmd := c.commands[word]
		fmt.Fprintf(c.out, "  %-18s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (c *Console) cmdExit(string) error {
	c.exit()
	return nil
}
