package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// ErrQuit is returned by ReadLine on Ctrl+C, Ctrl+D or EOF.
var ErrQuit = errors.New("quit")

// Console is a line editor that can print above the prompt while a reply is
// still pending.
type Console struct {
	rl *readline.Instance
	mu sync.Mutex
}

func NewConsole(prompt string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, err
	}
	return &Console{rl: rl}, nil
}

func (c *Console) Close() {
	if c.rl != nil {
		_ = c.rl.Close()
	}
}

// Println writes s above the prompt.
func (c *Console) Println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = c.rl.Write([]byte(strings.ReplaceAll(s, "\n", "\r\n") + "\r\n"))
	c.rl.Refresh()
}

func (c *Console) ReadLine() (string, error) {
	line, err := c.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrQuit
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask reads one line under a temporary prompt.
func (c *Console) Ask(prompt string) (string, error) {
	c.mu.Lock()
	old := c.rl.Config.Prompt
	c.rl.SetPrompt(prompt)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.rl.SetPrompt(old)
		c.mu.Unlock()
	}()
	return c.ReadLine()
}

// Confirm asks a yes/no question until it gets an answer. Quitting counts
// as no.
func (c *Console) Confirm(question string) bool {
	c.Println(question + " [y/n]")
	for {
		ans, err := c.Ask("> ")
		if err != nil {
			return false
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		c.Println("Please answer y/n.")
	}
}
