package cue

import (
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// CommandSink plays a file by running an external player, e.g. "aplay -q"
// or "afplay". The file path is appended as the last argument.
type CommandSink struct {
	name string
	args []string
}

func NewCommandSink(command string) (*CommandSink, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty play command")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, err
	}
	return &CommandSink{name: fields[0], args: fields[1:]}, nil
}

// Play starts the player and returns without waiting for it to finish.
func (s *CommandSink) Play(path string) error {
	args := append(append([]string(nil), s.args...), path)
	cmd := exec.Command(s.name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// BellSink rings the terminal bell regardless of the file.
type BellSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *BellSink) Play(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.W, "\a")
	return err
}

type NopSink struct{}

func (NopSink) Play(string) error { return nil }
