package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidIdentity = errors.New("invalid side-channel identity")

type Message struct {
	Title   string
	Content string
	Type    string
}

func (m Message) Text() string {
	if m.Title == "" {
		return m.Content
	}
	return m.Title + "\n\n" + m.Content
}

// SideChannel delivers a message to a recipient identity outside the app,
// best effort.
type SideChannel interface {
	Name() string
	Send(ctx context.Context, identity string, msg Message) error
}

type Settings struct {
	Token   string
	Timeout time.Duration
}

type Factory func(s Settings) (SideChannel, error)

var sideChannels = map[string]Factory{}

func Register(name string, f Factory) {
	sideChannels[strings.ToLower(name)] = f
}

func Open(name string, s Settings) (SideChannel, error) {
	f, ok := sideChannels[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("side channel %q is not registered", name)
	}
	return f(s)
}
