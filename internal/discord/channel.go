package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/present"
	"github.com/ericogr/idlerpg-arena/internal/service"
)

// Sender is the part of the Discord REST API the adapter needs.
type Sender interface {
	Send(channelID, content string) (messageID string, err error)
	Edit(channelID, messageID, content string) error
}

// acceptWords are the replies that join a pending battle.
var acceptWords = []string{"accept", "join", "yes"}

// Channel presents one command's encounter in a text channel. Snapshots
// edit a single message so a fight does not flood the channel.
type Channel struct {
	sender    Sender
	collector *Collector
	channelID string

	mu        sync.Mutex
	messageID string
}

var _ service.Channel = (*Channel)(nil)

func NewChannel(sender Sender, collector *Collector, channelID string) *Channel {
	return &Channel{sender: sender, collector: collector, channelID: channelID}
}

func (c *Channel) RenderSnapshot(ctx context.Context, snap engine.Snapshot) error {
	text := present.Snapshot(snap)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messageID != "" {
		if err := c.sender.Edit(c.channelID, c.messageID, text); err == nil {
			return nil
		}
		// The message may have been deleted; start a new one.
	}
	id, err := c.sender.Send(c.channelID, text)
	if err != nil {
		return err
	}
	c.messageID = id
	return nil
}

func (c *Channel) RenderOutcome(ctx context.Context, out service.Outcome) error {
	c.mu.Lock()
	c.messageID = ""
	c.mu.Unlock()
	_, err := c.sender.Send(c.channelID, present.Outcome(out.Snapshot, out.Result, out.Notes))
	return err
}

func (c *Channel) Say(ctx context.Context, text string) error {
	_, err := c.sender.Send(c.channelID, text)
	return err
}

func (c *Channel) Prompt(ctx context.Context, userID, text string) error {
	_, err := c.sender.Send(c.channelID, fmt.Sprintf("<@%s> %s", userID, text))
	return err
}

func (c *Channel) Await(ctx context.Context, userID string, timeout time.Duration) (string, error) {
	r, err := c.collector.Wait(ctx, c.channelID, func(author, _ string) bool { return author == userID }, timeout)
	if err != nil {
		return "", err
	}
	return r.Content, nil
}

func (c *Channel) AwaitAccept(ctx context.Context, text string, accept func(userID string) bool, timeout time.Duration) (string, error) {
	if _, err := c.sender.Send(c.channelID, text+" (reply `accept`)"); err != nil {
		return "", err
	}
	r, err := c.collector.Wait(ctx, c.channelID, func(author, content string) bool {
		return isAccept(content) && accept(author)
	}, timeout)
	if err != nil {
		return "", err
	}
	return r.AuthorID, nil
}

func isAccept(content string) bool {
	s := strings.ToLower(strings.TrimSpace(content))
	for _, w := range acceptWords {
		if s == w {
			return true
		}
	}
	return false
}

// Notifier posts operator alerts to a fixed channel.
type Notifier struct {
	sender    Sender
	channelID string
}

func NewNotifier(sender Sender, channelID string) *Notifier {
	return &Notifier{sender: sender, channelID: channelID}
}

func (n *Notifier) NotifyOperators(ctx context.Context, text string) error {
	if n.channelID == "" {
		return nil
	}
	_, err := n.sender.Send(n.channelID, text)
	return err
}
