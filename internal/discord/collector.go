package discord

import (
	"context"
	"sync"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/game"
)

// Reply is one chat message handed to a waiting command.
type Reply struct {
	AuthorID string
	Content  string
}

type waiter struct {
	match func(authorID, content string) bool
	ch    chan Reply
}

// Collector routes incoming channel messages to commands waiting for a
// text reply.
type Collector struct {
	mu      sync.Mutex
	waiters map[string][]*waiter
}

func NewCollector() *Collector {
	return &Collector{waiters: make(map[string][]*waiter)}
}

// Dispatch offers a message to the first matching waiter of its channel.
// It reports whether someone consumed it.
func (c *Collector) Dispatch(channelID, authorID, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[channelID]
	for i, w := range list {
		if !w.match(authorID, content) {
			continue
		}
		c.waiters[channelID] = append(list[:i:i], list[i+1:]...)
		if len(c.waiters[channelID]) == 0 {
			delete(c.waiters, channelID)
		}
		w.ch <- Reply{AuthorID: authorID, Content: content}
		return true
	}
	return false
}

// Wait blocks until a message in channelID satisfies match, the timeout
// elapses (game.ErrInputTimeout) or ctx ends.
func (c *Collector) Wait(ctx context.Context, channelID string, match func(authorID, content string) bool, timeout time.Duration) (Reply, error) {
	w := &waiter{match: match, ch: make(chan Reply, 1)}
	c.mu.Lock()
	c.waiters[channelID] = append(c.waiters[channelID], w)
	c.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case r := <-w.ch:
		return r, nil
	case <-t.C:
		if r, ok := c.remove(channelID, w); ok {
			return r, nil
		}
		return Reply{}, game.ErrInputTimeout
	case <-ctx.Done():
		if r, ok := c.remove(channelID, w); ok {
			return r, nil
		}
		return Reply{}, ctx.Err()
	}
}

// remove drops w; if a reply already arrived it is returned instead.
func (c *Collector) remove(channelID string, w *waiter) (Reply, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[channelID]
	for i, x := range list {
		if x == w {
			c.waiters[channelID] = append(list[:i:i], list[i+1:]...)
			if len(c.waiters[channelID]) == 0 {
				delete(c.waiters, channelID)
			}
			return Reply{}, false
		}
	}
	select {
	case r := <-w.ch:
		return r, true
	default:
		return Reply{}, false
	}
}
