package service

import (
	"sync"

	"github.com/ericogr/idlerpg-arena/internal/game"
)

// FightRegistry tracks which players have an encounter in flight. It is
// process-local.
type FightRegistry struct {
	mu     sync.Mutex
	active map[string]string
}

func NewFightRegistry() *FightRegistry {
	return &FightRegistry{active: make(map[string]string)}
}

// Acquire marks every user as fighting kind. If any of them is already
// fighting nothing is acquired and game.ErrConcurrentEncounter is returned.
// The release func is safe to call more than once.
func (r *FightRegistry) Acquire(kind string, userIDs ...string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		if _, busy := r.active[id]; busy {
			return nil, game.ErrConcurrentEncounter
		}
	}
	for _, id := range userIDs {
		r.active[id] = kind
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			for _, id := range userIDs {
				delete(r.active, id)
			}
			r.mu.Unlock()
		})
	}, nil
}

// Busy reports the kind of encounter userID is in.
func (r *FightRegistry) Busy(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind, ok := r.active[userID]
	return kind, ok
}
