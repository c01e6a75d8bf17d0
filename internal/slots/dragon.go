package slots

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/storage"
)

// DragonResult describes one dragon fight.
type DragonResult struct {
	Damage   float64
	DragonHP float64
	Slain    bool
	Jackpot  int64
	Log      []engine.LogEntry
}

func dragonRules(rounds int) engine.Rules {
	r := engine.DefaultRules()
	r.TripChecks = false
	r.ShuffleTurnOrder = false
	r.LogCapacity = rounds
	return r
}

// fightDragon runs a short encounter against the seat dragon, starting from
// its persisted HP. The dragon's remaining HP is written back; slaying it
// pays out the seat jackpot and restores the dragon.
func (m *Machine) fightDragon(ctx context.Context, userID string, seatID int, hp float64) (*DragonResult, error) {
	player, err := m.players.ResolvePlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hp <= 0 {
		hp = m.cfg.DragonHP
	}
	dragon := &engine.Combatant{
		ID:     fmt.Sprintf("dragon:%d", seatID),
		Name:   "Dragon",
		Kind:   engine.KindMonster,
		HP:     hp,
		MaxHP:  m.cfg.DragonHP,
		Damage: m.cfg.DragonDamage,
		Armor:  m.cfg.DragonArmor,
	}
	rounds := m.cfg.DragonRounds
	if rounds <= 0 {
		rounds = 6
	}

	m.mu.Lock()
	seed := m.rng.Int63()
	m.mu.Unlock()
	enc, err := engine.New(constants.KindDragon, [][]*engine.Combatant{{player}, {dragon}}, dragonRules(rounds),
		engine.WithRand(newSeeded(seed)), engine.WithClock(m.now))
	if err != nil {
		return nil, err
	}
	for i := 0; i < rounds && !enc.Done(); i++ {
		if _, err := enc.Step(); err != nil {
			break
		}
	}

	res := &DragonResult{Damage: hp - dragon.HP, DragonHP: dragon.HP, Log: enc.Log().Entries()}
	err = m.store.Transaction(ctx, func(tx storage.Tx) error {
		if dragon.Alive() {
			return game.WrapIO("set dragon hp", tx.SetSeatDragonHP(ctx, seatID, dragon.HP))
		}
		won, err := tx.ClaimJackpot(ctx, seatID, m.cfg.DragonHP)
		if err != nil {
			return game.WrapIO("claim jackpot", err)
		}
		res.Slain = true
		res.Jackpot = won
		res.DragonHP = m.cfg.DragonHP
		if won > 0 {
			return m.credit(ctx, tx, userID, won, constants.SubjectSlotsJackpot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Slain {
		logging.Info("dragon slain", logging.Fields{constants.LogFieldUserID: userID, constants.LogFieldSeatID: seatID, constants.LogFieldAmount: res.Jackpot})
	}
	return res, nil
}

func newSeeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }
