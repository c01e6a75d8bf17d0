package service

import (
	"context"
	"fmt"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/engine"
	"github.com/ericogr/idlerpg-arena/internal/gamedata"
	"github.com/ericogr/idlerpg-arena/internal/settlement"
	"github.com/ericogr/idlerpg-arena/internal/stats"
)

// Adventure fights a single monster picked by the player's level.
func (s *Service) Adventure(ctx context.Context, ch Channel, userID string) (*Outcome, error) {
	kind := constants.KindAdventure
	release, err := s.fights.Acquire(kind, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	prof, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	player, err := s.players.ResolvePlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := s.tables.MonsterForLevel(prof.Level(), s.rng)
	enemy := stats.MonsterCombatant(monsterID(0, m), m)

	enc, err := s.encounter(kind, "", [][]*engine.Combatant{{player}, {enemy}}, s.cfg.Rules(kind))
	if err != nil {
		return nil, err
	}
	if err := s.run(ctx, ch, enc, false); err != nil {
		return nil, err
	}
	g := settlement.Grant{
		UserID: userID,
		Side:   0,
		XP:     m.RollXP(s.rng),
		Egg:    &settlement.EggRoll{Monster: m, Chance: s.cfg.Rewards.EggChance, Cap: s.cfg.Rewards.EggCapAdventure},
	}
	if m.Boss {
		g.Crate, g.Crates = s.tables.RollCrate(s.rng), 1
	}
	return s.settle(ctx, ch, enc, []settlement.Grant{g}, fmt.Sprintf("You met a %s.", m.Name))
}

// Horde sends successive waves at the player; wave n has n monsters. HP
// carries over between waves and the run ends on death, the overall
// deadline or the last wave. It returns the outcome of the last wave
// fought and how many waves were cleared.
func (s *Service) Horde(ctx context.Context, ch Channel, userID string) (*Outcome, int, error) {
	kind := constants.KindHorde
	release, err := s.fights.Acquire(kind, userID)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	prof, err := s.profile(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	player, err := s.players.ResolvePlayer(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	deadline := s.now().Add(s.cfg.Battle.Deadline)
	var last *Outcome
	cleared := 0
	for wave := 1; wave <= s.cfg.Rewards.HordeMaxWaves; wave++ {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			break
		}
		rules := s.cfg.Rules(kind)
		rules.Deadline = remaining

		scale := 1 + 0.1*float64(wave-1)
		enemies := make([]*engine.Combatant, 0, wave)
		var m gamedata.Monster
		for i := 0; i < wave; i++ {
			m = s.tables.MonsterForLevel(prof.Level(), s.rng).Scaled(scale)
			enemies = append(enemies, stats.MonsterCombatant(monsterID(i, m), m))
		}
		enc, err := s.encounter(kind, "", [][]*engine.Combatant{{player}, enemies}, rules)
		if err != nil {
			return nil, cleared, err
		}
		if err := s.run(ctx, ch, enc, false); err != nil {
			return last, cleared, err
		}
		g := settlement.Grant{
			UserID: userID,
			Side:   0,
			XP:     s.cfg.Rewards.HordeWaveXP * int64(wave),
			Egg:    &settlement.EggRoll{Monster: m, Chance: s.cfg.Rewards.EggChance, Cap: s.cfg.Rewards.EggCapTower},
		}
		out, err := s.settle(ctx, ch, enc, []settlement.Grant{g}, fmt.Sprintf("Wave %d", wave))
		if err != nil {
			return last, cleared, err
		}
		last = out
		if enc.State() != engine.StateSettledWin || enc.Winner() != 0 {
			break
		}
		cleared++
	}
	s.say(ctx, ch, fmt.Sprintf("You cleared %d waves of the horde.", cleared))
	return last, cleared, nil
}

func monsterID(i int, m gamedata.Monster) string {
	return fmt.Sprintf("monster:%d:%s", i, m.Name)
}
