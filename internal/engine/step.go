package engine

import (
	"fmt"

	"github.com/ericogr/idlerpg-arena/internal/element"
	"github.com/ericogr/idlerpg-arena/internal/game"
)

type ActionKind string

const (
	ActionAttack   ActionKind = "attack"
	ActionFireball ActionKind = "fireball"
	ActionTrip     ActionKind = "trip"
	ActionTimeout  ActionKind = "timeout"
)

// Action describes what one Step did. Text is the line appended to the log.
type Action struct {
	Seq        int
	Kind       ActionKind
	ActorID    string
	TargetID   string
	Damage     float64
	Healed     float64
	ElementPct float64
	Revived    bool
	Killed     bool
	Text       string
}

// Step resolves exactly one action and returns it. On an encounter whose
// deadline has passed it ends the fight as a draw and returns a timeout
// action. Calling Step on a finished encounter returns
// game.ErrEncounterSettled.
func (e *Encounter) Step() (*Action, error) {
	if e.state != StateActive {
		return nil, game.ErrEncounterSettled
	}
	if e.deadlinePassed() {
		e.finish(StateSettledDraw, NoWinner)
		return e.record(&Action{Kind: ActionTimeout, Text: "Time is up! The battle ends in a draw."}), nil
	}
	attacker := e.nextActor()
	if attacker == nil {
		e.checkTerminal()
		return nil, game.ErrEncounterSettled
	}
	var act *Action
	if e.rules.TripChecks && e.trips(attacker) {
		act = e.trip(attacker)
	} else {
		target := e.selectTarget(attacker)
		if target == nil {
			e.checkTerminal()
			return nil, game.ErrEncounterSettled
		}
		act = e.attack(attacker, target)
	}
	e.actions++
	e.record(act)
	e.checkTerminal()
	return act, nil
}

func (e *Encounter) record(a *Action) *Action {
	entry := e.log.Append(a.Text)
	a.Seq = entry.Seq
	return a
}

// trips rolls 1..100 against luck; a roll not below luck fails the attack.
func (e *Encounter) trips(c *Combatant) bool {
	luck := c.Luck
	if c.Kind == KindMonster {
		luck = e.rules.MonsterLuck
	}
	roll := e.rng.Intn(100) + 1
	return float64(roll) >= luck
}

func (e *Encounter) trip(c *Combatant) *Action {
	before := c.HP
	c.setHP(c.HP - e.rules.TripDamage)
	act := &Action{Kind: ActionTrip, ActorID: c.ID, TargetID: c.ID, Damage: round2(before - c.HP)}
	act.Text = fmt.Sprintf("%s tripped and took %s damage.", c.Name, fmtNum(act.Damage))
	e.afterHit(c, act)
	return act
}

func (e *Encounter) variance(c *Combatant) int {
	if c.Kind == KindPlayer {
		return e.rules.PlayerVariance
	}
	return e.rules.OtherVariance
}

// rawDamage is damage + roll - armor, floored at 1.
func (e *Encounter) rawDamage(att, def *Combatant, variance int) float64 {
	d := att.Damage + float64(e.rng.Intn(variance+1)) - def.Armor
	if d < 1 {
		d = 1
	}
	return d
}

func (e *Encounter) attack(att, def *Combatant) *Action {
	act := &Action{Kind: ActionAttack, ActorID: att.ID, TargetID: def.ID}
	var dmg float64
	if att.MageTier > 0 && e.rng.Float64() < e.rules.FireballChance {
		act.Kind = ActionFireball
		dmg = e.rawDamage(att, def, e.rules.FireballVariance) * FireballMultiplier(att.MageTier)
	} else {
		dmg = e.rawDamage(att, def, e.variance(att))
	}
	act.ElementPct = element.Modifier(e.rng, att.Element, def.Element)
	dmg = round2(dmg * (1 + act.ElementPct))

	def.setHP(def.HP - dmg)
	act.Damage = dmg

	if att.LifestealPct > 0 {
		hpBefore := att.HP
		att.setHP(att.HP + att.LifestealPct/100*dmg)
		act.Healed = round2(att.HP - hpBefore)
	}

	verb := "hits"
	if act.Kind == ActionFireball {
		verb = "casts Fireball at"
	}
	act.Text = fmt.Sprintf("%s %s %s for %s damage.", att.Name, verb, def.Name, fmtNum(dmg))
	if act.ElementPct > 0 {
		act.Text += " It's super effective!"
	} else if act.ElementPct < 0 {
		act.Text += " It's not very effective."
	}
	if act.Healed > 0 {
		act.Text += fmt.Sprintf(" %s steals %s HP.", att.Name, fmtNum(act.Healed))
	}
	e.afterHit(def, act)
	return act
}

// afterHit resolves death and cheat-death for a combatant that may have
// just been reduced to 0 HP.
func (e *Encounter) afterHit(c *Combatant, act *Action) {
	if c.Alive() {
		return
	}
	if e.tryCheatDeath(c) {
		act.Revived = true
		act.Text += fmt.Sprintf(" %s cheats death and rises with %s HP!", c.Name, fmtNum(c.HP))
		return
	}
	act.Killed = true
	act.Text += fmt.Sprintf(" %s has fallen.", c.Name)
}

// tryCheatDeath spends a player's single cheat-death chance.
func (e *Encounter) tryCheatDeath(c *Combatant) bool {
	if c.Kind != KindPlayer || c.CheatDeathUsed || c.CheatDeathPct <= 0 {
		return false
	}
	c.CheatDeathUsed = true
	if float64(e.rng.Intn(100)+1) > c.CheatDeathPct {
		return false
	}
	c.setHP(e.rules.RevivalHP)
	return c.Alive()
}

func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
