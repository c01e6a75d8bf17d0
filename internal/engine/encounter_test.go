package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/element"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"pgregory.net/rapid"
)

// tickingClock advances by step on every read.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func player(id string, hp, dmg, armor float64) *Combatant {
	return &Combatant{ID: id, Name: id, Kind: KindPlayer, HP: hp, MaxHP: hp, Damage: dmg, Armor: armor, Luck: 100, Element: element.Unknown}
}

func monster(id string, hp, dmg, armor float64) *Combatant {
	return &Combatant{ID: id, Name: id, Kind: KindMonster, HP: hp, MaxHP: hp, Damage: dmg, Armor: armor, Element: element.Unknown}
}

func noTrip() Rules {
	r := DefaultRules()
	r.TripChecks = false
	r.ShuffleTurnOrder = false
	return r
}

func TestNew_RequiresTwoSides(t *testing.T) {
	if _, err := New("battle", [][]*Combatant{{player("a", 10, 1, 0)}}, DefaultRules()); err != ErrTooFewSides {
		t.Fatalf("expected ErrTooFewSides, got %v", err)
	}
	if _, err := New("battle", [][]*Combatant{{player("a", 10, 1, 0)}, {}}, DefaultRules()); err != ErrTooFewSides {
		t.Fatalf("expected ErrTooFewSides for empty side, got %v", err)
	}
}

func TestStep_WinTransition(t *testing.T) {
	p := player("p", 500, 200, 0)
	m := monster("m", 50, 1, 0)
	e, err := New("pve", [][]*Combatant{{p}, {m}}, noTrip(), WithRand(rand.New(rand.NewSource(1))), WithClock(fixedClock(time.Unix(0, 0))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	act, err := e.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !act.Killed || act.TargetID != "m" {
		t.Fatalf("expected monster to fall, got %+v", act)
	}
	if e.State() != StateSettledWin || e.Winner() != 0 {
		t.Fatalf("expected win for side 0, got %s/%d", e.State(), e.Winner())
	}
	if _, err := e.Step(); err != game.ErrEncounterSettled {
		t.Fatalf("expected ErrEncounterSettled after finish, got %v", err)
	}
	if !e.ClaimSettlement() || e.ClaimSettlement() {
		t.Fatalf("ClaimSettlement must succeed exactly once")
	}
}

func TestReleaseSettlement_AllowsNewClaim(t *testing.T) {
	e, _ := New("pve", [][]*Combatant{{player("p", 100, 1, 0)}, {monster("m", 100, 1, 0)}}, noTrip(), WithClock(fixedClock(time.Unix(0, 0))))
	e.ForceDraw()
	if !e.ClaimSettlement() {
		t.Fatalf("draw must be claimable")
	}
	e.ReleaseSettlement()
	if !e.ClaimSettlement() || e.ClaimSettlement() {
		t.Fatalf("released claim must be claimable exactly once more")
	}
}

func TestClaimSettlement_ActiveRefused(t *testing.T) {
	e, _ := New("pve", [][]*Combatant{{player("p", 100, 1, 0)}, {monster("m", 100, 1, 0)}}, noTrip(), WithClock(fixedClock(time.Unix(0, 0))))
	if e.ClaimSettlement() {
		t.Fatalf("active encounter must not be claimable")
	}
}

func TestStep_DamageFloor(t *testing.T) {
	att := player("p", 1000, 0, 10000)
	def := monster("m", 1000, 0, 10000)
	e, _ := New("pve", [][]*Combatant{{att}, {def}}, noTrip(), WithRand(rand.New(rand.NewSource(2))), WithClock(fixedClock(time.Unix(0, 0))))
	for i := 0; i < 50; i++ {
		act, err := e.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if act.Damage != 1 {
			t.Fatalf("action %d: damage %v, want floor of 1", i, act.Damage)
		}
	}
}

func TestStep_DeadlineDraw(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	clock := func() time.Time { return now }
	rules := noTrip()
	rules.Deadline = time.Minute
	e, _ := New("battle", [][]*Combatant{{player("a", 1000, 1, 0)}, {player("b", 1000, 1, 0)}}, rules, WithClock(clock))
	if _, err := e.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	now = start.Add(2 * time.Minute)
	act, err := e.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if act.Kind != ActionTimeout {
		t.Fatalf("expected timeout action, got %s", act.Kind)
	}
	if e.State() != StateSettledDraw || e.Winner() != NoWinner {
		t.Fatalf("expected draw, got %s/%d", e.State(), e.Winner())
	}
	for _, side := range [][]*Combatant{e.Side(0), e.Side(1)} {
		if !side[0].Alive() {
			t.Fatalf("both sides should still be standing")
		}
	}
}

func TestStep_TripSelfDamage(t *testing.T) {
	rules := DefaultRules()
	rules.ShuffleTurnOrder = false
	a := player("a", 100, 50, 0)
	a.Luck = 0
	b := player("b", 100, 50, 0)
	e, _ := New("battle", [][]*Combatant{{a}, {b}}, rules, WithRand(rand.New(rand.NewSource(4))), WithClock(fixedClock(time.Unix(0, 0))))
	act, err := e.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if act.Kind != ActionTrip || act.ActorID != "a" {
		t.Fatalf("expected a to trip, got %+v", act)
	}
	if a.HP != 90 || b.HP != 100 {
		t.Fatalf("unexpected hp after trip: a=%v b=%v", a.HP, b.HP)
	}
}

func TestStep_LifestealClampedToMax(t *testing.T) {
	a := player("a", 100, 40, 1000)
	a.LifestealPct = 100
	b := monster("b", 1000, 0, 0)
	e, _ := New("pve", [][]*Combatant{{a}, {b}}, noTrip(), WithRand(rand.New(rand.NewSource(5))), WithClock(fixedClock(time.Unix(0, 0))))
	if _, err := e.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if a.HP != a.MaxHP {
		t.Fatalf("lifesteal overhealed: %v > %v", a.HP, a.MaxHP)
	}
	a.HP = 10
	e.Step() // monster
	act, _ := e.Step()
	if act.Healed <= 0 || a.HP > a.MaxHP {
		t.Fatalf("expected a bounded heal, got healed=%v hp=%v", act.Healed, a.HP)
	}
}

func TestSetHP_FractionalMaxHP(t *testing.T) {
	c := &Combatant{HP: 100.456, MaxHP: 100.456}
	c.setHP(c.HP)
	if c.HP > c.MaxHP {
		t.Fatalf("hp %v > max %v", c.HP, c.MaxHP)
	}
	c.setHP(-0.004)
	if c.HP != 0 {
		t.Fatalf("expected 0, got %v", c.HP)
	}
}

func TestNew_RoundsMaxHP(t *testing.T) {
	pet := &Combatant{ID: "p", Name: "p", Kind: KindPet, HP: 2.125, MaxHP: 2.125, Damage: 1}
	e, err := New("raid", [][]*Combatant{{player("a", 100, 10, 0), pet}, {monster("b", 50.005, 5, 0)}}, noTrip())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < e.Sides(); i++ {
		for _, c := range e.Side(i) {
			if c.HP < 0 || c.HP > c.MaxHP || c.MaxHP != round2(c.MaxHP) {
				t.Fatalf("%s hp %v outside [0,%v]", c.ID, c.HP, c.MaxHP)
			}
		}
	}
}

func TestCheatDeath_AtMostOncePerEncounter(t *testing.T) {
	victim := player("v", 100, 1, 0)
	victim.CheatDeathPct = 100
	e, _ := New("battle", [][]*Combatant{{victim}, {monster("m", 100, 1, 0)}}, noTrip(), WithRand(rand.New(rand.NewSource(6))), WithClock(fixedClock(time.Unix(0, 0))))
	revivals := 0
	for i := 0; i < 10000; i++ {
		victim.setHP(0)
		act := &Action{}
		e.afterHit(victim, act)
		if act.Revived {
			revivals++
			if victim.HP != e.rules.RevivalHP {
				t.Fatalf("revived at %v, want %v", victim.HP, e.rules.RevivalHP)
			}
		}
	}
	if revivals != 1 {
		t.Fatalf("expected exactly one revival, got %d", revivals)
	}
}

func TestCheatDeath_OnlyPlayers(t *testing.T) {
	m := monster("m", 10, 0, 0)
	m.CheatDeathPct = 100
	e, _ := New("pve", [][]*Combatant{{player("p", 100, 500, 0)}, {m}}, noTrip(), WithClock(fixedClock(time.Unix(0, 0))))
	e.Step()
	if m.Alive() || e.State() != StateSettledWin {
		t.Fatalf("monsters never cheat death")
	}
}

func TestSelectTarget_WeightedPlayerPet(t *testing.T) {
	p := player("p", 100000, 0, 0)
	pet := &Combatant{ID: "pet", Name: "pet", Kind: KindPet, HP: 100000, MaxHP: 100000}
	m := monster("m", 100, 0, 0)
	e, _ := New("raid", [][]*Combatant{{p, pet}, {m}}, noTrip(), WithRand(rand.New(rand.NewSource(9))), WithClock(fixedClock(time.Unix(0, 0))))
	hits := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if e.selectTarget(m) == p {
			hits++
		}
	}
	ratio := float64(hits) / n
	if ratio < 0.57 || ratio > 0.63 {
		t.Fatalf("player targeted %.3f of the time, want about 0.60", ratio)
	}
	pet.HP = 0
	if e.selectTarget(m) != p {
		t.Fatalf("dead pet must not be targeted")
	}
}

func TestTurnOrder_SkipsDead(t *testing.T) {
	a1 := player("a1", 100, 1, 0)
	a2 := player("a2", 100, 1, 0)
	b1 := player("b1", 100, 1, 0)
	b2 := player("b2", 100, 1, 0)
	e, _ := New("raid2v2", [][]*Combatant{{a1, a2}, {b1, b2}}, noTrip(), WithClock(fixedClock(time.Unix(0, 0))))
	b1.HP = 0
	seen := []string{}
	for i := 0; i < 3; i++ {
		seen = append(seen, e.nextActor().ID)
	}
	want := []string{"a1", "a2", "b2"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("turn order %v, want %v", seen, want)
		}
	}
}

func TestFireballMultiplier(t *testing.T) {
	want := map[int]float64{0: 1, 1: 1.10, 2: 1.20, 3: 1.30, 4: 1.50, 5: 1.75, 6: 2.00, 9: 2.00}
	for tier, m := range want {
		if got := FireballMultiplier(tier); got != m {
			t.Fatalf("tier %d: got %v, want %v", tier, got, m)
		}
	}
}

func TestStep_FireballAlwaysWhenChanceIsOne(t *testing.T) {
	rules := noTrip()
	rules.FireballChance = 1
	a := player("a", 100, 100, 0)
	a.MageTier = 6
	b := monster("b", 100000, 0, 0)
	e, _ := New("pve", [][]*Combatant{{a}, {b}}, rules, WithRand(rand.New(rand.NewSource(10))), WithClock(fixedClock(time.Unix(0, 0))))
	act, _ := e.Step()
	if act.Kind != ActionFireball {
		t.Fatalf("expected fireball, got %s", act.Kind)
	}
	if act.Damage < 200 || act.Damage > 400 {
		t.Fatalf("fireball damage %v outside (100..200)*2", act.Damage)
	}
}

func TestActionLog_EvictsOldest(t *testing.T) {
	l := NewActionLog(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.Append(s)
	}
	got := l.Entries()
	if len(got) != 3 || got[0].Seq != 3 || got[0].Text != "c" || got[2].Seq != 5 || got[2].Text != "e" {
		t.Fatalf("unexpected entries %+v", got)
	}
	if l.LastSeq() != 5 {
		t.Fatalf("LastSeq = %d, want 5", l.LastSeq())
	}
}

func TestEncounter_InvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mk := func(label string, kind Kind) *Combatant {
			hp := rapid.Float64Range(1, 2000).Draw(t, label+"hp")
			return &Combatant{
				ID: label, Name: label, Kind: kind,
				HP: hp, MaxHP: hp,
				Damage:        rapid.Float64Range(0, 300).Draw(t, label+"dmg"),
				Armor:         rapid.Float64Range(0, 300).Draw(t, label+"armor"),
				Luck:          rapid.Float64Range(20, 100).Draw(t, label+"luck"),
				LifestealPct:  rapid.Float64Range(0, 100).Draw(t, label+"ls"),
				CheatDeathPct: rapid.Float64Range(0, 100).Draw(t, label+"cd"),
				MageTier:      rapid.IntRange(0, 6).Draw(t, label+"tier"),
				Element:       rapid.SampledFrom(append([]element.Element{element.Unknown}, element.All...)).Draw(t, label+"el"),
			}
		}
		a := mk("a", KindPlayer)
		pet := mk("pet", KindPet)
		b := mk("b", KindMonster)
		rules := DefaultRules()
		rules.TripChecks = rapid.Bool().Draw(t, "trip")
		rules.Deadline = 10 * time.Minute
		e, err := New("prop", [][]*Combatant{{a, pet}, {b}}, rules,
			WithRand(rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))),
			WithClock(tickingClock(time.Unix(0, 0), time.Second)))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		for steps := 0; !e.Done(); steps++ {
			if steps > 2000 {
				t.Fatalf("encounter did not terminate")
			}
			if _, err := e.Step(); err != nil {
				t.Fatalf("Step: %v", err)
			}
			for _, c := range []*Combatant{a, pet, b} {
				if c.HP < 0 || c.HP > c.MaxHP {
					t.Fatalf("%s hp %v outside [0,%v]", c.ID, c.HP, c.MaxHP)
				}
			}
		}
		switch e.State() {
		case StateSettledWin:
			if e.Winner() < 0 {
				t.Fatalf("win without winner")
			}
		case StateSettledDraw:
			if e.Winner() != NoWinner {
				t.Fatalf("draw with winner %d", e.Winner())
			}
		default:
			t.Fatalf("terminated in %s", e.State())
		}
	})
}
