package element

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

func TestModifier_Symmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.SampledFrom(All).Draw(t, "attacker")
		d := rapid.SampledFrom(All).Draw(t, "defender")
		r := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		m := Modifier(r, a, d)
		switch {
		case Beats(a, d):
			if m < minBonus || m > maxBonus {
				t.Fatalf("%s vs %s: got %v, want in [0.1,0.3]", a, d, m)
			}
		case Beats(d, a):
			if m > -minBonus || m < -maxBonus {
				t.Fatalf("%s vs %s: got %v, want in [-0.3,-0.1]", a, d, m)
			}
		default:
			if m != 0 {
				t.Fatalf("%s vs %s: got %v, want 0", a, d, m)
			}
		}
	})
}

func TestModifier_SameAndUnknown(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, e := range All {
		if m := Modifier(r, e, e); m != 0 {
			t.Fatalf("%s vs itself: got %v", e, m)
		}
		if m := Modifier(r, e, Unknown); m != 0 {
			t.Fatalf("%s vs Unknown: got %v", e, m)
		}
		if m := Modifier(r, Unknown, e); m != 0 {
			t.Fatalf("Unknown vs %s: got %v", e, m)
		}
	}
}

func TestModifier_Cycle(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pairs := [][2]Element{
		{Light, Corrupted}, {Dark, Light}, {Corrupted, Dark},
		{Nature, Electric}, {Electric, Water}, {Water, Fire},
		{Fire, Nature}, {Wind, Electric},
	}
	for _, p := range pairs {
		if Modifier(r, p[0], p[1]) <= 0 {
			t.Fatalf("%s should beat %s", p[0], p[1])
		}
		if Modifier(r, p[1], p[0]) >= 0 {
			t.Fatalf("%s should be weak to %s", p[1], p[0])
		}
	}
}

func TestModifier_Rerolls(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	first := Modifier(r, Fire, Nature)
	for i := 0; i < 20; i++ {
		if Modifier(r, Fire, Nature) != first {
			return
		}
	}
	t.Fatalf("expected re-rolled magnitudes, always got %v", first)
}

func TestParse(t *testing.T) {
	cases := map[string]Element{"fire": Fire, " Wind ": Wind, "CORRUPTED": Corrupted, "": Unknown, "plasma": Unknown}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Fatalf("Parse(%q) = %s, want %s", in, got, want)
		}
	}
}
