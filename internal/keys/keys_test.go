package keys

import "testing"

func TestParticipantsKeyIsOrderIndependent(t *testing.T) {
	a := ParticipantsKey([]string{"2", " 1 ", ""})
	b := ParticipantsKey([]string{"1", "2"})
	if a != b {
		t.Fatalf("expected same key, got %q and %q", a, b)
	}
	if a != "1_2" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestPetKey(t *testing.T) {
	if got := PetKey("42", 7); got != "pet:42:7" {
		t.Fatalf("unexpected pet key %q", got)
	}
}

func TestLedgerKey(t *testing.T) {
	if got := LedgerKey("e1", "u1"); got != "payout:e1:u1" {
		t.Fatalf("unexpected ledger key %q", got)
	}
}
