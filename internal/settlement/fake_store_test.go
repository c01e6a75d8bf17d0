package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/storage"
)

// fakeStore is an in-memory storage.Tx. Transaction snapshots the maps and
// restores them when fn fails.
type fakeStore struct {
	profiles map[string]*game.Profile
	escrows  map[string]*game.Escrow
	ledger   []game.LedgerEntry
	eggs     []game.Egg
	pets     map[string]int64
	failNext int
	txCount  int
}

func newFakeStore(balances map[string]int64) *fakeStore {
	f := &fakeStore{profiles: map[string]*game.Profile{}, escrows: map[string]*game.Escrow{}, pets: map[string]int64{}}
	for id, m := range balances {
		f.profiles[id] = &game.Profile{UserID: id, Money: m}
	}
	return f
}

var errFlaky = errors.New("connection reset")

func (f *fakeStore) snapshot() (map[string]game.Profile, map[string]game.Escrow, int, int) {
	ps := make(map[string]game.Profile, len(f.profiles))
	for k, v := range f.profiles {
		ps[k] = *v
	}
	es := make(map[string]game.Escrow, len(f.escrows))
	for k, v := range f.escrows {
		cp := *v
		cp.Stakes = append([]game.Stake(nil), v.Stakes...)
		es[k] = cp
	}
	return ps, es, len(f.ledger), len(f.eggs)
}

func (f *fakeStore) Transaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	f.txCount++
	ps, es, nl, ne := f.snapshot()
	err := fn(f)
	if err == nil && f.failNext > 0 {
		f.failNext--
		err = errFlaky
	}
	if err != nil {
		f.profiles = map[string]*game.Profile{}
		for k, v := range ps {
			v := v
			f.profiles[k] = &v
		}
		f.escrows = map[string]*game.Escrow{}
		for k, v := range es {
			v := v
			f.escrows[k] = &v
		}
		f.ledger = f.ledger[:nl]
		f.eggs = f.eggs[:ne]
	}
	return err
}

func (f *fakeStore) ListHeldEscrowsBefore(ctx context.Context, before time.Time) ([]game.Escrow, error) {
	var out []game.Escrow
	for _, e := range f.escrows {
		if e.Status == game.EscrowHeld && !e.CreatedAt.After(before) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, userID string) (*game.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, game.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) AdjustMoney(ctx context.Context, userID string, delta int64) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	p.Money += delta
	return nil
}

func (f *fakeStore) DeductMoney(ctx context.Context, userID string, amount int64) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	if p.Money < amount {
		return game.ErrInsufficientFunds
	}
	p.Money -= amount
	return nil
}

func (f *fakeStore) AdjustXP(ctx context.Context, userID string, delta int64) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	p.XP += delta
	return nil
}

func (f *fakeStore) IncrementPvPWins(ctx context.Context, userID string) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	p.PvPWins++
	return nil
}

func (f *fakeStore) AddCrates(ctx context.Context, userID string, rarity game.CrateRarity, n int) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	switch rarity {
	case game.CrateCommon:
		p.Crates.Common += n
	case game.CrateUncommon:
		p.Crates.Uncommon += n
	case game.CrateRare:
		p.Crates.Rare += n
	case game.CrateMagic:
		p.Crates.Magic += n
	case game.CrateLegendary:
		p.Crates.Legendary += n
	}
	return nil
}

func (f *fakeStore) SetTowerProgress(ctx context.Context, userID string, level, prestige int) error {
	p, ok := f.profiles[userID]
	if !ok {
		return game.ErrProfileNotFound
	}
	p.TowerLevel, p.TowerPrestige = level, prestige
	return nil
}

func (f *fakeStore) WriteLedgerEntry(ctx context.Context, e *game.LedgerEntry) error {
	for _, l := range f.ledger {
		if l.IdempotencyKey == e.IdempotencyKey {
			return errors.New("duplicate idempotency key")
		}
	}
	f.ledger = append(f.ledger, *e)
	return nil
}

func (f *fakeStore) CreateEscrow(ctx context.Context, e *game.Escrow) error {
	if _, ok := f.escrows[e.EncounterID]; ok {
		return errors.New("duplicate escrow")
	}
	cp := *e
	cp.CreatedAt = time.Now()
	cp.Stakes = append([]game.Stake(nil), e.Stakes...)
	f.escrows[e.EncounterID] = &cp
	return nil
}

func (f *fakeStore) AddStake(ctx context.Context, encounterID string, s game.Stake) error {
	e, ok := f.escrows[encounterID]
	if !ok {
		return game.ErrEscrowNotFound
	}
	if e.Status != game.EscrowHeld {
		return game.ErrAlreadySettled
	}
	e.Stakes = append(e.Stakes, s)
	return nil
}

func (f *fakeStore) ClaimEscrow(ctx context.Context, encounterID string, status game.EscrowStatus) (*game.Escrow, error) {
	e, ok := f.escrows[encounterID]
	if !ok {
		return nil, game.ErrEscrowNotFound
	}
	if e.Status != game.EscrowHeld {
		return nil, game.ErrAlreadySettled
	}
	e.Status = status
	cp := *e
	return &cp, nil
}

func (f *fakeStore) CountEggsAndPets(ctx context.Context, userID string) (int64, error) {
	n := f.pets[userID]
	for _, e := range f.eggs {
		if e.OwnerID == userID && !e.Hatched {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateEgg(ctx context.Context, e *game.Egg) error {
	f.eggs = append(f.eggs, *e)
	return nil
}

func (f *fakeStore) GetSeat(ctx context.Context, seatID int) (*game.SlotSeat, error) {
	return nil, game.ErrInvalidSeat
}

func (f *fakeStore) AddJackpot(ctx context.Context, seatID int, delta int64) error {
	return game.ErrInvalidSeat
}

func (f *fakeStore) SetSeatDragonHP(ctx context.Context, seatID int, hp float64) error {
	return game.ErrInvalidSeat
}

func (f *fakeStore) ClaimJackpot(ctx context.Context, seatID int, dragonHP float64) (int64, error) {
	return 0, game.ErrInvalidSeat
}

func (f *fakeStore) TouchSeat(ctx context.Context, seatID int, now time.Time) error {
	return game.ErrInvalidSeat
}

func (f *fakeStore) money(id string) int64 { return f.profiles[id].Money }
