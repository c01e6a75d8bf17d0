package storage

import (
	"context"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/game"
)

// Tx is the set of Profile Store operations that may run inside a single
// database transaction. Every money mutation goes through Tx so that stake
// deduction, escrow bookkeeping and payouts commit together.
type Tx interface {
	GetProfile(ctx context.Context, userID string) (*game.Profile, error)
	// AdjustMoney adds delta (which may be negative) without a balance check.
	AdjustMoney(ctx context.Context, userID string, delta int64) error
	// DeductMoney removes amount only if the balance covers it, otherwise
	// game.ErrInsufficientFunds.
	DeductMoney(ctx context.Context, userID string, amount int64) error
	AdjustXP(ctx context.Context, userID string, delta int64) error
	IncrementPvPWins(ctx context.Context, userID string) error
	AddCrates(ctx context.Context, userID string, rarity game.CrateRarity, n int) error
	SetTowerProgress(ctx context.Context, userID string, level, prestige int) error
	WriteLedgerEntry(ctx context.Context, e *game.LedgerEntry) error

	CreateEscrow(ctx context.Context, e *game.Escrow) error
	AddStake(ctx context.Context, encounterID string, s game.Stake) error
	// ClaimEscrow moves a held escrow to status and returns it. A second
	// claim returns game.ErrAlreadySettled.
	ClaimEscrow(ctx context.Context, encounterID string, status game.EscrowStatus) (*game.Escrow, error)

	CountEggsAndPets(ctx context.Context, userID string) (int64, error)
	CreateEgg(ctx context.Context, e *game.Egg) error

	GetSeat(ctx context.Context, seatID int) (*game.SlotSeat, error)
	AddJackpot(ctx context.Context, seatID int, delta int64) error
	SetSeatDragonHP(ctx context.Context, seatID int, hp float64) error
	// ClaimJackpot zeroes the seat pot, restores the dragon and returns
	// the amount that was in the pot.
	ClaimJackpot(ctx context.Context, seatID int, dragonHP float64) (int64, error)
	TouchSeat(ctx context.Context, seatID int, now time.Time) error
}

// Repository is the full Profile Store.
type Repository interface {
	Tx
	// Transaction runs fn inside one database transaction; fn must only use
	// the Tx it receives.
	Transaction(ctx context.Context, fn func(tx Tx) error) error

	CreateProfile(ctx context.Context, p *game.Profile) error
	GetEquippedItems(ctx context.Context, userID string) ([]game.Item, error)
	GetEquippedPet(ctx context.Context, userID string) (*game.Pet, error)
	HighestElement(ctx context.Context, userID string) (string, error)
	GetTopPlayers(ctx context.Context, limit int) ([]game.Profile, error)

	// Escrow recovery and GM history.
	ListHeldEscrowsBefore(ctx context.Context, before time.Time) ([]game.Escrow, error)
	ListEscrows(ctx context.Context, status game.EscrowStatus, limit int) ([]game.Escrow, error)
	ListLedger(ctx context.Context, userID string, limit int) ([]game.LedgerEntry, error)

	// Slot seats.
	EnsureSeats(ctx context.Context, n int, dragonHP float64) error
	ListSeats(ctx context.Context) ([]game.SlotSeat, error)
	FindSeatByOccupant(ctx context.Context, userID string) (*game.SlotSeat, error)
	OccupySeat(ctx context.Context, seatID int, userID string, now time.Time) error
	// VacateSeat frees the seat if userID holds it; an empty userID frees
	// it unconditionally.
	VacateSeat(ctx context.Context, seatID int, userID string) error
	VacateIdleSeats(ctx context.Context, before time.Time) ([]game.SlotSeat, error)
	TrickleJackpot(ctx context.Context, amount int64) (int64, error)

	// Pets and eggs.
	DecayPets(ctx context.Context, hunger, happiness int) (int64, error)
	RemoveRunawayPets(ctx context.Context) (int64, error)
	ListDueEggs(ctx context.Context, now time.Time) ([]game.Egg, error)
	// HatchEgg marks the egg hatched and creates pet in one transaction.
	// It reports false when another worker already hatched it.
	HatchEgg(ctx context.Context, eggID uint, pet *game.Pet) (bool, error)
	ListGrowablePets(ctx context.Context, now time.Time) ([]game.Pet, error)
	SavePet(ctx context.Context, p *game.Pet) error
}
