package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericogr/idlerpg-arena/internal/game"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a Repository backed by db.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) with(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return r.with(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateProfile(ctx context.Context, p *game.Profile) error {
	return r.with(ctx).Create(p).Error
}

func (r *gormRepository) GetProfile(ctx context.Context, userID string) (*game.Profile, error) {
	var p game.Profile
	err := r.with(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) profiles(ctx context.Context, userID string) *gorm.DB {
	return r.with(ctx).Model(&game.Profile{}).Where("user_id = ?", userID)
}

// updateProfile applies an update and maps "no rows" to ErrProfileNotFound.
func updateProfile(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrProfileNotFound
	}
	return nil
}

func (r *gormRepository) AdjustMoney(ctx context.Context, userID string, delta int64) error {
	return updateProfile(r.profiles(ctx, userID).UpdateColumn("money", gorm.Expr("money + ?", delta)))
}

func (r *gormRepository) DeductMoney(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return game.ErrInvalidWager
	}
	res := r.profiles(ctx, userID).Where("money >= ?", amount).UpdateColumn("money", gorm.Expr("money - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := r.profiles(ctx, userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return game.ErrProfileNotFound
	}
	return game.ErrInsufficientFunds
}

func (r *gormRepository) AdjustXP(ctx context.Context, userID string, delta int64) error {
	return updateProfile(r.profiles(ctx, userID).UpdateColumn("xp", gorm.Expr("xp + ?", delta)))
}

func (r *gormRepository) IncrementPvPWins(ctx context.Context, userID string) error {
	return updateProfile(r.profiles(ctx, userID).UpdateColumn("pvp_wins", gorm.Expr("pvp_wins + 1")))
}

var crateColumns = map[game.CrateRarity]string{
	game.CrateCommon:    "crates_common",
	game.CrateUncommon:  "crates_uncommon",
	game.CrateRare:      "crates_rare",
	game.CrateMagic:     "crates_magic",
	game.CrateLegendary: "crates_legendary",
}

func (r *gormRepository) AddCrates(ctx context.Context, userID string, rarity game.CrateRarity, n int) error {
	col, ok := crateColumns[rarity]
	if !ok {
		return fmt.Errorf("unknown crate rarity %q", rarity)
	}
	return updateProfile(r.profiles(ctx, userID).UpdateColumn(col, gorm.Expr(col+" + ?", n)))
}

func (r *gormRepository) SetTowerProgress(ctx context.Context, userID string, level, prestige int) error {
	return updateProfile(r.profiles(ctx, userID).UpdateColumns(map[string]interface{}{
		"tower_level":    level,
		"tower_prestige": prestige,
	}))
}

func (r *gormRepository) WriteLedgerEntry(ctx context.Context, e *game.LedgerEntry) error {
	return r.with(ctx).Create(e).Error
}

func (r *gormRepository) ListLedger(ctx context.Context, userID string, limit int) ([]game.LedgerEntry, error) {
	var out []game.LedgerEntry
	q := r.with(ctx).Order("id desc")
	if userID != "" {
		q = q.Where("from_user = ? OR to_user = ?", userID, userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) GetEquippedItems(ctx context.Context, userID string) ([]game.Item, error) {
	var items []game.Item
	if err := r.with(ctx).Where("owner_id = ? AND equipped = ?", userID, true).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormRepository) HighestElement(ctx context.Context, userID string) (string, error) {
	var items []game.Item
	err := r.with(ctx).
		Where("owner_id = ? AND equipped = ?", userID, true).
		Order("CASE WHEN damage > armor THEN damage ELSE armor END DESC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	return items[0].Element, nil
}

func (r *gormRepository) GetEquippedPet(ctx context.Context, userID string) (*game.Pet, error) {
	var p game.Pet
	err := r.with(ctx).Where("owner_id = ? AND equipped = ?", userID, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrNoEquippedPet
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetTopPlayers(ctx context.Context, limit int) ([]game.Profile, error) {
	var users []game.Profile
	if err := r.with(ctx).Order("pvp_wins desc").Order("xp desc").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *gormRepository) CreateEscrow(ctx context.Context, e *game.Escrow) error {
	if e.Status == "" {
		e.Status = game.EscrowHeld
	}
	return r.with(ctx).Create(e).Error
}

func (r *gormRepository) getEscrow(ctx context.Context, encounterID string) (*game.Escrow, error) {
	var e game.Escrow
	err := r.with(ctx).Where("encounter_id = ?", encounterID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) AddStake(ctx context.Context, encounterID string, s game.Stake) error {
	e, err := r.getEscrow(ctx, encounterID)
	if err != nil {
		return err
	}
	if e.Status != game.EscrowHeld {
		return game.ErrAlreadySettled
	}
	e.Stakes = append(e.Stakes, s)
	res := r.with(ctx).Model(e).Where("status = ?", game.EscrowHeld).Select("Stakes").Updates(&game.Escrow{Stakes: e.Stakes})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrAlreadySettled
	}
	return nil
}

func (r *gormRepository) ClaimEscrow(ctx context.Context, encounterID string, status game.EscrowStatus) (*game.Escrow, error) {
	res := r.with(ctx).Model(&game.Escrow{}).
		Where("encounter_id = ? AND status = ?", encounterID, game.EscrowHeld).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	e, err := r.getEscrow(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, game.ErrAlreadySettled
	}
	return e, nil
}

func (r *gormRepository) ListHeldEscrowsBefore(ctx context.Context, before time.Time) ([]game.Escrow, error) {
	var out []game.Escrow
	if err := r.with(ctx).Where("status = ? AND created_at <= ?", game.EscrowHeld, before).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) ListEscrows(ctx context.Context, status game.EscrowStatus, limit int) ([]game.Escrow, error) {
	var out []game.Escrow
	q := r.with(ctx).Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) CountEggsAndPets(ctx context.Context, userID string) (int64, error) {
	var eggs, pets int64
	if err := r.with(ctx).Model(&game.Egg{}).Where("owner_id = ? AND hatched = ?", userID, false).Count(&eggs).Error; err != nil {
		return 0, err
	}
	if err := r.with(ctx).Model(&game.Pet{}).Where("owner_id = ?", userID).Count(&pets).Error; err != nil {
		return 0, err
	}
	return eggs + pets, nil
}

func (r *gormRepository) CreateEgg(ctx context.Context, e *game.Egg) error {
	return r.with(ctx).Create(e).Error
}

func (r *gormRepository) ListDueEggs(ctx context.Context, now time.Time) ([]game.Egg, error) {
	var out []game.Egg
	if err := r.with(ctx).Where("hatched = ? AND hatch_at <= ?", false, now).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) HatchEgg(ctx context.Context, eggID uint, pet *game.Pet) (bool, error) {
	claimed := false
	err := r.with(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&game.Egg{}).Where("id = ? AND hatched = ?", eggID, false).Update("hatched", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true
		return tx.Create(pet).Error
	})
	return claimed, err
}

func (r *gormRepository) DecayPets(ctx context.Context, hunger, happiness int) (int64, error) {
	res := r.with(ctx).Model(&game.Pet{}).
		Where("stage <> ?", game.StageAdult).
		UpdateColumns(map[string]interface{}{
			"hunger":    gorm.Expr("CASE WHEN hunger > ? THEN hunger - ? ELSE 0 END", hunger, hunger),
			"happiness": gorm.Expr("CASE WHEN happiness > ? THEN happiness - ? ELSE 0 END", happiness, happiness),
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) RemoveRunawayPets(ctx context.Context) (int64, error) {
	res := r.with(ctx).
		Where("stage <> ? AND hunger <= 0 AND happiness <= 0", game.StageAdult).
		Delete(&game.Pet{})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) ListGrowablePets(ctx context.Context, now time.Time) ([]game.Pet, error) {
	var out []game.Pet
	if err := r.with(ctx).Where("stage <> ? AND next_growth_at <= ?", game.StageAdult, now).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) SavePet(ctx context.Context, p *game.Pet) error {
	return r.with(ctx).Save(p).Error
}

func (r *gormRepository) EnsureSeats(ctx context.Context, n int, dragonHP float64) error {
	for i := 1; i <= n; i++ {
		seat := game.SlotSeat{SeatID: i, DragonHP: dragonHP}
		if err := r.with(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seat).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *gormRepository) ListSeats(ctx context.Context) ([]game.SlotSeat, error) {
	var out []game.SlotSeat
	if err := r.with(ctx).Order("seat_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) GetSeat(ctx context.Context, seatID int) (*game.SlotSeat, error) {
	var s game.SlotSeat
	err := r.with(ctx).Where("seat_id = ?", seatID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrInvalidSeat
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) FindSeatByOccupant(ctx context.Context, userID string) (*game.SlotSeat, error) {
	var s game.SlotSeat
	err := r.with(ctx).Where("occupant_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrNotSeated
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) seats(ctx context.Context, seatID int) *gorm.DB {
	return r.with(ctx).Model(&game.SlotSeat{}).Where("seat_id = ?", seatID)
}

// updateSeat maps "no rows" to ErrInvalidSeat.
func updateSeat(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrInvalidSeat
	}
	return nil
}

func (r *gormRepository) OccupySeat(ctx context.Context, seatID int, userID string, now time.Time) error {
	if _, err := r.FindSeatByOccupant(ctx, userID); err == nil {
		return game.ErrAlreadySeated
	} else if !errors.Is(err, game.ErrNotSeated) {
		return err
	}
	res := r.seats(ctx, seatID).Where("occupant_id = ?", "").UpdateColumns(map[string]interface{}{
		"occupant_id":   userID,
		"last_activity": now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.GetSeat(ctx, seatID); err != nil {
		return err
	}
	return game.ErrSeatTaken
}

func (r *gormRepository) VacateSeat(ctx context.Context, seatID int, userID string) error {
	q := r.seats(ctx, seatID).Where("occupant_id <> ?", "")
	if userID != "" {
		q = q.Where("occupant_id = ?", userID)
	}
	res := q.UpdateColumn("occupant_id", "")
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrNotSeated
	}
	return nil
}

func (r *gormRepository) TouchSeat(ctx context.Context, seatID int, now time.Time) error {
	return updateSeat(r.seats(ctx, seatID).UpdateColumn("last_activity", now))
}

func (r *gormRepository) VacateIdleSeats(ctx context.Context, before time.Time) ([]game.SlotSeat, error) {
	var idle []game.SlotSeat
	if err := r.with(ctx).Where("occupant_id <> ? AND last_activity < ?", "", before).Find(&idle).Error; err != nil {
		return nil, err
	}
	var out []game.SlotSeat
	for _, s := range idle {
		res := r.seats(ctx, s.SeatID).
			Where("occupant_id = ? AND last_activity < ?", s.OccupantID, before).
			UpdateColumn("occupant_id", "")
		if res.Error != nil {
			return out, res.Error
		}
		if res.RowsAffected > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *gormRepository) AddJackpot(ctx context.Context, seatID int, delta int64) error {
	return updateSeat(r.seats(ctx, seatID).UpdateColumn("jackpot", gorm.Expr("jackpot + ?", delta)))
}

func (r *gormRepository) TrickleJackpot(ctx context.Context, amount int64) (int64, error) {
	res := r.with(ctx).Model(&game.SlotSeat{}).
		Where("occupant_id = ?", "").
		UpdateColumn("jackpot", gorm.Expr("jackpot + ?", amount))
	return res.RowsAffected, res.Error
}

func (r *gormRepository) SetSeatDragonHP(ctx context.Context, seatID int, hp float64) error {
	return updateSeat(r.seats(ctx, seatID).UpdateColumn("dragon_hp", hp))
}

func (r *gormRepository) ClaimJackpot(ctx context.Context, seatID int, dragonHP float64) (int64, error) {
	seat, err := r.GetSeat(ctx, seatID)
	if err != nil {
		return 0, err
	}
	res := r.seats(ctx, seatID).Where("jackpot = ?", seat.Jackpot).UpdateColumns(map[string]interface{}{
		"jackpot":   0,
		"dragon_hp": dragonHP,
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, game.ErrAlreadySettled
	}
	return seat.Jackpot, nil
}
