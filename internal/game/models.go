package game

import (
	"time"

	"gorm.io/gorm"
)

// Profile is the persisted player record the combat core reads stats from
// and settles money/XP into.
type Profile struct {
	gorm.Model
	UserID string `json:"user_id" gorm:"uniqueIndex;size:32"`
	Name   string `json:"name"`
	Money  int64  `json:"money"`
	XP     int64  `json:"xp"`
	// Health is the stored bonus health; base health and level/stat
	// contributions are added by the stat resolver.
	Health float64 `json:"health"`
	StatHP int     `json:"stat_hp"`
	// Luck is the raw stored luck value, roughly in (0, 1.5].
	Luck             float64    `json:"luck"`
	LuckBoosterUntil *time.Time `json:"luck_booster_until"`
	// Classes are not mutually exclusive in storage.
	Classes       []string `json:"classes" gorm:"serializer:json;type:text"`
	PvPWins       int      `json:"pvp_wins" gorm:"column:pvp_wins;index"`
	TowerLevel    int      `json:"tower_level"`
	TowerPrestige int      `json:"tower_prestige"`
	Crates        Crates   `json:"crates" gorm:"embedded;embeddedPrefix:crates_"`
}

func (Profile) TableName() string { return "profile" }

// Level derives the character level from accumulated XP.
func (p *Profile) Level() int { return LevelForXP(p.XP) }

// LuckBoosterActive reports whether the luck booster is running at now.
func (p *Profile) LuckBoosterActive(now time.Time) bool {
	return p.LuckBoosterUntil != nil && p.LuckBoosterUntil.After(now)
}

// Crates counts unopened crates per rarity.
type Crates struct {
	Common    int `json:"common"`
	Uncommon  int `json:"uncommon"`
	Rare      int `json:"rare"`
	Magic     int `json:"magic"`
	Legendary int `json:"legendary"`
}

// CrateRarity names a crate column.
type CrateRarity string

const (
	CrateCommon    CrateRarity = "common"
	CrateUncommon  CrateRarity = "uncommon"
	CrateRare      CrateRarity = "rare"
	CrateMagic     CrateRarity = "magic"
	CrateLegendary CrateRarity = "legendary"
)

// Item is an inventory item; only equipped items contribute to combat.
type Item struct {
	gorm.Model
	OwnerID  string  `json:"owner_id" gorm:"index;size:32"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Damage   float64 `json:"damage"`
	Armor    float64 `json:"armor"`
	Element  string  `json:"element"`
	Equipped bool    `json:"equipped"`
}

func (Item) TableName() string { return "allitems" }

// GrowthStage is a pet's maturity step.
type GrowthStage string

const (
	StageBaby     GrowthStage = "baby"
	StageJuvenile GrowthStage = "juvenile"
	StageYoung    GrowthStage = "young"
	StageAdult    GrowthStage = "adult"
)

// Pet is a hatched monster companion. HP/Attack/Defense already include the
// growth stage multiplier; Base* hold the adult values.
type Pet struct {
	gorm.Model
	OwnerID      string      `json:"owner_id" gorm:"index;size:32"`
	Name         string      `json:"name"`
	Element      string      `json:"element"`
	BaseHP       float64     `json:"base_hp"`
	BaseAttack   float64     `json:"base_attack"`
	BaseDefense  float64     `json:"base_defense"`
	HP           float64     `json:"hp"`
	Attack       float64     `json:"attack"`
	Defense      float64     `json:"defense"`
	Stage        GrowthStage `json:"growth_stage" gorm:"size:16"`
	Hunger       int         `json:"hunger"`
	Happiness    int         `json:"happiness"`
	Equipped     bool        `json:"equipped"`
	NextGrowthAt time.Time   `json:"next_growth_at"`
}

func (Pet) TableName() string { return "monster_pets" }

// Egg is an unhatched pet.
type Egg struct {
	gorm.Model
	OwnerID     string    `json:"owner_id" gorm:"index;size:32"`
	MonsterName string    `json:"monster_name"`
	Element     string    `json:"element"`
	HP          float64   `json:"hp"`
	Attack      float64   `json:"attack"`
	Defense     float64   `json:"defense"`
	HatchAt     time.Time `json:"hatch_at"`
	Hatched     bool      `json:"hatched"`
}

func (Egg) TableName() string { return "monster_eggs" }

// LedgerEntry records one economic transfer for audit/history.
type LedgerEntry struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	From           string    `json:"from" gorm:"column:from_user;index;size:32"`
	To             string    `json:"to" gorm:"column:to_user;index;size:32"`
	Subject        string    `json:"subject"`
	Amount         int64     `json:"amount"`
	Data           string    `json:"data"`
	IdempotencyKey string    `json:"-" gorm:"uniqueIndex;size:96"`
}

func (LedgerEntry) TableName() string { return "transactions" }

// EscrowStatus is the lifecycle of stakes withheld for one encounter.
type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "held"
	EscrowSettled  EscrowStatus = "settled"
	EscrowRefunded EscrowStatus = "refunded"
)

// Stake is one player's withheld money.
type Stake struct {
	UserID string `json:"user_id"`
	Side   int    `json:"side"`
	Amount int64  `json:"amount"`
}

// Escrow holds the stakes of an encounter between deduction and
// settlement. Status only moves away from held once.
type Escrow struct {
	gorm.Model
	EncounterID string       `json:"encounter_id" gorm:"uniqueIndex;size:36"`
	Kind        string       `json:"kind" gorm:"size:32"`
	Subject     string       `json:"subject"`
	Status      EscrowStatus `json:"status" gorm:"index;size:16"`
	Stakes      []Stake      `json:"stakes" gorm:"serializer:json;type:text"`
}

func (Escrow) TableName() string { return "battle_escrows" }

// Total sums all withheld stakes.
func (e *Escrow) Total() int64 {
	var t int64
	for _, s := range e.Stakes {
		t += s.Amount
	}
	return t
}

// SlotSeat is one of the persisted slot machine seats. An empty OccupantID
// means the seat is free.
type SlotSeat struct {
	SeatID       int       `json:"seat_id" gorm:"primaryKey;autoIncrement:false"`
	OccupantID   string    `json:"occupant_id" gorm:"size:32"`
	LastActivity time.Time `json:"last_activity"`
	Jackpot      int64     `json:"jackpot"`
	DragonHP     float64   `json:"dragon_hp"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SlotSeat) TableName() string { return "slot_seats" }

// Free reports whether nobody occupies the seat.
func (s *SlotSeat) Free() bool { return s.OccupantID == "" }
