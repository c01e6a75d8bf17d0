package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/dedupe"
	"github.com/ericogr/idlerpg-arena/internal/game"
	"github.com/ericogr/idlerpg-arena/internal/keys"
	"github.com/ericogr/idlerpg-arena/internal/logging"
	"github.com/ericogr/idlerpg-arena/internal/tower"
)

// Store is the read side of the profile store used by the HTTP API.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*game.Profile, error)
	GetTopPlayers(ctx context.Context, limit int) ([]game.Profile, error)
	ListLedger(ctx context.Context, userID string, limit int) ([]game.LedgerEntry, error)
	ListEscrows(ctx context.Context, status game.EscrowStatus, limit int) ([]game.Escrow, error)
}

// SeatLister reports the slot machine seats.
type SeatLister interface {
	Seats(ctx context.Context) ([]game.SlotSeat, error)
}

// StatusHandler serves read-only game state.
type StatusHandler struct {
	store Store
	seats SeatLister
}

func NewStatusHandler(store Store, seats SeatLister) *StatusHandler {
	return &StatusHandler{store: store, seats: seats}
}

func (h *StatusHandler) fail(c *gin.Context, msg string, err error) {
	logging.Error(msg, err, logging.Fields{"path": c.FullPath()})
	c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: msg})
}

// ListLeaderboard returns the top players by pvp wins, 10 by default.
func (h *StatusHandler) ListLeaderboard(c *gin.Context) {
	limit := queryLimit(c, 10, 100)
	v, err, _ := dedupe.LeaderboardGroup.Do(keys.LeaderboardKey(limit), func() (interface{}, error) {
		return h.store.GetTopPlayers(c.Request.Context(), limit)
	})
	if err != nil {
		h.fail(c, constants.ErrFailedFetchLeaderboard, err)
		return
	}
	type row struct {
		UserID  string `json:"user_id"`
		Name    string `json:"name"`
		PvPWins int    `json:"pvp_wins"`
		Level   int    `json:"level"`
	}
	players := v.([]game.Profile)
	out := make([]row, 0, len(players))
	for i := range players {
		p := &players[i]
		out = append(out, row{UserID: p.UserID, Name: p.Name, PvPWins: p.PvPWins, Level: p.Level()})
	}
	c.JSON(http.StatusOK, out)
}

// GetPlayerTower returns the player's tower progress.
func (h *StatusHandler) GetPlayerTower(c *gin.Context) {
	p, err := h.store.GetProfile(c.Request.Context(), c.Param("userID"))
	if errors.Is(err, game.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrPlayerNotFound})
		return
	}
	if err != nil {
		h.fail(c, constants.ErrFailedFetchTower, err)
		return
	}
	prog := tower.FromProfile(p)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  p.UserID,
		"level":    prog.Level,
		"prestige": prog.Prestige,
		"started":  prog.Started(),
		"at_top":   prog.AtTop(),
	})
}

func (h *StatusHandler) ListSeats(c *gin.Context) {
	seats, err := h.seats.Seats(c.Request.Context())
	if err != nil {
		h.fail(c, constants.ErrFailedFetchSeats, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// ListLedger returns ledger history, optionally for one ?user=.
func (h *StatusHandler) ListLedger(c *gin.Context) {
	entries, err := h.store.ListLedger(c.Request.Context(), c.Query("user"), queryLimit(c, 50, 500))
	if err != nil {
		h.fail(c, constants.ErrFailedFetchLedger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListEscrows returns escrows in ?status= (held by default).
func (h *StatusHandler) ListEscrows(c *gin.Context) {
	status := game.EscrowStatus(c.DefaultQuery("status", string(game.EscrowHeld)))
	switch status {
	case game.EscrowHeld, game.EscrowSettled, game.EscrowRefunded:
	default:
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	escrows, err := h.store.ListEscrows(c.Request.Context(), status, queryLimit(c, 50, 500))
	if err != nil {
		h.fail(c, constants.ErrFailedFetchEscrows, err)
		return
	}
	if escrows == nil {
		escrows = []game.Escrow{}
	}
	out, err := MarshalIntoSnakeTimestamps(escrows)
	if err != nil {
		h.fail(c, constants.ErrFailedFetchEscrows, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
