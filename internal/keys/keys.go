package keys

import (
	"fmt"
	"sort"
	"strings"
)

// PlayerKey is the singleflight key for a player's stat profile.
func PlayerKey(userID string) string { return "player:" + userID }

// PetKey is the combatant ID used for a pet inside an encounter.
func PetKey(ownerID string, petID uint) string { return fmt.Sprintf("pet:%s:%d", ownerID, petID) }

// LeaderboardKey is the singleflight key for a leaderboard page.
func LeaderboardKey(limit int) string { return fmt.Sprintf("leaderboard:%d", limit) }

// LedgerKey is the idempotency key of the ledger entry paying userID for an
// encounter.
func LedgerKey(encounterID, userID string) string { return "payout:" + encounterID + ":" + userID }

// RewardKey is the idempotency key of the ledger entry for a PvE money
// reward.
func RewardKey(encounterID, userID string) string { return "reward:" + encounterID + ":" + userID }

// ParticipantsKey produces a canonical key for a set of participants.
// Behavior: trims IDs, drops empties, sorts them and joins with underscore.
// Used to detect the same group starting an encounter twice.
func ParticipantsKey(userIDs []string) string {
	parts := make([]string, 0, len(userIDs))
	for _, u := range userIDs {
		s := strings.TrimSpace(u)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	sort.Strings(parts)
	return strings.Join(parts, "_")
}
