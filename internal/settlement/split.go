package settlement

import (
	"sort"
	"strings"

	"github.com/ericogr/idlerpg-arena/internal/game"
)

// Payout is money credited to one winner.
type Payout struct {
	UserID string
	Amount int64
}

// Split divides escrowed stakes for a winning side: each winner gets its
// own stake back plus an even share of the losers' stakes. The remainder of
// an uneven division goes to the first winner. The sum of payouts always
// equals the sum of stakes. No winning stake means no payouts.
func Split(stakes []game.Stake, winner int) ([]Payout, []string) {
	var winners []Payout
	var losers []string
	var pot int64
	for _, st := range stakes {
		if st.Side == winner {
			winners = append(winners, Payout{UserID: st.UserID, Amount: st.Amount})
			continue
		}
		losers = append(losers, st.UserID)
		pot += st.Amount
	}
	if len(winners) == 0 {
		return nil, losers
	}
	share := pot / int64(len(winners))
	rem := pot % int64(len(winners))
	for i := range winners {
		winners[i].Amount += share
	}
	winners[0].Amount += rem
	return winners, losers
}

func joinIDs(ids []string) string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return strings.Join(out, ",")
}
