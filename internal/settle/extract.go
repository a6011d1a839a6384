package settle

import (
	"math"

	"github.com/susu3304/seisanbot/internal/solver"
)

// flowEpsilon is the smallest solved flow treated as a transfer. Solvers
// report integer variables as doubles, so values like 1e-7 are noise.
const flowEpsilon = 1e-6

// Transfer is one payment of a settlement.
type Transfer struct {
	From   Participant
	To     Participant
	Amount int64
}

// extract reads the solved flow of every ordered pair and returns the
// non-zero transfers, ordered by payer then payee in participant order.
func extract(sol *solver.Solution, fm *flowModel) []Transfer {
	out := []Transfer{}
	for i, from := range fm.participants {
		for j, to := range fm.participants {
			if i == j {
				continue
			}
			v := sol.Value(fm.flow[i][j])
			if v <= flowEpsilon {
				continue
			}
			amt := int64(math.Round(v))
			if amt <= 0 {
				continue
			}
			out = append(out, Transfer{From: from, To: to, Amount: amt})
		}
	}
	return out
}
