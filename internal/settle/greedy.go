package settle

import "sort"

// greedy pairs the largest creditor with the largest debtor until every
// balance is zero. It uses at most n-1 transfers and is used as the warm
// start of the model, never as the answer.
func greedy(b Balances) []Transfer {
	type party struct {
		idx int
		amt int64
	}
	var pos, neg []party
	for i, x := range b {
		switch {
		case x.Amount > 0:
			pos = append(pos, party{idx: i, amt: x.Amount})
		case x.Amount < 0:
			neg = append(neg, party{idx: i, amt: -x.Amount})
		}
	}
	sort.SliceStable(pos, func(i, j int) bool { return pos[i].amt > pos[j].amt })
	sort.SliceStable(neg, func(i, j int) bool { return neg[i].amt > neg[j].amt })

	var out []Transfer
	i, j := 0, 0
	for i < len(pos) && j < len(neg) {
		c, d := &pos[i], &neg[j]
		amt := min(c.amt, d.amt)
		out = append(out, Transfer{From: b[d.idx].Participant, To: b[c.idx].Participant, Amount: amt})
		c.amt -= amt
		d.amt -= amt
		if c.amt == 0 {
			i++
		}
		if d.amt == 0 {
			j++
		}
	}
	return out
}
