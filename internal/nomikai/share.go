package nomikai

import (
	"math"
	"sort"

	"github.com/susu3304/seisanbot/internal/settle"
)

// netBalances splits every payment among its beneficiaries by weight and
// returns paid minus charged per participant. Charges are rounded with the
// largest-remainder method so the balances sum to exactly zero; equal
// remainders go to the lower user ID first. Payments whose beneficiaries
// all have weight 0 are ignored.
func netBalances(sess *Session) settle.Balances {
	ids := sortedIDs(sess)
	paid := make(map[string]int64, len(ids))
	charge := make(map[string]float64, len(ids))
	var total int64

	for _, pay := range sess.Payments {
		targets := pay.Beneficiaries
		if len(targets) == 0 {
			targets = ids
		}
		var wsum float64
		for _, uid := range targets {
			if p, ok := sess.Participants[uid]; ok {
				wsum += p.Weight
			}
		}
		if wsum == 0 {
			continue
		}
		for _, uid := range targets {
			if p, ok := sess.Participants[uid]; ok {
				charge[uid] += float64(pay.Amount) * (p.Weight / wsum)
			}
		}
		paid[pay.PayerID] += pay.Amount
		total += pay.Amount
	}

	shares := apportion(ids, charge, total)
	out := make(settle.Balances, 0, len(ids))
	for _, uid := range ids {
		out = append(out, settle.Balance{Participant: settle.Participant(uid), Amount: paid[uid] - shares[uid]})
	}
	return out
}

// apportion rounds the exact shares down and hands the units still missing
// from total to the largest fractional parts.
func apportion(ids []string, exact map[string]float64, total int64) map[string]int64 {
	type rem struct {
		uid  string
		frac float64
	}
	out := make(map[string]int64, len(ids))
	rems := make([]rem, 0, len(ids))
	var assigned int64
	for _, uid := range ids {
		f := math.Floor(exact[uid])
		out[uid] = int64(f)
		assigned += int64(f)
		rems = append(rems, rem{uid: uid, frac: exact[uid] - f})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	left := total - assigned
	for i := 0; left > 0 && len(rems) > 0; i = (i + 1) % len(rems) {
		out[rems[i].uid]++
		left--
	}
	for i := len(rems) - 1; left < 0 && len(rems) > 0; i = (i - 1 + len(rems)) % len(rems) {
		out[rems[i].uid]--
		left++
	}
	return out
}
