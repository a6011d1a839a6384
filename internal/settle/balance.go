package settle

// Participant identifies one party of a settlement.
type Participant string

// Balance is a participant's net amount: positive when owed, negative when
// owing.
type Balance struct {
	Participant Participant
	Amount      int64
}

// MaxAmount bounds |Amount| accepted by the surfaces. Flows are solved in
// float64, and sums of this size stay exact for any realistic group.
const MaxAmount int64 = 1_000_000_000_000

// Balances is an ordered balance list. The order fixes the order of the
// returned transfers.
type Balances []Balance

// Sum returns the total of all amounts.
func (b Balances) Sum() int64 {
	var s int64
	for _, x := range b {
		s += x.Amount
	}
	return s
}

// Participants returns the participants in order.
func (b Balances) Participants() []Participant {
	out := make([]Participant, len(b))
	for i, x := range b {
		out[i] = x.Participant
	}
	return out
}

// Validate checks that b can be settled: at least two distinct participants
// whose amounts sum to zero.
func Validate(b Balances) error {
	if len(b) < 2 {
		return &DegenerateInputError{Count: len(b)}
	}
	seen := make(map[Participant]struct{}, len(b))
	for _, x := range b {
		if _, dup := seen[x.Participant]; dup {
			return &DuplicateParticipantError{Participant: x.Participant}
		}
		seen[x.Participant] = struct{}{}
	}
	if r := b.Sum(); r != 0 {
		return &UnbalancedInputError{Residual: r}
	}
	return nil
}

// Residuals applies transfers to b and returns what is left per
// participant, in b's order. A complete settlement leaves all zeros.
// Transfers naming unknown participants are ignored.
func Residuals(b Balances, transfers []Transfer) []int64 {
	idx := make(map[Participant]int, len(b))
	out := make([]int64, len(b))
	for i, x := range b {
		idx[x.Participant] = i
		out[i] = x.Amount
	}
	for _, t := range transfers {
		// paying reduces what the payer owes; receiving reduces what the
		// payee is owed
		if i, ok := idx[t.From]; ok {
			out[i] += t.Amount
		}
		if j, ok := idx[t.To]; ok {
			out[j] -= t.Amount
		}
	}
	return out
}
