package settle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Balances
		wantErr error
	}{
		{name: "balanced", in: Balances{{"A", 10}, {"B", -10}}},
		{name: "all zero", in: Balances{{"A", 0}, {"B", 0}, {"C", 0}}},
		{name: "empty", in: nil, wantErr: &DegenerateInputError{Count: 0}},
		{name: "single", in: Balances{{"A", 0}}, wantErr: &DegenerateInputError{Count: 1}},
		{name: "unbalanced", in: Balances{{"A", 5}, {"B", -3}}, wantErr: &UnbalancedInputError{Residual: 2}},
		{name: "owes more than owed", in: Balances{{"A", 1}, {"B", -4}}, wantErr: &UnbalancedInputError{Residual: -3}},
		{name: "duplicate", in: Balances{{"A", 1}, {"A", -1}}, wantErr: &DuplicateParticipantError{Participant: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestUnbalancedInputErrorCarriesResidual(t *testing.T) {
	err := Validate(Balances{{"A", 5}, {"B", -3}})
	var ue *UnbalancedInputError
	require.ErrorAs(t, err, &ue)
	assert.EqualValues(t, 2, ue.Residual)
	assert.Contains(t, err.Error(), "2")
}

func TestResiduals(t *testing.T) {
	b := Balances{{"A", 10}, {"B", -5}, {"C", -5}}
	assert.Equal(t, []int64{10, -5, -5}, Residuals(b, nil))
	assert.Equal(t, []int64{0, 0, 0}, Residuals(b, []Transfer{
		{From: "B", To: "A", Amount: 5},
		{From: "C", To: "A", Amount: 5},
	}))
	assert.Equal(t, []int64{5, 0, -5}, Residuals(b, []Transfer{
		{From: "B", To: "A", Amount: 5},
		{From: "X", To: "Y", Amount: 99},
	}))
}

func TestGreedySettlesEverything(t *testing.T) {
	b := Balances{{"A", 7}, {"B", -3}, {"C", 3}, {"D", -7}, {"E", 0}}
	transfers := greedy(b)
	assert.Equal(t, []int64{0, 0, 0, 0, 0}, Residuals(b, transfers))
	assert.LessOrEqual(t, len(transfers), len(b)-1)
	for _, tr := range transfers {
		assert.Positive(t, tr.Amount)
		assert.NotEqual(t, tr.From, tr.To)
	}
}
