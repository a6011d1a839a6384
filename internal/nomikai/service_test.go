package nomikai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/seisanbot/internal/settle"
	"github.com/susu3304/seisanbot/internal/solver"
	"github.com/susu3304/seisanbot/internal/solver/bnb"
)

const ch = "100"

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(Options{Solver: bnb.New(nil), TimeLimit: 10 * time.Second, MaxParticipants: 5})
	require.NoError(t, svc.StartSession(ch))
	return svc
}

func TestSessionRequired(t *testing.T) {
	svc := NewService(Options{})
	assert.ErrorIs(t, svc.Join(ch, "1"), ErrNoSession)
	_, err := svc.AddPayment(ch, "1", 100, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.Settle(context.Background(), ch)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, svc.StopSession(ch), ErrSessionMissing)
}

func TestAddPaymentFor(t *testing.T) {
	svc := newTestService(t)
	joined, benJoined, err := svc.AddPaymentFor(ch, "1", 900, "ramen", []string{"2", "", "3", "2"})
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, []string{"2", "3"}, benJoined)

	ids, err := svc.Members(ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	_, err = svc.AddPayment(ch, "1", -1000, "fix")
	assert.ErrorIs(t, err, ErrNegativeTotal)
	_, err = svc.AddPayment(ch, "9", -1, "fix")
	assert.ErrorIs(t, err, ErrNegativeTotal)
}

func TestBalancesLargestRemainder(t *testing.T) {
	svc := newTestService(t)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, svc.Join(ch, id))
	}
	_, err := svc.AddPayment(ch, "1", 1000, "")
	require.NoError(t, err)

	b, err := svc.Balances(ch)
	require.NoError(t, err)
	assert.Equal(t, settle.Balances{
		{Participant: "1", Amount: 666},
		{Participant: "2", Amount: -333},
		{Participant: "3", Amount: -333},
	}, b)
	assert.Zero(t, b.Sum())
}

func TestBalancesWeights(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddPayment(ch, "1", 3000, "")
	require.NoError(t, err)
	joined, err := svc.SetWeight(ch, "2", 2)
	require.NoError(t, err)
	assert.True(t, joined)
	_, err = svc.SetWeight(ch, "3", -1)
	require.NoError(t, err)

	b, err := svc.Balances(ch)
	require.NoError(t, err)
	assert.Equal(t, settle.Balances{
		{Participant: "1", Amount: 2000},
		{Participant: "2", Amount: -2000},
		{Participant: "3", Amount: 0},
	}, b)
}

func TestApportion(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	got := apportion(ids, map[string]float64{"a": 2.5, "b": 2.5, "c": 2.5, "d": 2.5}, 10)
	assert.Equal(t, map[string]int64{"a": 3, "b": 3, "c": 2, "d": 2}, got)

	got = apportion(ids, map[string]float64{"a": 0.1, "b": 0.7, "c": 0.2, "d": 0}, 1)
	assert.Equal(t, map[string]int64{"a": 0, "b": 1, "c": 0, "d": 0}, got)
}

func TestSettleAndComplete(t *testing.T) {
	svc := newTestService(t)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, svc.Join(ch, id))
	}
	_, err := svc.AddPayment(ch, "1", 3000, "dinner")
	require.NoError(t, err)

	res, err := svc.Settle(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, res.Exact)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []SettlementTask{
		{PayerID: "2", PayeeID: "1", Amount: 1000},
		{PayerID: "3", PayeeID: "1", Amount: 1000},
	}, res.Tasks)
	assert.Contains(t, res.Summary, "<@2> → <@1>: 1000 円")

	svc.AttachSettlement(ch, 42)
	done, err := svc.CompleteTask(ch, "1", "3")
	require.NoError(t, err)
	assert.Equal(t, &CompletedTask{
		Task:         SettlementTask{PayerID: "3", PayeeID: "1", Amount: 1000, Completed: true},
		Seq:          1,
		SettlementID: 42,
	}, done)

	_, err = svc.CompleteTask(ch, "3", "1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSettleNothingOwed(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Join(ch, "1"))
	require.NoError(t, svc.Join(ch, "2"))

	res, err := svc.Settle(context.Background(), ch)
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.Equal(t, "精算は不要です", res.Summary)
}

func TestSettleMemberLimits(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Join(ch, "1"))
	_, err := svc.Settle(context.Background(), ch)
	assert.ErrorIs(t, err, ErrTooFewMembers)

	for _, id := range []string{"2", "3", "4", "5", "6"} {
		require.NoError(t, svc.Join(ch, id))
	}
	_, err = svc.Settle(context.Background(), ch)
	assert.ErrorIs(t, err, ErrTooManyMembers)
}

func TestStatus(t *testing.T) {
	svc := newTestService(t)
	txt, err := svc.Status(ch)
	require.NoError(t, err)
	assert.Equal(t, "参加者がいません", txt)

	_, err = svc.AddPayment(ch, "2", 500, "")
	require.NoError(t, err)
	txt, err = svc.Status(ch)
	require.NoError(t, err)
	assert.Equal(t, "総支出: 500 円\n<@2> weight=1.00 paid=500\n", txt)
}
