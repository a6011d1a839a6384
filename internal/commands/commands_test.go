package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/nomikai"
	"github.com/susu3304/seisanbot/internal/settle"
	"github.com/susu3304/seisanbot/internal/solver"
)

func TestParseBalances(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    settle.Balances
		wantErr string
	}{
		{
			name: "spaces",
			in:   "A:10 B:-5 C:-5",
			want: settle.Balances{{Participant: "A", Amount: 10}, {Participant: "B", Amount: -5}, {Participant: "C", Amount: -5}},
		},
		{
			name: "mixed separators",
			in:   "太郎：+3、花子=-3,<@123>:0",
			want: settle.Balances{{Participant: "太郎", Amount: 3}, {Participant: "花子", Amount: -3}, {Participant: "<@123>", Amount: 0}},
		},
		{name: "empty", in: "  ", wantErr: "名前:ポイント"},
		{name: "no separator", in: "A10", wantErr: `"A10"`},
		{name: "missing points", in: "A:", wantErr: `"A:"`},
		{name: "not integer", in: "A:1.5", wantErr: "整数ではありません"},
		{name: "too large", in: "A:2000000000000 B:-2000000000000", wantErr: "大きすぎます"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBalances(tt.in)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTransfers(t *testing.T) {
	assert.Equal(t, "精算は不要です", formatTransfers(nil))
	assert.Equal(t, "結果\nB から A への移動: 5pt\n", formatTransfers([]settle.Transfer{{From: "B", To: "A", Amount: 5}}))
}

func TestSeisanOutcome(t *testing.T) {
	transfers := []settle.Transfer{{From: "B", To: "A", Amount: 5}}

	msg, got, status := seisanOutcome(&settle.Result{Status: solver.StatusOptimal, Transfers: transfers}, nil)
	assert.Contains(t, msg, "B から A への移動: 5pt")
	assert.Equal(t, transfers, got)
	assert.Equal(t, solver.StatusOptimal, status)

	msg, got, status = seisanOutcome(nil, &settle.TimeoutError{BestKnown: transfers})
	assert.Contains(t, msg, "最良の結果")
	assert.Equal(t, transfers, got)
	assert.Equal(t, solver.StatusFeasibleTimeout, status)

	msg, got, _ = seisanOutcome(nil, &settle.TimeoutError{})
	assert.Contains(t, msg, "見つかりませんでした")
	assert.Nil(t, got)

	msg, _, _ = seisanOutcome(nil, &settle.UnbalancedInputError{Residual: 2})
	assert.Equal(t, "2ptずれがあります。", msg)

	msg, _, _ = seisanOutcome(nil, &settle.BackendError{Backend: "cbc", Err: errors.New("boom")})
	assert.Equal(t, "精算の計算に失敗しました", msg)
}

func TestInputMessage(t *testing.T) {
	assert.Equal(t, "2人以上の入力が必要です", inputMessage(&settle.DegenerateInputError{Count: 1}))
	assert.Equal(t, "A が複数回入力されています", inputMessage(&settle.DuplicateParticipantError{Participant: "A"}))
	assert.Empty(t, inputMessage(errors.New("other")))
}

func TestParseMentionIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "22", "333"}, parseMentionIDs("<@1> <@!22> 333 <@1> abc"))
	assert.Empty(t, parseMentionIDs("nobody"))
}

func TestWeightMessage(t *testing.T) {
	assert.Equal(t, "<@1> の比率を 1.50 に設定しました\nこのユーザーを参加登録しました", weightMessage([]string{"1"}, []string{"1"}, 1.5))
	assert.Equal(t, "2 名の比率を 0.00 に設定しました\n参加登録: <@2>", weightMessage([]string{"1", "2"}, []string{"2"}, 0))
}

func TestIsSessionError(t *testing.T) {
	assert.True(t, isSessionError(nomikai.ErrNoSession))
	assert.False(t, isSessionError(errors.New("solver exploded")))
}

func TestClampLimit(t *testing.T) {
	d := &Deps{TimeLimit: 30 * time.Second, MaxTimeLimit: time.Minute}
	assert.Equal(t, 30*time.Second, d.clampLimit(0))
	assert.Equal(t, 5*time.Second, d.clampLimit(5))
	assert.Equal(t, time.Minute, d.clampLimit(3600))
}

type recordingStore struct {
	saved []*db.Settlement
	err   error
}

func (r *recordingStore) SaveSettlement(_ context.Context, s *db.Settlement) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.saved = append(r.saved, s)
	return int64(len(r.saved)), nil
}

func (r *recordingStore) CompleteTransfer(context.Context, int64, int) error { return nil }

func TestDepsSave(t *testing.T) {
	store := &recordingStore{}
	d := &Deps{Store: store}
	assert.Equal(t, int64(1), d.save(context.Background(), &db.Settlement{RunID: "r", GuildID: 5}))
	assert.Zero(t, d.save(context.Background(), &db.Settlement{RunID: "dm"}))
	require.Len(t, store.saved, 1)

	store.err = errors.New("db down")
	assert.Zero(t, d.save(context.Background(), &db.Settlement{RunID: "r2", GuildID: 5}))
	assert.Zero(t, (&Deps{}).save(context.Background(), &db.Settlement{GuildID: 5}))
}

func TestSeisanRecordIsHistoryOnly(t *testing.T) {
	transfers := []settle.Transfer{{From: "B", To: "A", Amount: 5}, {From: "C", To: "A", Amount: 5}}
	rec := seisanRecord("run-1", "123", "chan", solver.StatusOptimal, 30*time.Second, transfers)

	assert.Equal(t, db.SourceSeisan, rec.Source)
	assert.Equal(t, int64(123), rec.GuildID)
	assert.Equal(t, "OPTIMAL", rec.Status)
	assert.Equal(t, 30, rec.TimeLimitSeconds)
	assert.Equal(t, []db.Transfer{{PayerID: "B", PayeeID: "A", Amount: 5}, {PayerID: "C", PayeeID: "A", Amount: 5}}, rec.Transfers)
}

func TestGetCommands(t *testing.T) {
	cmds := GetCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "seisan", cmds[0].Name)
	assert.Equal(t, "nomikai", cmds[1].Name)

	var subs []string
	for _, o := range cmds[1].Options {
		subs = append(subs, o.Name)
	}
	assert.Equal(t, []string{"start", "stop", "join", "member", "weight", "pay", "settle", "status", "memberlist", "done"}, subs)
}

func TestTruncate(t *testing.T) {
	long := make([]rune, maxMessageLen+10)
	for i := range long {
		long[i] = 'あ'
	}
	got := []rune(truncate(string(long)))
	assert.Len(t, got, maxMessageLen)
	assert.Equal(t, "short", truncate("short"))
}
