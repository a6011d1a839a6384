package nomikai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/seisanbot/internal/settle"
	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
)

var (
	ErrNoSession        = errors.New("セッションが開始されていません")
	ErrSessionMissing   = errors.New("セッションが存在しません")
	ErrNegativeTotal    = errors.New("訂正額により合計が負になります")
	ErrTooFewMembers    = errors.New("参加者が2人以上必要です")
	ErrTaskNotFound     = errors.New("対象のタスクが見つかりません")
	ErrNoSettlement     = errors.New("精算結果が見つかりませんでした")
	ErrTooManyMembers   = errors.New("参加者が多すぎます")
	ErrSettleInProgress = errors.New("精算の計算中です")
)

// Options configures how sessions are settled.
type Options struct {
	Solver    solver.Solver
	TimeLimit time.Duration
	// MaxParticipants caps the session size at settle time; 0 means no cap.
	MaxParticipants int
	Logger          *zap.Logger
}

type Service struct {
	mu       sync.Mutex
	store    map[string]*Session
	settling map[string]bool
	opts     Options
	logger   *zap.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    make(map[string]*Session),
		settling: make(map[string]bool),
		opts:     opts,
		logger:   logger.Named("nomikai"),
	}
}

func (s *Service) StartSession(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.store[channelID]; ok {
		sess.Active = true
		return nil
	}
	s.store[channelID] = &Session{
		ChannelID:    channelID,
		Active:       true,
		Participants: make(map[string]*Participant),
	}
	return nil
}

func (s *Service) StopSession(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[channelID]; !ok {
		return ErrSessionMissing
	}
	delete(s.store, channelID)
	return nil
}

// active returns the running session of channelID. Callers hold s.mu.
func (s *Service) active(channelID string) (*Session, error) {
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return nil, ErrNoSession
	}
	return sess, nil
}

// ensure adds userID with weight 1 when missing and reports whether it did.
func (sess *Session) ensure(userID string) (*Participant, bool) {
	if p, ok := sess.Participants[userID]; ok {
		return p, false
	}
	p := &Participant{UserID: userID, Weight: 1.0}
	sess.Participants[userID] = p
	return p, true
}

func (s *Service) Join(channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return err
	}
	sess.ensure(userID)
	return nil
}

// SetWeight sets the share weight of userID, joining them when needed.
// Negative weights are stored as 0.
func (s *Service) SetWeight(channelID, userID string, w float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return false, err
	}
	p, joined := sess.ensure(userID)
	if w <= 0 || math.IsNaN(w) {
		w = 0
	}
	p.Weight = w
	return joined, nil
}

func (s *Service) AddPayment(channelID, userID string, amount int64, memo string) (bool, error) {
	joined, _, err := s.AddPaymentFor(channelID, userID, amount, memo, nil)
	return joined, err
}

// AddPaymentFor records a payment by payer for specific beneficiaries. An
// empty beneficiaries list shares the payment among all participants.
// Returns: payerJoined, beneficiariesJoinedIDs, error
func (s *Service) AddPaymentFor(channelID, payerID string, amount int64, memo string, beneficiaries []string) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return false, nil, err
	}
	if p, ok := sess.Participants[payerID]; ok && p.PaidSum+amount < 0 {
		return false, nil, ErrNegativeTotal
	}
	if _, ok := sess.Participants[payerID]; !ok && amount < 0 {
		return false, nil, ErrNegativeTotal
	}
	p, joined := sess.ensure(payerID)

	// normalize: remove duplicates and empties, auto-join the rest
	uniq := make(map[string]struct{}, len(beneficiaries))
	var ben, benJoined []string
	for _, id := range beneficiaries {
		if id == "" {
			continue
		}
		if _, seen := uniq[id]; seen {
			continue
		}
		uniq[id] = struct{}{}
		if _, added := sess.ensure(id); added {
			benJoined = append(benJoined, id)
		}
		ben = append(ben, id)
	}
	p.PaidSum += amount
	sess.Payments = append(sess.Payments, Payment{PayerID: payerID, Amount: amount, Memo: memo, Beneficiaries: ben})
	return joined, benJoined, nil
}

func (s *Service) Status(channelID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return "", err
	}
	if len(sess.Participants) == 0 {
		return "参加者がいません", nil
	}
	var total int64
	ids := sortedIDs(sess)
	var b strings.Builder
	for _, uid := range ids {
		total += sess.Participants[uid].PaidSum
	}
	fmt.Fprintf(&b, "総支出: %d 円\n", total)
	for _, uid := range ids {
		p := sess.Participants[uid]
		fmt.Fprintf(&b, "<@%s> weight=%.2f paid=%d\n", uid, p.Weight, p.PaidSum)
	}
	return b.String(), nil
}

// Members returns the participant user IDs of the channel session, sorted.
func (s *Service) Members(channelID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return nil, err
	}
	return sortedIDs(sess), nil
}

// Balances returns each participant's integer net amount (paid minus
// share), ordered by user ID and summing to zero.
func (s *Service) Balances(channelID string) (settle.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return nil, err
	}
	return netBalances(sess), nil
}

// Settle computes the transfers that clear the session with the fewest
// payer/payee pairs. The solve runs without holding the service lock.
func (s *Service) Settle(ctx context.Context, channelID string) (*SettleResult, error) {
	s.mu.Lock()
	sess, err := s.active(channelID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(sess.Participants) < 2 {
		s.mu.Unlock()
		return nil, ErrTooFewMembers
	}
	if s.opts.MaxParticipants > 0 && len(sess.Participants) > s.opts.MaxParticipants {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w (最大 %d 名)", ErrTooManyMembers, s.opts.MaxParticipants)
	}
	if s.settling[channelID] {
		s.mu.Unlock()
		return nil, ErrSettleInProgress
	}
	s.settling[channelID] = true
	balances := netBalances(sess)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.settling, channelID)
		s.mu.Unlock()
	}()

	res := &SettleResult{RunID: uuid.NewString(), Exact: true}
	out, err := settle.Settle(ctx, balances, settle.Options{
		TimeLimit: s.opts.TimeLimit,
		Solver:    s.opts.Solver,
		Logger:    s.logger.With(zap.String("channel_id", channelID)),
		RunID:     res.RunID,
	})
	var timeout *settle.TimeoutError
	switch {
	case errors.As(err, &timeout) && timeout.HasSolution():
		res.Exact = false
		res.Status = solver.StatusFeasibleTimeout
		res.Tasks = toTasks(timeout.BestKnown)
	case errors.As(err, &timeout):
		return nil, ErrNoSettlement
	case err != nil:
		return nil, err
	default:
		res.Status = out.Status
		res.Tasks = toTasks(out.Transfers)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.store[channelID]; ok {
		cur.Tasks = res.Tasks
		cur.SettlementID = 0
	}
	res.Summary = summary(res)
	return res, nil
}

// AttachSettlement links the current tasks of a channel to a stored run.
func (s *Service) AttachSettlement(channelID string, settlementID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.store[channelID]; ok {
		sess.SettlementID = settlementID
	}
}

// CompleteTask marks the first open task between actorID and otherID, in
// either direction, as done.
func (s *Service) CompleteTask(channelID, actorID, otherID string) (*CompletedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.active(channelID)
	if err != nil {
		return nil, err
	}
	for idx := range sess.Tasks {
		t := &sess.Tasks[idx]
		if t.Completed {
			continue
		}
		if (t.PayerID == actorID && t.PayeeID == otherID) || (t.PayerID == otherID && t.PayeeID == actorID) {
			t.Completed = true
			return &CompletedTask{Task: *t, Seq: idx, SettlementID: sess.SettlementID}, nil
		}
	}
	return nil, ErrTaskNotFound
}

func sortedIDs(sess *Session) []string {
	ids := make([]string, 0, len(sess.Participants))
	for uid := range sess.Participants {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	return ids
}

func toTasks(transfers []settle.Transfer) []SettlementTask {
	tasks := make([]SettlementTask, 0, len(transfers))
	for _, t := range transfers {
		tasks = append(tasks, SettlementTask{PayerID: string(t.From), PayeeID: string(t.To), Amount: t.Amount})
	}
	return tasks
}

func summary(res *SettleResult) string {
	if len(res.Tasks) == 0 {
		return "精算は不要です"
	}
	var b strings.Builder
	b.WriteString("支払タスク:\n")
	for _, t := range res.Tasks {
		fmt.Fprintf(&b, "<@%s> → <@%s>: %d 円\n", t.PayerID, t.PayeeID, t.Amount)
	}
	if !res.Exact {
		b.WriteString("※ 時間内に最適解を確認できなかったため、見つかった中で最良の結果です\n")
	}
	return b.String()
}
