package nomikai

import "github.com/susu3304/seisanbot/internal/solver"

type Session struct {
	ChannelID    string
	Active       bool
	Participants map[string]*Participant
	Payments     []Payment
	Tasks        []SettlementTask
	// SettlementID is the stored run the current Tasks belong to, 0 when
	// not persisted.
	SettlementID int64
}

type Participant struct {
	UserID  string
	Weight  float64
	PaidSum int64
}

type Payment struct {
	PayerID       string
	Amount        int64
	Memo          string
	Beneficiaries []string // 空なら全参加者対象
}

type SettlementTask struct {
	PayerID   string
	PayeeID   string
	Amount    int64
	Completed bool
}

type SettleResult struct {
	RunID  string
	Status solver.Status
	Tasks  []SettlementTask
	// Exact is false when the time limit ran out and Tasks is the best
	// settlement found rather than a proven minimum.
	Exact   bool
	Summary string
}

// CompletedTask identifies a task marked done by CompleteTask. Seq is the
// task's index in the settlement.
type CompletedTask struct {
	Task         SettlementTask
	Seq          int
	SettlementID int64
}
