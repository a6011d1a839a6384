// Package settle computes minimum-transfer settlements.
//
// Given each participant's net balance (positive when owed, negative when
// owing) Settle returns payments that bring every balance to zero while
// using as few distinct payer/payee pairs as possible. The problem is posed
// as a mixed-integer program over integer flows and binary "edge used"
// indicators linked by a big-M constraint, solved by any solver.Solver
// backend, and read back into an ordered transfer list.
//
//	res, err := settle.Settle(ctx, settle.Balances{
//		{Participant: "A", Amount: 10},
//		{Participant: "B", Amount: -5},
//		{Participant: "C", Amount: -5},
//	}, settle.Options{TimeLimit: 30 * time.Second, Solver: bnb.New(logger)})
//
// A settlement computation owns its model and solution; nothing is shared
// across calls.
package settle
