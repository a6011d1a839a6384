package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/susu3304/seisanbot/internal/settle"
)

// parseBalances reads "name:points" pairs separated by spaces, commas or
// newlines. "=" and the full-width colon are accepted as separators too.
// Duplicate names and balance sums are left to settle.Validate.
func parseBalances(text string) (settle.Balances, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t' || r == '、' || r == '　'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("名前:ポイント の形式で入力してください")
	}
	out := make(settle.Balances, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, "：", ":")
		idx := strings.LastIndexAny(f, ":=")
		if idx <= 0 || idx == len(f)-1 {
			return nil, fmt.Errorf("%q を 名前:ポイント として読めませんでした", f)
		}
		name, raw := f[:idx], f[idx+1:]
		points, err := strconv.ParseInt(strings.TrimPrefix(raw, "+"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q のポイントが整数ではありません", f)
		}
		if points > settle.MaxAmount || points < -settle.MaxAmount {
			return nil, fmt.Errorf("%q のポイントが大きすぎます (上限 %d)", f, settle.MaxAmount)
		}
		out = append(out, settle.Balance{Participant: settle.Participant(name), Amount: points})
	}
	return out, nil
}

// formatTransfers renders a settlement the way the web form does, one
// transfer per line.
func formatTransfers(transfers []settle.Transfer) string {
	if len(transfers) == 0 {
		return "精算は不要です"
	}
	var b strings.Builder
	b.WriteString("結果\n")
	for _, t := range transfers {
		fmt.Fprintf(&b, "%s から %s への移動: %dpt\n", t.From, t.To, t.Amount)
	}
	return b.String()
}
