package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/nomikai"
	"go.uber.org/zap"
)

func HandleNomikai(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}

	svc := deps.Nomikai
	sub := data.Options[0]
	channelID := i.ChannelID
	userID := interactionUserID(i)

	switch sub.Name {
	case "start":
		err := svc.StartSession(channelID)
		respondSimple(s, i, err, "このチャンネルでセッションを開始しました")
	case "stop":
		err := svc.StopSession(channelID)
		respondSimple(s, i, err, "セッションを終了しました")
	case "join":
		err := svc.Join(channelID, userID)
		respondSimple(s, i, err, "参加者として登録しました")
	case "member":
		uid := getUserID(data, sub, "user")
		if uid == "" {
			respondText(s, i, "ユーザーが指定されていません")
			return
		}
		err := svc.Join(channelID, uid)
		respondSimple(s, i, err, fmt.Sprintf("<@%s> を参加者に追加しました", uid))
	case "weight":
		usersOpt := getStringOption(sub.Options, "users")
		val := getNumberOption(sub.Options, "value")
		if usersOpt == nil || val == nil {
			respondText(s, i, "users と value の指定が必要です")
			return
		}
		ids := parseMentionIDs(*usersOpt)
		if len(ids) == 0 {
			respondText(s, i, "ユーザーのメンション/IDを認識できませんでした")
			return
		}
		var joinedIDs []string
		for _, id := range ids {
			joined, err := svc.SetWeight(channelID, id, *val)
			if err != nil {
				respondText(s, i, err.Error())
				return
			}
			if joined {
				joinedIDs = append(joinedIDs, id)
			}
		}
		respondText(s, i, weightMessage(ids, joinedIDs, *val))
	case "pay":
		amtOpt := getIntOption(sub.Options, "amount")
		if amtOpt == nil {
			respondText(s, i, "金額の指定が必要です")
			return
		}
		memo := ""
		if memoOpt := getStringOption(sub.Options, "memo"); memoOpt != nil {
			memo = *memoOpt
		}
		var beneficiaries []string
		if forOpt := getStringOption(sub.Options, "for"); forOpt != nil {
			beneficiaries = parseMentionIDs(*forOpt)
		}
		joined, benJoined, err := svc.AddPaymentFor(channelID, userID, *amtOpt, memo, beneficiaries)
		if err != nil {
			respondText(s, i, err.Error())
			return
		}
		msg := fmt.Sprintf("%d 円を記録しました", *amtOpt)
		if joined {
			msg += "\nこのユーザーを参加登録しました"
		}
		if len(benJoined) > 0 {
			msg += "\n参加登録: " + mentions(benJoined)
		}
		respondText(s, i, msg)
	case "settle":
		handleNomikaiSettle(s, i, deps)
	case "status":
		txt, err := svc.Status(channelID)
		if err != nil {
			respondText(s, i, err.Error())
			return
		}
		respondText(s, i, txt)
	case "memberlist":
		ids, err := svc.Members(channelID)
		if err != nil {
			respondText(s, i, err.Error())
			return
		}
		if len(ids) == 0 {
			respondText(s, i, "参加者がいません")
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "参加者 (%d名):\n", len(ids))
		for _, id := range ids {
			fmt.Fprintf(&b, "・<@%s>\n", id)
		}
		respondText(s, i, b.String())
	case "done":
		uid := getUserID(data, sub, "user")
		if uid == "" {
			respondText(s, i, "相手の指定が必要です")
			return
		}
		done, err := svc.CompleteTask(channelID, userID, uid)
		if err != nil {
			respondText(s, i, err.Error())
			return
		}
		if done.SettlementID != 0 && deps.Store != nil {
			if err := deps.Store.CompleteTransfer(context.Background(), done.SettlementID, done.Seq); err != nil {
				deps.logger().Error("failed to complete transfer",
					zap.Int64("settlement_id", done.SettlementID),
					zap.Int("seq", done.Seq),
					zap.Error(err),
				)
			}
		}
		t := done.Task
		respondText(s, i, fmt.Sprintf("完了しました: <@%s> ↔ <@%s> %d 円", t.PayerID, t.PayeeID, t.Amount))
	default:
		respondText(s, i, "未知のサブコマンドです")
	}
}

func handleNomikaiSettle(s *discordgo.Session, i *discordgo.InteractionCreate, deps *Deps) {
	if err := deferResponse(s, i); err != nil {
		deps.logger().Warn("failed to defer response", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deps.TimeLimit+time.Minute)
	defer cancel()

	res, err := deps.Nomikai.Settle(ctx, i.ChannelID)
	if err != nil {
		msg := err.Error()
		if in := inputMessage(err); in != "" {
			msg = in
		} else if !isSessionError(err) {
			deps.logger().Error("nomikai settle failed", zap.String("channel_id", i.ChannelID), zap.Error(err))
			msg = "精算の計算に失敗しました"
		}
		editResponse(s, i, msg)
		return
	}

	if len(res.Tasks) > 0 {
		rows := make([]db.Transfer, 0, len(res.Tasks))
		for _, t := range res.Tasks {
			rows = append(rows, db.Transfer{PayerID: t.PayerID, PayeeID: t.PayeeID, Amount: t.Amount})
		}
		id := deps.save(ctx, &db.Settlement{
			RunID:            res.RunID,
			GuildID:          ParseGuildID(i.GuildID),
			ChannelID:        i.ChannelID,
			Source:           db.SourceNomikai,
			Status:           res.Status.String(),
			TimeLimitSeconds: int(deps.TimeLimit / time.Second),
			Transfers:        rows,
		})
		if id != 0 {
			deps.Nomikai.AttachSettlement(i.ChannelID, id)
		}
	}
	if err := editResponse(s, i, res.Summary); err != nil {
		deps.logger().Warn("failed to edit response", zap.Error(err))
	}
}

func isSessionError(err error) bool {
	for _, target := range []error{
		nomikai.ErrNoSession,
		nomikai.ErrTooFewMembers,
		nomikai.ErrTooManyMembers,
		nomikai.ErrNoSettlement,
		nomikai.ErrSettleInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func weightMessage(ids, joinedIDs []string, val float64) string {
	if len(ids) == 1 {
		msg := fmt.Sprintf("<@%s> の比率を %.2f に設定しました", ids[0], val)
		if len(joinedIDs) == 1 {
			msg += "\nこのユーザーを参加登録しました"
		}
		return msg
	}
	msg := fmt.Sprintf("%d 名の比率を %.2f に設定しました", len(ids), val)
	if len(joinedIDs) > 0 {
		msg += "\n参加登録: " + mentions(joinedIDs)
	}
	return msg
}

func mentions(ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("<@%s>", id))
	}
	return strings.Join(parts, ", ")
}
