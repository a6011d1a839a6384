package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	minLimit := 1.0
	minWeight := 0.0
	return []*discordgo.ApplicationCommand{
		{
			Name:         "seisan",
			Description:  "ポイントの精算を最小の取引回数で計算します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "balances",
					Description: "名前:ポイント をスペース区切りで (例: A:10 B:-5 C:-5)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "time_limit",
					Description: "計算時間の上限[sec]",
					MinValue:    &minLimit,
				},
			},
		},
		{
			Name:         "nomikai",
			Description:  "飲み会の割り勘を管理します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("start", "このチャンネルでセッションを開始します"),
				subcommand("stop", "セッションを終了します"),
				subcommand("join", "参加者として登録します"),
				subcommand("member", "参加者を追加します", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "追加するユーザー",
					Required:    true,
				}),
				subcommand("weight", "支払比率を設定します",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "users",
						Description: "対象ユーザー (メンションを複数指定可)",
						Required:    true,
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionNumber,
						Name:        "value",
						Description: "比率 (標準は 1.0)",
						Required:    true,
						MinValue:    &minWeight,
					},
				),
				subcommand("pay", "支払を記録します",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "amount",
						Description: "金額 (負の値で訂正)",
						Required:    true,
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "memo",
						Description: "メモ",
					},
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "for",
						Description: "対象者 (省略時は全員)",
					},
				),
				subcommand("settle", "取引回数が最小になる精算を計算します"),
				subcommand("status", "支払状況を表示します"),
				subcommand("memberlist", "参加者一覧を表示します"),
				subcommand("done", "支払の完了を記録します", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "支払の相手",
					Required:    true,
				}),
			},
		},
	}
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     opts,
	}
}

func boolPtr(b bool) *bool {
	return &b
}
