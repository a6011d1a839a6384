package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/seisanbot/internal/commands"
	"go.uber.org/zap"
)

// Options configures the bot.
type Options struct {
	Token string
	Deps  *commands.Deps
	// Reminders, when non-nil, is polled for settlements with unpaid
	// transfers every ReminderEvery.
	Reminders     ReminderStore
	ReminderEvery time.Duration
	Logger        *zap.Logger
}

type Bot struct {
	session  *discordgo.Session
	deps     *commands.Deps
	reminder *reminderWorker
	logger   *zap.Logger
}

func New(opts Options) (*Bot, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bot := &Bot{
		session: session,
		deps:    opts.Deps,
		logger:  logger.Named("bot"),
	}
	if opts.Reminders != nil && opts.ReminderEvery > 0 {
		bot.reminder = newReminderWorker(session, opts.Reminders, opts.ReminderEvery, bot.logger)
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	b.logger.Info("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	return b.session.Close()
}
