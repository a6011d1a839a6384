package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/seisanbot/internal/db"
	"go.uber.org/zap"
)

// ReminderStore finds settlements whose transfers are still unpaid.
type ReminderStore interface {
	DueReminders(ctx context.Context, before time.Time) ([]db.Settlement, error)
	MarkReminded(ctx context.Context, settlementID int64, at time.Time) error
}

// reminderSession is the part of the Discord session the worker needs.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// reminderWorker periodically posts unpaid settlement reminders to channels.
type reminderWorker struct {
	store    ReminderStore
	session  reminderSession
	logger   *zap.Logger
	every    time.Duration
	interval time.Duration
	stopChan chan struct{}
	ticker   *time.Ticker
}

func newReminderWorker(session reminderSession, store ReminderStore, every time.Duration, logger *zap.Logger) *reminderWorker {
	return &reminderWorker{
		store:    store,
		session:  session,
		logger:   logger.Named("reminder"),
		every:    every,
		interval: time.Minute,
		stopChan: make(chan struct{}),
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *reminderWorker) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *reminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx, time.Now())
		case <-w.stopChan:
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context, now time.Time) {
	due, err := w.store.DueReminders(ctx, now.Add(-w.every))
	if err != nil {
		w.logger.Error("failed to load due reminders", zap.Error(err))
		return
	}

	for _, s := range due {
		msg := reminderMessage(s)
		if msg == "" {
			continue
		}
		at := now
		if err := w.sendWithRetry(ctx, s.ChannelID, msg); err != nil {
			w.logger.Warn("failed to send reminder", zap.Int64("settlement_id", s.ID), zap.String("channel_id", s.ChannelID), zap.Error(err))
			// retry after a short backoff instead of a full period
			backoff := 2 * time.Minute
			if backoff > w.every {
				backoff = w.every
			}
			at = now.Add(backoff - w.every)
		}
		if err := w.store.MarkReminded(ctx, s.ID, at); err != nil {
			w.logger.Error("failed to mark reminder sent", zap.Int64("settlement_id", s.ID), zap.Error(err))
		}
	}
}

func reminderMessage(s db.Settlement) string {
	if len(s.Transfers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("未完了の支払があります:\n")
	for _, t := range s.Transfers {
		fmt.Fprintf(&b, "%s → %s: %d\n", mention(t.PayerID), mention(t.PayeeID), t.Amount)
	}
	b.WriteString("\n支払ったら /nomikai done で完了にしてください\n※このメッセージは自動投稿です")
	return b.String()
}

// mention formats a Discord user ID as a mention and leaves free-form
// names alone.
func mention(id string) string {
	if id == "" {
		return id
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return id
		}
	}
	return "<@" + id + ">"
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
