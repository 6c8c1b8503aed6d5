package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpreiss/dealbot/internal/chat"
	"github.com/mpreiss/dealbot/internal/observe"
)

// Scheduler sends the daily deadline reminder at a fixed local hour and, on
// startup, recovers a reminder missed while the process was down.
type Scheduler struct {
	gateway    chat.Gateway
	channelID  string
	deadlines  []Deadline
	quotes     QuoteSource
	ledger     Ledger
	metrics    *observe.Metrics
	loc        *time.Location
	hour       int
	cutoffHour int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHour sets the local hour (0-23) of the daily send. Default 8.
func WithHour(hour int) Option {
	return func(s *Scheduler) { s.hour = hour }
}

// WithCutoffHour sets the local hour before which a missed reminder is not
// recovered at startup. Defaults to the send hour.
func WithCutoffHour(hour int) Option {
	return func(s *Scheduler) { s.cutoffHour = hour }
}

// WithMetrics attaches the metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a scheduler posting to channelID in the given
// timezone.
func NewScheduler(gateway chat.Gateway, channelID string, deadlines []Deadline, quotes QuoteSource, ledger Ledger, loc *time.Location, opts ...Option) *Scheduler {
	s := &Scheduler{
		gateway:   gateway,
		channelID: channelID,
		deadlines: deadlines,
		quotes:    quotes,
		ledger:    ledger,
		metrics:   observe.DefaultMetrics(),
		loc:       loc,
		hour:      8,
	}
	s.cutoffHour = s.hour
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendReminder composes and posts today's reminder message. The send is not
// retried: on failure the next scheduled run (or the next startup recovery)
// covers it.
func (s *Scheduler) SendReminder(ctx context.Context) error {
	if !s.gateway.ChannelExists(s.channelID) {
		return fmt.Errorf("reminder: channel %s not found, skipping send", s.channelID)
	}

	now := time.Now().In(s.loc)
	quote, err := s.quotes.Quote(ctx, now)
	if err != nil {
		return fmt.Errorf("reminder: get quote: %w", err)
	}

	msg := ComposeMessage(now, s.deadlines, quote)
	if err := s.gateway.Send(ctx, s.channelID, msg); err != nil {
		return fmt.Errorf("reminder: send: %w", err)
	}
	s.metrics.ReminderSent(ctx)

	if err := s.ledger.MarkSent(ctx, now); err != nil {
		slog.Warn("failed to record reminder send", "err", err)
	}
	slog.Info("daily reminder sent", "channel_id", s.channelID, "deadlines", len(s.deadlines))
	return nil
}

// CheckMissed recovers a reminder that should have gone out earlier today
// but did not, typically because the process was down at send time. Before
// the cutoff hour it does nothing; after it, it sends exactly once unless
// the ledger says today's reminder already went out.
func (s *Scheduler) CheckMissed(ctx context.Context, now time.Time) error {
	local := now.In(s.loc)
	if local.Hour() < s.cutoffHour {
		return nil
	}

	sent, err := s.ledger.SentToday(ctx, local)
	if err != nil {
		return fmt.Errorf("reminder: check ledger: %w", err)
	}
	if sent {
		slog.Debug("reminder already sent today, no recovery needed")
		return nil
	}

	slog.Info("recovering missed reminder", "now", local.Format(time.RFC3339))
	return s.SendReminder(ctx)
}

// Run blocks, sending the reminder every day at the configured hour, until
// ctx is cancelled. Send failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.nextRun(time.Now().In(s.loc))
		slog.Debug("next reminder scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.SendReminder(ctx); err != nil {
			slog.Error("scheduled reminder failed", "err", err)
		}
	}
}

// nextRun returns the next occurrence of the send hour strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
