package reminder_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mpreiss/dealbot/internal/chat"
	chatmock "github.com/mpreiss/dealbot/internal/chat/mock"
	"github.com/mpreiss/dealbot/internal/reminder"
)

const (
	testBotID   = "bot-1"
	testChannel = "chan-1"
)

func newTestScheduler(gw *chatmock.Gateway, ledger reminder.Ledger, opts ...reminder.Option) *reminder.Scheduler {
	deadlines := []reminder.Deadline{
		{Name: "Metabit Contract", Date: date(2099, time.March, 10)},
	}
	return reminder.NewScheduler(gw, testChannel, deadlines, reminder.DeterministicSource{}, ledger, time.UTC, opts...)
}

func TestSendReminder_PostsComposedMessage(t *testing.T) {
	t.Parallel()
	gw := &chatmock.Gateway{BotID: testBotID}
	ledger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	s := newTestScheduler(gw, ledger)

	if err := s.SendReminder(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := gw.LastSent()
	if sent == nil {
		t.Fatal("no message was sent")
	}
	if sent.ChannelID != testChannel {
		t.Errorf("channel = %q, want %q", sent.ChannelID, testChannel)
	}
	if !strings.HasPrefix(sent.Content, reminder.Signature) {
		t.Errorf("message should start with the signature: %q", sent.Content)
	}
	if !strings.Contains(sent.Content, "Metabit Contract") {
		t.Errorf("message should list the deadline: %q", sent.Content)
	}
}

func TestSendReminder_MissingChannelIsError(t *testing.T) {
	t.Parallel()
	gw := &chatmock.Gateway{BotID: testBotID, Channels: map[string]bool{}}
	ledger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	s := newTestScheduler(gw, ledger)

	if err := s.SendReminder(context.Background()); err == nil {
		t.Fatal("expected error for missing channel, got nil")
	}
	if len(gw.SentMessages) != 0 {
		t.Errorf("no message should be sent, got %d", len(gw.SentMessages))
	}
}

func TestCheckMissed_BeforeCutoffDoesNothing(t *testing.T) {
	t.Parallel()
	gw := &chatmock.Gateway{BotID: testBotID}
	ledger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	s := newTestScheduler(gw, ledger, reminder.WithCutoffHour(8))

	early := time.Date(2026, time.August, 28, 6, 30, 0, 0, time.UTC)
	if err := s.CheckMissed(context.Background(), early); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.SentMessages) != 0 {
		t.Errorf("before the cutoff nothing should be sent, got %d messages", len(gw.SentMessages))
	}
}

func TestCheckMissed_AlreadySentTodayDoesNothing(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.August, 28, 10, 0, 0, 0, time.UTC)
	gw := &chatmock.Gateway{
		BotID: testBotID,
		HistoryMessages: []chat.Message{
			{
				ID:        "m1",
				AuthorID:  testBotID,
				Content:   reminder.Signature + "\n\nMetabit Contract: 12 days remaining",
				Timestamp: now.Add(-2 * time.Hour),
			},
		},
	}
	ledger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	s := newTestScheduler(gw, ledger, reminder.WithCutoffHour(8))

	if err := s.CheckMissed(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.SentMessages) != 0 {
		t.Errorf("reminder was already sent today, got %d new messages", len(gw.SentMessages))
	}
}

func TestCheckMissed_RecoversExactlyOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.August, 28, 10, 0, 0, 0, time.UTC)
	gw := &chatmock.Gateway{
		BotID: testBotID,
		HistoryMessages: []chat.Message{
			// Yesterday's reminder must not count for today.
			{
				ID:        "m1",
				AuthorID:  testBotID,
				Content:   reminder.Signature + "\n\nMetabit Contract: 13 days remaining",
				Timestamp: now.AddDate(0, 0, -1),
			},
			// A bot message today without the signature must not count either.
			{
				ID:        "m2",
				AuthorID:  testBotID,
				Content:   "Sure, here's that summary you asked for.",
				Timestamp: now.Add(-1 * time.Hour),
			},
		},
	}
	ledger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	s := newTestScheduler(gw, ledger, reminder.WithCutoffHour(8))

	if err := s.CheckMissed(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.SentMessages) != 1 {
		t.Fatalf("expected exactly one recovered reminder, got %d", len(gw.SentMessages))
	}
	if !strings.HasPrefix(gw.SentMessages[0].Content, reminder.Signature) {
		t.Errorf("recovered message should carry the signature: %q", gw.SentMessages[0].Content)
	}
}

func TestHistoryLedger_TimezoneDecidesToday(t *testing.T) {
	t.Parallel()
	// 02:00 UTC on the 29th is still the evening of the 28th in New York.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	sentAt := time.Date(2026, time.August, 29, 2, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.August, 29, 3, 0, 0, 0, time.UTC)

	gw := &chatmock.Gateway{
		BotID: testBotID,
		HistoryMessages: []chat.Message{
			{ID: "m1", AuthorID: testBotID, Content: reminder.Signature, Timestamp: sentAt},
		},
	}
	ledger := reminder.NewHistoryLedger(gw, testChannel, loc)

	sent, err := ledger.SentToday(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sent {
		t.Error("message sent the same local evening should count as today")
	}

	// In UTC the same message lands on the 29th, so the 28th has none.
	utcLedger := reminder.NewHistoryLedger(gw, testChannel, time.UTC)
	sent, err = utcLedger.SentToday(context.Background(), time.Date(2026, time.August, 28, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent {
		t.Error("UTC ledger should not count the 29th message for the 28th")
	}
}
