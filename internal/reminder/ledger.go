package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/mpreiss/dealbot/internal/chat"
)

// historyScanLimit is how many recent channel messages the scanning ledger
// inspects when deciding whether today's reminder already went out.
const historyScanLimit = 50

// Ledger answers whether today's reminder has already been sent. Two
// implementations exist: [HistoryLedger] derives the answer from the channel
// history itself (no local state), and [PGLedger] keeps a persisted flag.
type Ledger interface {
	// SentToday reports whether a reminder was already sent on the calendar
	// day of `today` (interpreted in the scheduling timezone).
	SentToday(ctx context.Context, today time.Time) (bool, error)

	// MarkSent records that a reminder went out at `at`. Implementations
	// without local state may treat this as a no-op.
	MarkSent(ctx context.Context, at time.Time) error
}

// HistoryLedger infers the sent-today flag by scanning the channel for a
// bot-authored message dated today that carries the reminder [Signature].
// It keeps no state of its own — the channel history is the record.
type HistoryLedger struct {
	gateway   chat.Gateway
	channelID string
	loc       *time.Location
}

// NewHistoryLedger creates a HistoryLedger over the given channel.
func NewHistoryLedger(gateway chat.Gateway, channelID string, loc *time.Location) *HistoryLedger {
	return &HistoryLedger{gateway: gateway, channelID: channelID, loc: loc}
}

// SentToday implements [Ledger].
func (l *HistoryLedger) SentToday(ctx context.Context, today time.Time) (bool, error) {
	msgs, err := l.gateway.History(ctx, l.channelID, historyScanLimit)
	if err != nil {
		return false, err
	}

	botID := l.gateway.BotUserID()
	y, m, d := today.In(l.loc).Date()
	for _, msg := range msgs {
		if msg.AuthorID != botID {
			continue
		}
		my, mm, md := msg.Timestamp.In(l.loc).Date()
		if my == y && mm == m && md == d && strings.Contains(msg.Content, Signature) {
			return true, nil
		}
	}
	return false, nil
}

// MarkSent implements [Ledger]. The sent message itself is the record, so
// there is nothing to persist.
func (l *HistoryLedger) MarkSent(context.Context, time.Time) error {
	return nil
}

// Ensure both ledgers implement Ledger at compile time.
var _ Ledger = (*HistoryLedger)(nil)
