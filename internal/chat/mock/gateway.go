// Package mock provides a test double for the chat.Gateway interface.
//
// Gateway serves a canned history and records every outbound send and reply
// so tests can assert on the bot's user-visible behaviour without a live
// Discord connection.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/mpreiss/dealbot/internal/chat"
)

// ErrNotFound is returned by Message for IDs absent from Messages.
var ErrNotFound = errors.New("mock: message not found")

// Sent records a single outbound message.
type Sent struct {
	// ChannelID is the destination channel.
	ChannelID string

	// ReplyToID is the message replied to, or empty for a plain send.
	ReplyToID string

	// Content is the message text.
	Content string
}

// Gateway is a mock implementation of chat.Gateway.
type Gateway struct {
	mu sync.Mutex

	// BotID is returned by BotUserID.
	BotID string

	// Channels lists channel IDs that ChannelExists reports as present.
	// A nil map means every channel exists.
	Channels map[string]bool

	// HistoryMessages is returned by History (newest-first), truncated to
	// the requested limit.
	HistoryMessages []chat.Message

	// Messages is consulted by Message, keyed by message ID.
	Messages map[string]chat.Message

	// SendErr, if non-nil, is returned by Send and Reply.
	SendErr error

	// HistoryErr, if non-nil, is returned by History.
	HistoryErr error

	// SentMessages records every Send and Reply in order.
	SentMessages []Sent

	// TypingCalls counts Typing invocations.
	TypingCalls int
}

// BotUserID returns BotID.
func (g *Gateway) BotUserID() string { return g.BotID }

// ChannelExists consults Channels, defaulting to true when the map is nil.
func (g *Gateway) ChannelExists(channelID string) bool {
	if channelID == "" {
		return false
	}
	if g.Channels == nil {
		return true
	}
	return g.Channels[channelID]
}

// Send records the message and returns SendErr.
func (g *Gateway) Send(_ context.Context, channelID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return g.SendErr
	}
	g.SentMessages = append(g.SentMessages, Sent{ChannelID: channelID, Content: content})
	return nil
}

// Reply records the message and returns SendErr.
func (g *Gateway) Reply(_ context.Context, channelID, messageID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return g.SendErr
	}
	g.SentMessages = append(g.SentMessages, Sent{ChannelID: channelID, ReplyToID: messageID, Content: content})
	return nil
}

// History returns HistoryMessages truncated to limit.
func (g *Gateway) History(_ context.Context, _ string, limit int) ([]chat.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.HistoryErr != nil {
		return nil, g.HistoryErr
	}
	msgs := g.HistoryMessages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Message looks up a message by ID in Messages.
func (g *Gateway) Message(_ context.Context, _ string, messageID string) (*chat.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.Messages[messageID]; ok {
		return &m, nil
	}
	return nil, ErrNotFound
}

// Typing counts the call and returns a no-op stop function.
func (g *Gateway) Typing(string) (stop func()) {
	g.mu.Lock()
	g.TypingCalls++
	g.mu.Unlock()
	return func() {}
}

// LastSent returns the most recently recorded message, or nil.
func (g *Gateway) LastSent() *Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.SentMessages) == 0 {
		return nil
	}
	return &g.SentMessages[len(g.SentMessages)-1]
}

// Reset clears all recorded messages.
func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SentMessages = nil
	g.TypingCalls = 0
}

// Ensure Gateway implements chat.Gateway at compile time.
var _ chat.Gateway = (*Gateway)(nil)
