// Package chat abstracts the Discord workspace behind a small Gateway
// interface so the conversation loop and the reminder scheduler can be
// exercised in tests without a live gateway connection.
package chat

import (
	"context"
	"time"
)

// Message is a single channel message as seen by the bot.
type Message struct {
	// ID is the message's unique identifier within its channel.
	ID string

	// ChannelID identifies the channel the message was posted to.
	ChannelID string

	// AuthorID is the author's user ID.
	AuthorID string

	// AuthorName is the author's display name as shown in the channel.
	AuthorName string

	// Content is the raw message text, including any mention tokens.
	Content string

	// Timestamp is when the message was created.
	Timestamp time.Time

	// MentionIDs lists the user IDs mentioned in the message.
	MentionIDs []string

	// ReferenceID is the ID of the message this one replies to, or empty.
	ReferenceID string
}

// Mentions reports whether the message mentions the given user ID.
func (m Message) Mentions(userID string) bool {
	for _, id := range m.MentionIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Gateway is the set of chat operations the bot consumes. The concrete
// implementation is [Bot]; tests use the mock subpackage.
//
// History returns messages newest-first, mirroring the underlying API;
// callers that need chronological order reverse the slice themselves.
type Gateway interface {
	// BotUserID returns the bot's own user ID, used for mention detection
	// and for recognising the bot's messages in history.
	BotUserID() string

	// ChannelExists reports whether the channel ID resolves to a channel
	// the bot can see.
	ChannelExists(channelID string) bool

	// Send posts content to the channel as a plain message.
	Send(ctx context.Context, channelID, content string) error

	// Reply posts content as a reply to the given message.
	Reply(ctx context.Context, channelID, messageID, content string) error

	// History returns up to limit most recent messages, newest-first.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	// Message fetches a single message by ID.
	Message(ctx context.Context, channelID, messageID string) (*Message, error)

	// Typing shows the "composing" indicator in the channel until the
	// returned stop function is called.
	Typing(channelID string) (stop func())
}
