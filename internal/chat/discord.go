package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// typingRefresh is how often the typing indicator is re-triggered while a
// turn is in flight. Discord drops the indicator after roughly ten seconds.
const typingRefresh = 8 * time.Second

// Config holds Discord gateway configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// ChannelID is the reminder channel, if any. The bot answers mentions
	// in every channel it can read regardless of this setting.
	ChannelID string
}

// MentionHandler is invoked for every message that mentions the bot.
// The handler runs on its own goroutine; ctx is cancelled on shutdown.
type MentionHandler func(ctx context.Context, msg Message)

// Bot owns the Discord gateway connection and implements [Gateway].
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	handler   MentionHandler
	runCtx    context.Context
	closeOnce sync.Once
}

// New creates a Bot, connects to Discord, and registers the message handler.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("chat: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuilds |
		discordgo.IntentsMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("chat: open session: %w", err)
	}

	b := &Bot{session: session}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessage(m)
	})

	return b, nil
}

// OnMention registers the handler invoked when a message mentions the bot.
// Must be called before Run.
func (b *Bot) OnMention(h MentionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Run blocks until ctx is cancelled. Incoming mentions are dispatched to the
// registered handler for as long as Run is active.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.runCtx = ctx
	b.mu.Unlock()

	slog.Info("discord gateway connected", "bot_user", b.BotUserID())
	<-ctx.Done()
	return ctx.Err()
}

// onMessage filters gateway events down to mentions of the bot and hands
// them to the registered handler.
func (b *Bot) onMessage(m *discordgo.MessageCreate) {
	botID := b.BotUserID()
	if m.Author == nil || m.Author.ID == botID {
		return
	}

	msg := convertMessage(m.Message)
	if !msg.Mentions(botID) {
		return
	}

	b.mu.RLock()
	handler := b.handler
	ctx := b.runCtx
	b.mu.RUnlock()
	if handler == nil || ctx == nil {
		return
	}

	go handler(ctx, msg)
}

// BotUserID implements [Gateway].
func (b *Bot) BotUserID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// ChannelExists implements [Gateway].
func (b *Bot) ChannelExists(channelID string) bool {
	if channelID == "" {
		return false
	}
	_, err := b.session.Channel(channelID)
	return err == nil
}

// Send implements [Gateway].
func (b *Bot) Send(ctx context.Context, channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("chat: send to %s: %w", channelID, err)
	}
	return nil
}

// Reply implements [Gateway].
func (b *Bot) Reply(ctx context.Context, channelID, messageID, content string) error {
	_, err := b.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("chat: reply to %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

// History implements [Gateway]. Messages are returned newest-first.
func (b *Bot) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	raw, err := b.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("chat: history of %s: %w", channelID, err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, convertMessage(m))
	}
	return msgs, nil
}

// Message implements [Gateway].
func (b *Bot) Message(ctx context.Context, channelID, messageID string) (*Message, error) {
	m, err := b.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("chat: fetch message %s/%s: %w", channelID, messageID, err)
	}
	msg := convertMessage(m)
	return &msg, nil
}

// Typing implements [Gateway]. The indicator is re-triggered periodically
// until the returned stop function is called.
func (b *Bot) Typing(channelID string) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	if err := b.session.ChannelTyping(channelID); err != nil {
		slog.Debug("chat: typing indicator failed", "channel", channelID, "err", err)
	}

	go func() {
		ticker := time.NewTicker(typingRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := b.session.ChannelTyping(channelID); err != nil {
					slog.Debug("chat: typing indicator failed", "channel", channelID, "err", err)
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// Close disconnects from Discord.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("chat: close session: %w", err)
		}
		slog.Info("discord gateway closed")
	})
	return closeErr
}

// convertMessage maps a discordgo message to the gateway-neutral [Message].
func convertMessage(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = displayName(m)
	}
	for _, u := range m.Mentions {
		msg.MentionIDs = append(msg.MentionIDs, u.ID)
	}
	if m.MessageReference != nil {
		msg.ReferenceID = m.MessageReference.MessageID
	}
	return msg
}

// displayName prefers the guild nickname, then the global display name, then
// the account username.
func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// StripMention removes the bot's mention tokens (<@id> and <@!id>) from
// content and trims the surrounding whitespace.
func StripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

// Ensure Bot implements Gateway at compile time.
var _ Gateway = (*Bot)(nil)
