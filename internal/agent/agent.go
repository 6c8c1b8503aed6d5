// Package agent implements the mention-driven conversation loop: it turns a
// channel mention into an LLM completion, runs any CRM tool rounds the model
// requests, and posts the reply back to the channel. Mentions that ask for
// an article summary take a separate single-completion path.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/mpreiss/dealbot/internal/article"
	"github.com/mpreiss/dealbot/internal/chat"
	"github.com/mpreiss/dealbot/internal/crm"
	"github.com/mpreiss/dealbot/internal/observe"
	"github.com/mpreiss/dealbot/internal/reminder"
	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

const (
	// historyWindow is how many recent messages feed the conversation prompt.
	historyWindow = 25

	// maxToolRounds caps the tool-execution loop. A model that keeps asking
	// for tools past this bound gets cut off with the fallback reply.
	maxToolRounds = 6

	// completionMaxTokens caps each completion; replies are chat messages,
	// not essays.
	completionMaxTokens = 1024
)

// Fixed user-facing notices.
const (
	noticeNotConfigured = "Sorry, I'm not configured to chat yet. Please add a language model API key."
	fallbackReply       = "I processed your request but couldn't generate a response."
	apologyReply        = "Sorry, I encountered an error trying to respond. Please try again."
)

// Agent handles channel mentions. Safe for concurrent use; each mention is
// processed independently.
type Agent struct {
	gateway   chat.Gateway
	provider  llm.Provider
	executor  *crm.Executor
	fetcher   *article.Fetcher
	metrics   *observe.Metrics
	deadlines []reminder.Deadline
}

// Option configures an Agent.
type Option func(*Agent)

// WithExecutor attaches the CRM tool executor. Without one the model is
// offered no tools.
func WithExecutor(e *crm.Executor) Option {
	return func(a *Agent) { a.executor = e }
}

// WithFetcher replaces the article fetcher used by the summarization path.
func WithFetcher(f *article.Fetcher) Option {
	return func(a *Agent) { a.fetcher = f }
}

// WithDeadlines lists the deadlines surfaced in the system prompt.
func WithDeadlines(d []reminder.Deadline) Option {
	return func(a *Agent) { a.deadlines = d }
}

// WithMetrics attaches the metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New creates an Agent over the given gateway and LLM provider. provider may
// be nil; mentions then get a configuration notice instead of a reply.
func New(gateway chat.Gateway, provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		gateway:  gateway,
		provider: provider,
		fetcher:  article.NewFetcher(),
		metrics:  observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleMention processes one mention of the bot. It never returns an error:
// every failure mode ends in a user-visible notice or a logged send failure.
func (a *Agent) HandleMention(ctx context.Context, msg chat.Message) {
	if a.provider == nil {
		if err := a.gateway.Send(ctx, msg.ChannelID, noticeNotConfigured); err != nil {
			slog.Error("failed to send configuration notice", "err", err)
		}
		return
	}

	stop := a.gateway.Typing(msg.ChannelID)
	defer stop()

	start := time.Now()
	question := chat.StripMention(msg.Content, a.gateway.BotUserID())

	if wantsSummary(question) {
		status := a.summarize(ctx, msg)
		a.metrics.RecordTurn(ctx, "summarize", status, time.Since(start).Seconds())
		return
	}

	status := a.converse(ctx, msg, question)
	a.metrics.RecordTurn(ctx, "conversation", status, time.Since(start).Seconds())
}

// converse runs the tool-augmented conversation path and reports "ok" or
// "error" for metrics.
func (a *Agent) converse(ctx context.Context, msg chat.Message, question string) (status string) {
	history, err := a.gateway.History(ctx, msg.ChannelID, historyWindow)
	if err != nil {
		slog.Error("failed to fetch channel history", "channel_id", msg.ChannelID, "err", err)
		a.apologize(ctx, msg)
		return "error"
	}

	system := systemPrompt(a.deadlines)
	messages := []llm.Message{{
		Role:    "user",
		Content: userPrompt(renderHistory(history, msg.ID, a.gateway.BotUserID()), question),
	}}

	var tools []llm.ToolDefinition
	if a.executor != nil {
		tools = a.executor.Catalog()
	}

	reply := fallbackReply
	for round := 0; round <= maxToolRounds; round++ {
		resp, err := a.complete(ctx, llm.CompletionRequest{
			Messages:     messages,
			Tools:        tools,
			MaxTokens:    completionMaxTokens,
			SystemPrompt: system,
		})
		if err != nil {
			slog.Error("completion failed", "round", round, "err", err)
			a.metrics.RecordProviderError(ctx, "llm", "completion")
			a.apologize(ctx, msg)
			return "error"
		}

		if resp.StopReason != llm.StopToolCalls || len(resp.ToolCalls) == 0 || a.executor == nil {
			if resp.Content != "" {
				reply = resp.Content
			}
			break
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			messages = append(messages, a.runTool(ctx, call))
		}
	}

	if err := a.reply(ctx, msg, reply); err != nil {
		slog.Error("failed to send reply", "channel_id", msg.ChannelID, "err", err)
		return "error"
	}
	return "ok"
}

// runTool executes one tool call and wraps its result as a tool-role message.
func (a *Agent) runTool(ctx context.Context, call llm.ToolCall) llm.Message {
	slog.Info("executing tool", "tool", call.Name)
	start := time.Now()
	result := a.executor.Execute(ctx, call)

	toolStatus := "ok"
	if result.IsError {
		toolStatus = "error"
	}
	a.metrics.RecordToolCall(ctx, call.Name, toolStatus, time.Since(start).Seconds())

	return llm.Message{
		Role:       "tool",
		Content:    result.Content,
		Name:       call.Name,
		ToolCallID: result.ID,
	}
}

// complete issues one LLM completion, recording its latency.
func (a *Agent) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := a.provider.Complete(ctx, req)
	a.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	return resp, err
}

// reply posts content to the channel, replying to the trigger with the first
// chunk and sending the rest as follow-up messages.
func (a *Agent) reply(ctx context.Context, msg chat.Message, content string) error {
	for i, chunk := range chat.Split(content) {
		var err error
		if i == 0 {
			err = a.gateway.Reply(ctx, msg.ChannelID, msg.ID, chunk)
		} else {
			err = a.gateway.Send(ctx, msg.ChannelID, chunk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// apologize posts the fixed error reply. Failures here are only logged —
// there is nothing left to fall back to.
func (a *Agent) apologize(ctx context.Context, msg chat.Message) {
	if err := a.gateway.Reply(ctx, msg.ChannelID, msg.ID, apologyReply); err != nil {
		slog.Error("failed to send apology reply", "channel_id", msg.ChannelID, "err", err)
	}
}
