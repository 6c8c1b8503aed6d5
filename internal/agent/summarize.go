package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mpreiss/dealbot/internal/article"
	"github.com/mpreiss/dealbot/internal/chat"
	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

// urlScanWindow is how many recent messages are scanned for a link when the
// trigger and the replied-to message carry none.
const urlScanWindow = 10

// summarizeKeywords trigger the summarization path when any of them appears
// in the mention text.
var summarizeKeywords = []string{
	"summarize", "summary", "tldr", "tl;dr", "sum up",
	"what does this say", "what's this about",
}

// Fixed summarization-path notices.
const (
	noticeNoURL        = "I couldn't find any URLs to summarize. Share a link or reply to a message with a link!"
	noticeReading      = "Let me read that article for you..."
	noticeFetchFailed  = "Sorry, I couldn't fetch the content from that URL. It might be paywalled, require login, or block bots."
	noticeSummaryError = "Sorry, I encountered an error trying to summarize the article."
)

// wantsSummary reports whether the stripped mention text asks for an article
// summary. Matching is case-insensitive substring containment.
func wantsSummary(question string) bool {
	lowered := strings.ToLower(question)
	for _, kw := range summarizeKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// summarize runs the article summarization path: find a URL, fetch the
// article, summarize it in a single completion, and post the result. Reports
// "ok" or "error" for metrics.
func (a *Agent) summarize(ctx context.Context, msg chat.Message) (status string) {
	url := a.findURL(ctx, msg)
	if url == "" {
		if err := a.gateway.Reply(ctx, msg.ChannelID, msg.ID, noticeNoURL); err != nil {
			slog.Error("failed to send no-URL notice", "err", err)
			return "error"
		}
		return "ok"
	}

	if err := a.gateway.Reply(ctx, msg.ChannelID, msg.ID, noticeReading); err != nil {
		slog.Error("failed to send reading notice", "err", err)
	}

	summary := a.summarizeURL(ctx, url)
	for _, chunk := range chat.Split(summary) {
		if err := a.gateway.Send(ctx, msg.ChannelID, chunk); err != nil {
			slog.Error("failed to send summary", "channel_id", msg.ChannelID, "err", err)
			return "error"
		}
	}
	return "ok"
}

// findURL locates the article link: first in the trigger message itself,
// then in the message it replies to, then in the most recent channel
// messages. Returns "" when none is found.
func (a *Agent) findURL(ctx context.Context, msg chat.Message) string {
	if urls := article.ExtractURLs(msg.Content); len(urls) > 0 {
		return urls[0]
	}

	if msg.ReferenceID != "" {
		replied, err := a.gateway.Message(ctx, msg.ChannelID, msg.ReferenceID)
		if err != nil {
			slog.Debug("failed to fetch replied-to message", "message_id", msg.ReferenceID, "err", err)
		} else if urls := article.ExtractURLs(replied.Content); len(urls) > 0 {
			return urls[0]
		}
	}

	history, err := a.gateway.History(ctx, msg.ChannelID, urlScanWindow)
	if err != nil {
		slog.Debug("failed to scan history for URLs", "err", err)
		return ""
	}
	for _, m := range history {
		if m.ID == msg.ID {
			continue
		}
		if urls := article.ExtractURLs(m.Content); len(urls) > 0 {
			return urls[0]
		}
	}
	return ""
}

// summarizeURL fetches the article and asks the model for a summary. Every
// failure mode maps to a fixed user-facing notice.
func (a *Agent) summarizeURL(ctx context.Context, url string) string {
	start := time.Now()
	content, err := a.fetcher.Fetch(ctx, url)
	a.metrics.ArticleFetchDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("article fetch failed", "url", url, "err", err)
		return noticeFetchFailed
	}

	prompt := fmt.Sprintf(`Please summarize this article concisely. Include:
- The main topic/thesis
- Key points (3-5 bullet points)
- Any important conclusions or takeaways

Article content:
%s`, content)

	resp, err := a.complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: completionMaxTokens,
	})
	if err != nil {
		slog.Error("summarization completion failed", "url", url, "err", err)
		a.metrics.RecordProviderError(ctx, "llm", "summarize")
		return noticeSummaryError
	}
	if resp.Content == "" {
		return noticeSummaryError
	}
	return resp.Content
}
