package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mpreiss/dealbot/internal/agent"
	"github.com/mpreiss/dealbot/internal/chat"
	chatmock "github.com/mpreiss/dealbot/internal/chat/mock"
	"github.com/mpreiss/dealbot/internal/crm"
	"github.com/mpreiss/dealbot/internal/reminder"
	"github.com/mpreiss/dealbot/pkg/provider/llm"
	llmmock "github.com/mpreiss/dealbot/pkg/provider/llm/mock"
)

const (
	testBotID   = "bot-1"
	testChannel = "chan-1"
)

// trigger builds a mention of the bot and a gateway whose history contains it.
func trigger(content string) (chat.Message, *chatmock.Gateway) {
	msg := chat.Message{
		ID:         "trigger-1",
		ChannelID:  testChannel,
		AuthorID:   "user-1",
		AuthorName: "Alice",
		Content:    content,
		Timestamp:  time.Now(),
		MentionIDs: []string{testBotID},
	}
	gw := &chatmock.Gateway{
		BotID:           testBotID,
		HistoryMessages: []chat.Message{msg},
	}
	return msg, gw
}

func TestHandleMention_NilProviderSendsNotice(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> hello")
	a := agent.New(gw, nil)

	a.HandleMention(context.Background(), msg)

	sent := gw.LastSent()
	if sent == nil {
		t.Fatal("expected a configuration notice")
	}
	if !strings.Contains(sent.Content, "not configured") {
		t.Errorf("notice = %q, want a not-configured message", sent.Content)
	}
}

func TestHandleMention_SimpleReply(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> how are you?")
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "Doing great!", StopReason: llm.StopEnd}},
	}
	deadlines := []reminder.Deadline{
		{Name: "Metabit Contract", Date: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)},
	}
	a := agent.New(gw, provider, agent.WithDeadlines(deadlines))

	a.HandleMention(context.Background(), msg)

	sent := gw.LastSent()
	if sent == nil || sent.Content != "Doing great!" {
		t.Fatalf("reply = %+v, want the model content", sent)
	}
	if sent.ReplyToID != msg.ID {
		t.Errorf("reply should reference the trigger, got %q", sent.ReplyToID)
	}
	if gw.TypingCalls != 1 {
		t.Errorf("typing calls = %d, want 1", gw.TypingCalls)
	}

	req := provider.CompleteCalls[0].Req
	if !strings.Contains(req.SystemPrompt, "Metabit Contract: March 10, 2026") {
		t.Errorf("system prompt should list the deadline, got: %q", req.SystemPrompt)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want one user message", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Alice: how are you?") {
		t.Errorf("user prompt should contain the stripped history line, got: %q", req.Messages[0].Content)
	}
	if !strings.Contains(req.Messages[0].Content, "The user is asking you: how are you?") {
		t.Errorf("user prompt should contain the stripped question, got: %q", req.Messages[0].Content)
	}
}

func TestHandleMention_HistoryRenderedChronologically(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> and now?")
	gw.HistoryMessages = []chat.Message{
		msg,
		{ID: "m2", AuthorName: "Bob", Content: "second"},
		{ID: "m1", AuthorName: "Alice", Content: "first"},
	}
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "ok", StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	prompt := provider.CompleteCalls[0].Req.Messages[0].Content
	first := strings.Index(prompt, "Alice: first")
	second := strings.Index(prompt, "Bob: second")
	last := strings.Index(prompt, "Alice: and now?")
	if first == -1 || second == -1 || last == -1 {
		t.Fatalf("prompt missing history lines: %q", prompt)
	}
	if !(first < second && second < last) {
		t.Error("history should be rendered oldest-first")
	}
}

// newExecutor builds a tool executor backed by an httptest Attio server.
func newExecutor(t *testing.T, records []crm.Record) *crm.Executor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": records})
	}))
	t.Cleanup(srv.Close)
	client, err := crm.NewClient("key", crm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return crm.NewExecutor(client)
}

func TestHandleMention_ToolRound(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> any deals in the pipeline?")
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{
			{
				ToolCalls:  []llm.ToolCall{{ID: "call-1", Name: "list_deals", Arguments: `{"stage":"Lead"}`}},
				StopReason: llm.StopToolCalls,
			},
			{Content: "One deal: Acme.", StopReason: llm.StopEnd},
		},
	}
	records := []crm.Record{{
		ID: crm.RecordID{RecordID: "rec-1"},
		Values: map[string][]crm.FieldValue{
			"name": {{Value: "Acme"}},
		},
	}}
	a := agent.New(gw, provider, agent.WithExecutor(newExecutor(t, records)))

	a.HandleMention(context.Background(), msg)

	if got := len(provider.CompleteCalls); got != 2 {
		t.Fatalf("Complete calls = %d, want 2", got)
	}

	// The first request offers the tool catalog.
	if got := len(provider.CompleteCalls[0].Req.Tools); got != 5 {
		t.Errorf("offered tools = %d, want 5", got)
	}

	// The second request carries the assistant tool call and its result.
	msgs := provider.CompleteCalls[1].Req.Messages
	if len(msgs) != 3 {
		t.Fatalf("second round messages = %d, want 3", len(msgs))
	}
	if msgs[1].Role != "assistant" || len(msgs[1].ToolCalls) != 1 {
		t.Errorf("messages[1] should be the assistant tool call, got %+v", msgs[1])
	}
	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "call-1" {
		t.Errorf("messages[2] should be the tool result for call-1, got %+v", msgs[2])
	}
	if !strings.Contains(msgs[2].Content, "Acme") {
		t.Errorf("tool result should contain the deal, got %q", msgs[2].Content)
	}

	sent := gw.LastSent()
	if sent == nil || sent.Content != "One deal: Acme." {
		t.Errorf("final reply = %+v, want the model's second response", sent)
	}
}

func TestHandleMention_ToolRoundCap(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> loop forever")
	// The script's last entry repeats, so the model keeps demanding tools.
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{
			ToolCalls:  []llm.ToolCall{{ID: "call-n", Name: "get_pipeline_summary"}},
			StopReason: llm.StopToolCalls,
		}},
	}
	a := agent.New(gw, provider, agent.WithExecutor(newExecutor(t, nil)))

	a.HandleMention(context.Background(), msg)

	if got := len(provider.CompleteCalls); got != 7 {
		t.Errorf("Complete calls = %d, want 7 (initial round plus six tool rounds)", got)
	}
	sent := gw.LastSent()
	if sent == nil || sent.Content != "I processed your request but couldn't generate a response." {
		t.Errorf("capped loop should end with the fallback reply, got %+v", sent)
	}
}

func TestHandleMention_EmptyContentGetsFallback(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> say nothing")
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "", StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	sent := gw.LastSent()
	if sent == nil || sent.Content != "I processed your request but couldn't generate a response." {
		t.Errorf("empty content should yield the fallback reply, got %+v", sent)
	}
}

func TestHandleMention_ProviderErrorGetsApology(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> hello")
	provider := &llmmock.Provider{Err: context.DeadlineExceeded}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	sent := gw.LastSent()
	if sent == nil || sent.Content != "Sorry, I encountered an error trying to respond. Please try again." {
		t.Errorf("provider failure should yield the apology, got %+v", sent)
	}
	if sent.ReplyToID != msg.ID {
		t.Errorf("apology should be a reply to the trigger, got %q", sent.ReplyToID)
	}
}

func TestHandleMention_LongReplyIsChunked(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> write a lot")
	long := strings.Repeat("a", 2500)
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: long, StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	if len(gw.SentMessages) != 2 {
		t.Fatalf("sent messages = %d, want 2 chunks", len(gw.SentMessages))
	}
	if gw.SentMessages[0].ReplyToID != msg.ID {
		t.Error("first chunk should be a reply to the trigger")
	}
	if gw.SentMessages[1].ReplyToID != "" {
		t.Error("follow-up chunks should be plain sends")
	}
	if gw.SentMessages[0].Content+gw.SentMessages[1].Content != long {
		t.Error("chunks should reproduce the full reply")
	}
}

// newArticleServer serves a fixed article page.
func newArticleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><article><p>Quarterly revenue grew 40%.</p></article></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleMention_SummarizeURLInTrigger(t *testing.T) {
	t.Parallel()
	srv := newArticleServer(t)
	msg, gw := trigger("<@" + testBotID + "> summarize " + srv.URL)
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "Revenue grew 40%.", StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider, agent.WithExecutor(newExecutor(t, nil)))

	a.HandleMention(context.Background(), msg)

	if len(gw.SentMessages) != 2 {
		t.Fatalf("sent messages = %d, want interim notice plus summary", len(gw.SentMessages))
	}
	if gw.SentMessages[0].Content != "Let me read that article for you..." {
		t.Errorf("first message = %q, want the reading notice", gw.SentMessages[0].Content)
	}
	if gw.SentMessages[1].Content != "Revenue grew 40%." {
		t.Errorf("second message = %q, want the summary", gw.SentMessages[1].Content)
	}
	if gw.SentMessages[1].ReplyToID != "" {
		t.Error("the summary is sent to the channel, not as a reply")
	}

	// The summarization completion carries the article text and no tools.
	req := provider.CompleteCalls[0].Req
	if len(req.Tools) != 0 {
		t.Errorf("summarization must not offer tools, got %d", len(req.Tools))
	}
	if !strings.Contains(req.Messages[0].Content, "Quarterly revenue grew 40%.") {
		t.Errorf("prompt should embed the article text, got: %q", req.Messages[0].Content)
	}
}

func TestHandleMention_SummarizeURLFromRepliedMessage(t *testing.T) {
	t.Parallel()
	srv := newArticleServer(t)
	msg, gw := trigger("<@" + testBotID + "> tldr please")
	msg.ReferenceID = "linked-1"
	gw.Messages = map[string]chat.Message{
		"linked-1": {ID: "linked-1", Content: "worth a read: " + srv.URL},
	}
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "Short version.", StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	last := gw.LastSent()
	if last == nil || last.Content != "Short version." {
		t.Errorf("summary = %+v, want the model output", last)
	}
}

func TestHandleMention_SummarizeURLFromHistory(t *testing.T) {
	t.Parallel()
	srv := newArticleServer(t)
	msg, gw := trigger("<@" + testBotID + "> what's this about?")
	gw.HistoryMessages = []chat.Message{
		msg,
		{ID: "m2", AuthorName: "Bob", Content: "no link here"},
		{ID: "m1", AuthorName: "Alice", Content: "found this: " + srv.URL},
	}
	provider := &llmmock.Provider{
		Responses: []*llm.CompletionResponse{{Content: "It's about growth.", StopReason: llm.StopEnd}},
	}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	last := gw.LastSent()
	if last == nil || last.Content != "It's about growth." {
		t.Errorf("summary = %+v, want the model output", last)
	}
}

func TestHandleMention_SummarizeWithoutURL(t *testing.T) {
	t.Parallel()
	msg, gw := trigger("<@" + testBotID + "> summarize this")
	provider := &llmmock.Provider{}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	sent := gw.LastSent()
	if sent == nil || !strings.Contains(sent.Content, "couldn't find any URLs") {
		t.Errorf("expected the no-URL notice, got %+v", sent)
	}
	if len(provider.CompleteCalls) != 0 {
		t.Error("no completion should run without a URL")
	}
}

func TestHandleMention_SummarizeFetchFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "paywall", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	msg, gw := trigger("<@" + testBotID + "> summary of " + srv.URL)
	provider := &llmmock.Provider{}
	a := agent.New(gw, provider)

	a.HandleMention(context.Background(), msg)

	last := gw.LastSent()
	if last == nil || !strings.Contains(last.Content, "couldn't fetch the content") {
		t.Errorf("expected the fetch-failure notice, got %+v", last)
	}
	if len(provider.CompleteCalls) != 0 {
		t.Error("no completion should run when the fetch fails")
	}
}
