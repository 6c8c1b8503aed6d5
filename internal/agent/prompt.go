package agent

import (
	"fmt"
	"strings"

	"github.com/mpreiss/dealbot/internal/chat"
	"github.com/mpreiss/dealbot/internal/reminder"
)

// systemPrompt renders the standing instructions for the conversation path,
// including the currently configured deadlines.
func systemPrompt(deadlines []reminder.Deadline) string {
	var b strings.Builder
	b.WriteString(`You are a helpful assistant in a Discord server. You have access to recent conversation history for context.
Keep your responses concise and friendly - this is a chat, not an essay.`)

	if len(deadlines) > 0 {
		fmt.Fprintf(&b, "\nIf someone asks about deadlines, the team has %d coming up:\n", len(deadlines))
		for _, d := range deadlines {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Date.Format("January 2, 2006"))
		}
	}

	b.WriteString(`
You can also summarize articles if someone shares a URL and asks you to summarize it.

You have access to Attio CRM tools to look up deals, search for companies/contacts, and check the sales pipeline. Use these tools when users ask about deals, pipeline, CRM data, sales, prospects, or specific companies/contacts.`)
	return b.String()
}

// userPrompt wraps the rendered channel history and the stripped question
// into the single user message that opens the completion.
func userPrompt(conversationContext, question string) string {
	return fmt.Sprintf(`Here's the recent conversation in this channel:

%s

The user is asking you: %s

Please respond helpfully and concisely.`, conversationContext, question)
}

// renderHistory renders messages (given newest-first, as History returns
// them) into chronological "author: content" lines. The trigger message has
// the bot mention stripped so the model sees a clean question.
func renderHistory(msgs []chat.Message, triggerID, botID string) string {
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		content := msg.Content
		if msg.ID == triggerID {
			content = chat.StripMention(content, botID)
		}
		lines = append(lines, msg.AuthorName+": "+content)
	}
	return strings.Join(lines, "\n")
}
