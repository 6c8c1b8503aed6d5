package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

// fallbackQuotes is the built-in quote rotation. The deterministic source
// draws from it directly; the generated source falls back to it when the
// LLM call fails.
var fallbackQuotes = []string{
	"The way to get started is to quit talking and begin doing. – Walt Disney",
	"Stay hungry, stay foolish. – Steve Jobs",
	"Chase the vision, not the money; the money will end up following you. – Tony Hsieh",
	"Make every detail perfect and limit the number of details to perfect. – Jack Dorsey",
	"It's not about ideas. It's about making ideas happen. – Scott Belsky",
	"The best time to plant a tree was twenty years ago. The second best time is now. – Chinese proverb",
	"Done is better than perfect. – Sheryl Sandberg",
	"If you are not embarrassed by the first version of your product, you've launched too late. – Reid Hoffman",
}

// quoteTopics seeds the generated-quote prompt with variety.
var quoteTopics = []string{
	"startup growth", "leadership", "perseverance", "innovation",
	"teamwork", "taking risks", "focus and discipline", "customer obsession",
	"learning from failure", "building culture", "ambition", "creativity",
	"execution over ideas", "resilience", "thinking big",
}

// QuoteSource produces the motivational line appended to the daily message.
type QuoteSource interface {
	// Quote returns the quote for the given day. Implementations must not
	// fail hard: when the preferred strategy is unavailable they return a
	// fallback quote and a nil error.
	Quote(ctx context.Context, day time.Time) (string, error)
}

// DeterministicSource picks from the built-in list, seeded by the day's
// ordinal number within the year. The mapping day → quote is a pure
// function, so the quote is stable for the whole calendar day and the
// sequence repeats identically across runs.
type DeterministicSource struct{}

// Quote implements [QuoteSource].
func (DeterministicSource) Quote(_ context.Context, day time.Time) (string, error) {
	rng := rand.New(rand.NewPCG(uint64(day.Year()), uint64(day.YearDay())))
	return fallbackQuotes[rng.IntN(len(fallbackQuotes))], nil
}

// GeneratedSource asks the LLM for a fresh quote each day, consulting the
// built-in list on any generation failure.
type GeneratedSource struct {
	// Provider is the LLM backend. When nil, Quote always falls back.
	Provider llm.Provider
}

// generationMaxTokens caps the quote completion; quotes are short.
const generationMaxTokens = 150

// Quote implements [QuoteSource].
func (s GeneratedSource) Quote(ctx context.Context, day time.Time) (string, error) {
	if s.Provider == nil {
		return DeterministicSource{}.Quote(ctx, day)
	}

	topic := quoteTopics[rand.IntN(len(quoteTopics))]
	prompt := fmt.Sprintf(
		"Today is %s. Generate a single inspiring quote about %s from a famous entrepreneur or business leader (with attribution). Pick someone unexpected — avoid the most overused quotes. Keep it to 1-2 sentences. Return ONLY the quote, nothing else.",
		day.Format("Monday, January 02"), topic,
	)

	resp, err := s.Provider.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens: generationMaxTokens,
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		slog.Warn("quote generation failed, using fallback list", "err", err)
		return DeterministicSource{}.Quote(ctx, day)
	}
	return strings.TrimSpace(resp.Content), nil
}
