package chat_test

import (
	"strings"
	"testing"

	"github.com/mpreiss/dealbot/internal/chat"
)

func TestSplit_Empty(t *testing.T) {
	t.Parallel()
	if chunks := chat.Split(""); chunks != nil {
		t.Errorf("Split(\"\") = %v, want nil", chunks)
	}
}

func TestSplit_ShortMessageIsSingleChunk(t *testing.T) {
	t.Parallel()
	chunks := chat.Split("hello")
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("Split = %v, want [hello]", chunks)
	}
}

func TestSplitN_ChunkCountAndLosslessness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		length     int
		limit      int
		wantChunks int
	}{
		{"exactly at limit", 10, 10, 1},
		{"one over limit", 11, 10, 2},
		{"several chunks", 35, 10, 4},
		{"exact multiple", 30, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text := strings.Repeat("a", tt.length)
			chunks := chat.SplitN(text, tt.limit)
			if len(chunks) != tt.wantChunks {
				t.Errorf("chunk count = %d, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if n := len([]rune(c)); n > tt.limit {
					t.Errorf("chunk %d has %d runes, limit %d", i, n, tt.limit)
				}
			}
			if joined := strings.Join(chunks, ""); joined != text {
				t.Error("concatenated chunks do not reproduce the input")
			}
		})
	}
}

func TestSplitN_MultiByteRunesNeverSplit(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("ü", 15)
	chunks := chat.SplitN(text, 10)
	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c, "ü") || !strings.HasSuffix(c, "ü") {
			t.Errorf("chunk %d split a multi-byte rune: %q", i, c)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("concatenated chunks do not reproduce the input")
	}
}

func TestStripMention(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain mention", "<@42> hello there", "hello there"},
		{"nickname mention", "<@!42> hello there", "hello there"},
		{"mention mid-sentence", "hey <@42> what's up", "hey  what's up"},
		{"no mention", "hello there", "hello there"},
		{"only mention", "<@42>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := chat.StripMention(tt.content, "42"); got != tt.want {
				t.Errorf("StripMention(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestMessage_Mentions(t *testing.T) {
	t.Parallel()
	msg := chat.Message{MentionIDs: []string{"1", "42"}}
	if !msg.Mentions("42") {
		t.Error("Mentions(42) = false, want true")
	}
	if msg.Mentions("7") {
		t.Error("Mentions(7) = true, want false")
	}
}
