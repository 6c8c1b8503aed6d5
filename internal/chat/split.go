package chat

// MessageLimit is the hard per-message character limit imposed by the
// Discord transport.
const MessageLimit = 2000

// Split breaks text into chunks of at most [MessageLimit] characters,
// preserving order. Concatenating the returned chunks reproduces the
// original text exactly. An empty input yields no chunks.
//
// The limit counts runes, not bytes, so multi-byte characters are never
// split across a chunk boundary.
func Split(text string) []string {
	return SplitN(text, MessageLimit)
}

// SplitN is Split with an explicit chunk size, exposed for tests.
func SplitN(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
