package textutil

import (
	"strings"
	"unicode"
)

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SplitSentences segments text into trimmed sentences. A sentence boundary is
// a run of '.', '!' or '?' followed by whitespace or end of input. Newlines
// also terminate sentences so list-style transcripts segment cleanly.
// Fragments shorter than 2 characters are dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		current.Reset()
		if len(sentence) >= 2 {
			sentences = append(sentences, sentence)
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume trailing punctuation runs ("..." / "?!") as one boundary.
		for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}

// JoinSentences renders sentences back into a single paragraph, ensuring each
// ends with terminal punctuation.
func JoinSentences(sentences []string) string {
	parts := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if !strings.ContainsAny(sentence[len(sentence)-1:], ".!?") {
			sentence += "."
		}
		parts = append(parts, sentence)
	}
	return strings.Join(parts, " ")
}
