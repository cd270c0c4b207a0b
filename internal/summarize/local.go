package summarize

import (
	"math"
	"slices"
	"sort"
	"strings"

	"recap/internal/services"
	"recap/internal/textutil"
)

// Sentences whose cosine similarity to an already-selected sentence exceeds
// this are skipped as near-duplicates.
const redundancyCeiling = 0.7

func targetSentences(length string) int {
	switch length {
	case LengthShort:
		return 3
	case LengthLong:
		return 8
	default:
		return 5
	}
}

// summarizeLocally runs the extractive pass. Transcripts above the chunk
// budget are split on sentence boundaries, summarized per chunk, and the
// chunk summaries concatenated.
func (s *Summarizer) summarizeLocally(text string, opts Options) (string, error) {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return "", services.Wrap(services.ErrValidation, component, "local", "transcript has no sentences", nil)
	}
	target := targetSentences(opts.Length)

	if textutil.WordCount(text) <= s.chunkWords {
		return extractSummary(sentences, target), nil
	}

	chunks := chunkSentences(sentences, s.chunkWords)
	perChunk := target / len(chunks)
	if perChunk < 1 {
		perChunk = 1
	}
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if summary := extractSummary(chunk, perChunk); summary != "" {
			parts = append(parts, summary)
		}
	}
	return strings.Join(parts, " "), nil
}

// chunkSentences groups sentences into runs of at most chunkWords words.
// A single oversized sentence still forms its own chunk.
func chunkSentences(sentences []string, chunkWords int) [][]string {
	var chunks [][]string
	var current []string
	currentWords := 0
	for _, sentence := range sentences {
		words := textutil.WordCount(sentence)
		if currentWords+words > chunkWords && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
			currentWords = 0
		}
		current = append(current, sentence)
		currentWords += words
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// extractSummary picks the target highest-scoring sentences and re-emits them
// in their original order. Scoring is TF-IDF with each sentence as one
// document; near-duplicates of already-picked sentences are skipped.
func extractSummary(sentences []string, target int) string {
	if len(sentences) <= target {
		return textutil.JoinSentences(sentences)
	}

	corpus := textutil.NewCorpus()
	fingerprints := make([]*textutil.Fingerprint, len(sentences))
	for i, sentence := range sentences {
		fingerprints[i] = textutil.NewFingerprint(sentence)
		corpus.Add(fingerprints[i])
	}
	weights := corpus.IDF()

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, 0, len(sentences))
	for i, fp := range fingerprints {
		// Damp mean TF-IDF by token mass so two-word fragments do not
		// outrank full sentences.
		score := fp.Score(weights) * math.Log1p(float64(fp.TokenCount()))
		ranked = append(ranked, scored{index: i, score: score})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index < ranked[b].index
	})

	selected := make([]int, 0, target)
	for _, candidate := range ranked {
		if len(selected) == target {
			break
		}
		redundant := false
		for _, pick := range selected {
			if textutil.CosineSimilarity(fingerprints[candidate.index], fingerprints[pick]) > redundancyCeiling {
				redundant = true
				break
			}
		}
		if !redundant {
			selected = append(selected, candidate.index)
		}
	}
	// If deduplication starved the pick list, backfill by rank.
	for _, candidate := range ranked {
		if len(selected) == target {
			break
		}
		if !slices.Contains(selected, candidate.index) {
			selected = append(selected, candidate.index)
		}
	}

	sort.Ints(selected)
	picked := make([]string, len(selected))
	for i, index := range selected {
		picked[i] = sentences[index]
	}
	return textutil.JoinSentences(picked)
}
