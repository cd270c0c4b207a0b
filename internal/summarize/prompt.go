package summarize

import (
	"fmt"
	"slices"
	"strings"
)

// summarySystemPrompt captures the instructions sent with every remote
// summarization request. Keep updates centralized here so it is easy to tweak
// without hunting through call sites.
const summarySystemPrompt = `You are an assistant that writes faithful summaries of audio transcripts.

Rules:

- Use only information present in the transcript; never invent facts, names, or numbers.

- Write plain prose sentences without markdown, bullet markers, or numbering; formatting is applied downstream.

- Do not mention the transcript or the summarization process; state the content directly.`

// buildUserPrompt renders the transcript with advisory length and focus
// hints. The bounds are hints for the model, never enforced afterwards.
func buildUserPrompt(text string, opts Options) string {
	minWords, maxWords := opts.wordTargets()
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following transcript in roughly %d to %d words.", minWords, maxWords)
	if slices.Contains(opts.Focus, FocusKeyPoints) {
		b.WriteString(" Concentrate on the main points, decisions, and conclusions.")
	}
	if slices.Contains(opts.Focus, FocusDetailed) {
		b.WriteString(" Preserve supporting details, examples, and caveats.")
	}
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(text)
	return b.String()
}
