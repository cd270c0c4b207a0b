package summarize

import (
	"fmt"
	"strings"

	"recap/internal/textutil"
)

// applyFormat is the pure post-processing step. Backends emit prose; the
// list formats re-segment it by sentence and re-render with markers.
func applyFormat(summary, format string) string {
	summary = strings.TrimSpace(summary)
	switch format {
	case FormatBullets:
		return renderList(summary, func(int) string { return "- " })
	case FormatNumbered:
		return renderList(summary, func(i int) string { return fmt.Sprintf("%d. ", i+1) })
	case FormatKeyPoints:
		list := renderList(summary, func(int) string { return "- " })
		if list == summary {
			return summary
		}
		return "Key Points:\n" + list
	default:
		return summary
	}
}

func renderList(summary string, marker func(int) string) string {
	sentences := textutil.SplitSentences(summary)
	lines := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		item := stripListMarker(sentence)
		if item == "" || isMarkerDebris(item) {
			continue
		}
		lines = append(lines, marker(len(lines))+item)
	}
	if len(lines) == 0 {
		return summary
	}
	return strings.Join(lines, "\n")
}

// stripListMarker removes a leading marker a backend may have emitted despite
// the prose instruction, so re-rendering never doubles markers.
func stripListMarker(sentence string) string {
	trimmed := strings.TrimSpace(sentence)
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	// Numbered markers: "3. " or "12) ".
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			continue
		}
		if i > 0 && (r == '.' || r == ')') {
			rest := trimmed[i+1:]
			if strings.HasPrefix(rest, " ") {
				return strings.TrimSpace(rest)
			}
		}
		break
	}
	return trimmed
}

// isMarkerDebris reports fragments that are only digits and punctuation, the
// leftovers of a split numbered marker.
func isMarkerDebris(fragment string) bool {
	for _, r := range fragment {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ')' || r == '-':
		default:
			return false
		}
	}
	return true
}
