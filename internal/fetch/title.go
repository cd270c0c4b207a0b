package fetch

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleFromReference derives a display title from a media reference. Video
// ids pass through verbatim; URLs use their last path segment; file paths use
// their cleaned, title-cased base name.
func TitleFromReference(reference string) string {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "Untitled Media"
	}
	if id := VideoID(ref); id != "" {
		return id
	}

	base := ref
	stripExt := true
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		segment := strings.Trim(path.Base(u.Path), "/")
		if segment != "" && segment != "." {
			base = segment
		} else {
			// Host fallback: "example.com" is a name, not a file extension.
			base = u.Host
			stripExt = false
		}
	} else {
		base = filepath.Base(ref)
	}

	if stripExt {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Media"
	}
	return cases.Title(language.Und).String(title)
}
