package blogs

import (
	"regexp"
	"strings"
)

var (
	slugWhitespaceRe = regexp.MustCompile(`\s+`)
	slugInvalidRe    = regexp.MustCompile(`[^a-z0-9_-]`)
	slugHyphenRunRe  = regexp.MustCompile(`-{2,}`)

	// slugPatternRe is the shape a stored slug must have
	slugPatternRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// SanitizeSlug normalizes free text toward a slug: lower-case, trimmed,
// whitespace runs become single hyphens, characters outside [a-z0-9_-]
// are stripped, and hyphen runs collapse. Idempotent, so it is safe to
// run on every keystroke of a slug input.
func SanitizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugWhitespaceRe.ReplaceAllString(s, "-")
	s = slugInvalidRe.ReplaceAllString(s, "")
	s = slugHyphenRunRe.ReplaceAllString(s, "-")
	return s
}

// FinalizeSlug sanitizes and additionally strips leading and trailing
// hyphens. Used when the slug is committed (blur/submit) rather than
// while it is being typed.
func FinalizeSlug(s string) string {
	return strings.Trim(SanitizeSlug(s), "-")
}

// ValidSlug reports whether s is an acceptable stored slug.
func ValidSlug(s string) bool {
	return slugPatternRe.MatchString(s)
}
