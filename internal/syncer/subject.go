package syncer

import (
	"regexp"
	"strings"
)

var (
	honorsMarker     = regexp.MustCompile(`\s*H\*\s*`)
	parenthetical    = regexp.MustCompile(`\s*\(([^()]*)\)\s*`)
	honorsQualifier  = regexp.MustCompile(`(?i)^\s*(h|hon\.?|honors)\s*$`)
	yearRange        = regexp.MustCompile(`\s*-\s*\d{4}\s*-\s*\d{2,4}\s*`)
	instructorSuffix = regexp.MustCompile(`\s+-\s*[A-Z][a-z]+(\s.*)?$`)
	sectionPrefix    = regexp.MustCompile(`(?i)^(S\d+\s+)+`)
	whitespace       = regexp.MustCompile(`\s+`)
)

var abbreviations = []struct {
	pattern *regexp.Regexp
	short   string
}{
	{regexp.MustCompile(`(?i)\bHonors\b`), "Hon."},
	{regexp.MustCompile(`(?i)\bLanguage Arts\b`), "Lang Arts"},
	{regexp.MustCompile(`(?i)\bPhysical Science\b`), "Phys Sci"},
	{regexp.MustCompile(`(?i)\bCivics/Economics\b`), "Civics/Econ"},
	{regexp.MustCompile(`(?i)\bTechnological\b`), "Tech"},
}

// NormalizeSubject turns a raw course name such as
// "Algebra I (Hon.) - 2024-2025 - Smith" into a short label ("Algebra I Hon.").
// The cleanup pipeline is repeated until it stops changing the name, which
// makes the result idempotent.
func NormalizeSubject(name string) string {
	s := cleanSubject(name)
	for i := 0; i < 8; i++ {
		next := cleanSubject(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func cleanSubject(s string) string {
	s = honorsMarker.ReplaceAllString(s, " ")
	s = parenthetical.ReplaceAllStringFunc(s, func(m string) string {
		inner := parenthetical.FindStringSubmatch(m)[1]
		if honorsQualifier.MatchString(inner) {
			return " Hon. "
		}
		return " "
	})
	s = yearRange.ReplaceAllString(s, " ")
	s = instructorSuffix.ReplaceAllString(s, "")
	s = sectionPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	for _, abbr := range abbreviations {
		s = abbr.pattern.ReplaceAllString(s, abbr.short)
	}
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
