package segment

import (
	"regexp"

	"paperrag/internal/domain"
)

// headRunes bounds how much of a page is inspected for a section heading.
// Headings sit at the top of the page; scanning further produces false
// positives from running text ("our results show...").
const headRunes = 300

type sectionPattern struct {
	section domain.Section
	re      *regexp.Regexp
}

// Ordered: the first pattern matching the page head wins.
var sectionPatterns = []sectionPattern{
	{domain.SectionAbstract, regexp.MustCompile(`(?i)\babstract\b`)},
	{domain.SectionIntroduction, regexp.MustCompile(`(?i)\bintroduction\b`)},
	{domain.SectionMethods, regexp.MustCompile(`(?i)\b(methods?|materials)\b`)},
	{domain.SectionResults, regexp.MustCompile(`(?i)\bresults?\b`)},
	{domain.SectionDiscussion, regexp.MustCompile(`(?i)\bdiscussion\b`)},
	{domain.SectionConclusion, regexp.MustCompile(`(?i)\bconclusion\b`)},
}

// DetectSection folds one page into the running section state: it returns
// the section the page opens with, or current when no heading keyword
// appears in the page head. State only moves forward page by page; the
// fold never backtracks within a document.
func DetectSection(pageText string, current domain.Section) domain.Section {
	head := pageText
	if runes := []rune(pageText); len(runes) > headRunes {
		head = string(runes[:headRunes])
	}
	for _, p := range sectionPatterns {
		if p.re.MatchString(head) {
			return p.section
		}
	}
	return current
}
