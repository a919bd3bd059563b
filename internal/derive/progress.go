// Package derive computes the editor's real-time quality signals from a
// document: section completion, word counts, date-range validity and the
// ATS score. Every function is pure and leaves the document untouched.
package derive

import (
	"strings"

	"cvstudio/internal/cv"
)

// Progress returns the completion percentage of a section.
// Profile counts six key fields, design is always complete, and list
// sections only inspect their first entry.
func Progress(doc cv.Document, section cv.Section) int {
	switch section {
	case cv.SectionProfile:
		fields := []string{doc.Name, doc.Email, doc.Phone, doc.Location, doc.Summary, doc.Headline}
		filled := 0
		for _, f := range fields {
			if filledIn(f) {
				filled++
			}
		}
		return filled * 100 / len(fields)
	case cv.SectionDesign:
		return 100
	}

	entries := doc.Entries(section)
	if len(entries) == 0 {
		return 0
	}
	if identityComplete(entries[0]) {
		return 100
	}
	return 50
}

// identityComplete checks the fields that make an entry recognisable.
// Sections without a rule are complete as soon as they have an entry.
func identityComplete(entry cv.Entry) bool {
	switch e := entry.(type) {
	case cv.ExperienceEntry:
		return filledIn(e.Company) && filledIn(e.Position)
	case cv.EducationEntry:
		return filledIn(e.Institution)
	case cv.SkillEntry:
		return filledIn(e.Label)
	case cv.ProjectEntry:
		return filledIn(e.Name)
	}
	return true
}

func filledIn(s string) bool {
	return strings.TrimSpace(s) != ""
}

// WordCount counts whitespace-separated tokens in a section's text.
// Highlights are not counted.
func WordCount(doc cv.Document, section cv.Section) int {
	switch section {
	case cv.SectionProfile:
		return countWords(doc.Summary) + countWords(doc.Headline)
	case cv.SectionDesign:
		return 0
	}

	total := 0
	for _, entry := range doc.Entries(section) {
		for _, text := range entry.Texts() {
			total += countWords(text)
		}
	}
	return total
}

// TotalWords sums WordCount over every content section.
func TotalWords(doc cv.Document) int {
	total := 0
	for _, section := range cv.ContentSections {
		total += WordCount(doc, section)
	}
	return total
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
