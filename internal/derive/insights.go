package derive

import (
	"cvstudio/internal/cv"
)

// SectionInsight is the per-section badge data.
type SectionInsight struct {
	Section   cv.Section `json:"section"`
	Progress  int        `json:"progress"`
	WordCount int        `json:"wordCount"`
}

// DateCheck is the range validation of one dated entry.
type DateCheck struct {
	Section cv.Section `json:"section"`
	Index   int        `json:"index"`
	Start   string     `json:"start"`
	End     string     `json:"end"`
	RangeResult
}

// Insights bundles every derived signal for a document.
type Insights struct {
	Sections   []SectionInsight `json:"sections"`
	Dates      []DateCheck      `json:"dates"`
	TotalWords int              `json:"totalWords"`
	Score      ScoreResult      `json:"score"`
}

// InvalidDates returns only the failing date checks.
func (i Insights) InvalidDates() []DateCheck {
	var out []DateCheck
	for _, d := range i.Dates {
		if !d.Valid {
			out = append(out, d)
		}
	}
	return out
}

// Analyze computes Insights for doc, with sections in the given theme's
// display order.
func Analyze(doc cv.Document, theme cv.Theme) Insights {
	insights := Insights{
		Sections:   make([]SectionInsight, 0, len(cv.ContentSections)+1),
		Dates:      make([]DateCheck, 0),
		TotalWords: TotalWords(doc),
		Score:      Score(doc),
	}

	for _, section := range theme.DisplayOrder() {
		if section == cv.SectionSummary {
			continue
		}
		insights.Sections = append(insights.Sections, SectionInsight{
			Section:   section,
			Progress:  Progress(doc, section),
			WordCount: WordCount(doc, section),
		})

		for i, entry := range doc.Entries(section) {
			dated, ok := entry.(cv.Dated)
			if !ok {
				continue
			}
			start, end := dated.DateRange()
			insights.Dates = append(insights.Dates, DateCheck{
				Section:     section,
				Index:       i,
				Start:       start,
				End:         end,
				RangeResult: ValidateRange(start, end),
			})
		}
	}
	return insights
}
