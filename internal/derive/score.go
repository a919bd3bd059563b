package derive

import (
	"unicode/utf8"

	"cvstudio/internal/cv"
)

// Tips attached to failed checks.
const (
	TipLocation   = "Add location for better ATS matching"
	TipSummary    = "Summary should be at least 50 characters"
	TipExperience = "Add at least one work experience"
	TipHighlights = "Add bullet points to experience"
	TipEducation  = "Add education information"
	TipSkills     = "Add skills section"
	TipWordCount  = "Aim for 300-700 total words"
)

const (
	minSummaryChars = 50
	minTotalWords   = 300
	maxTotalWords   = 700
)

// ScoreResult is the ATS heuristic: points out of 100 plus one tip per
// failed check that has one, in checklist order.
type ScoreResult struct {
	Score int      `json:"score"`
	Tips  []string `json:"tips"`
}

type check struct {
	points int
	tip    string
	passed func(doc cv.Document) bool
}

var checklist = []check{
	{points: 5, passed: func(d cv.Document) bool { return filledIn(d.Name) }},
	{points: 5, passed: func(d cv.Document) bool { return filledIn(d.Email) }},
	{points: 5, passed: func(d cv.Document) bool { return filledIn(d.Phone) }},
	{points: 5, tip: TipLocation, passed: func(d cv.Document) bool { return filledIn(d.Location) }},
	{points: 15, tip: TipSummary, passed: func(d cv.Document) bool {
		return utf8.RuneCountInString(d.Summary) > minSummaryChars
	}},
	{points: 15, tip: TipExperience, passed: func(d cv.Document) bool {
		for _, e := range d.Experience {
			if filledIn(e.Company) && filledIn(e.Position) {
				return true
			}
		}
		return false
	}},
	{points: 10, tip: TipHighlights, passed: func(d cv.Document) bool {
		for _, e := range d.Experience {
			if len(e.Highlights) > 0 {
				return true
			}
		}
		return false
	}},
	{points: 15, tip: TipEducation, passed: func(d cv.Document) bool {
		for _, e := range d.Education {
			if filledIn(e.Institution) {
				return true
			}
		}
		return false
	}},
	{points: 15, tip: TipSkills, passed: func(d cv.Document) bool {
		for _, e := range d.Skills {
			if filledIn(e.Label) {
				return true
			}
		}
		return false
	}},
	{points: 10, tip: TipWordCount, passed: func(d cv.Document) bool {
		words := TotalWords(d)
		return words >= minTotalWords && words <= maxTotalWords
	}},
}

// Score evaluates the checklist against doc.
func Score(doc cv.Document) ScoreResult {
	result := ScoreResult{Tips: make([]string, 0)}
	for _, c := range checklist {
		if c.passed(doc) {
			result.Score += c.points
		} else if c.tip != "" {
			result.Tips = append(result.Tips, c.tip)
		}
	}
	return result
}
