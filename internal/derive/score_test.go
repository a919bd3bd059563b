package derive

import (
	"strings"
	"testing"

	"cvstudio/internal/cv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func completeDocument() cv.Document {
	return cv.Document{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "555",
		Location: "London",
		Summary:  words(60),
		Experience: []cv.ExperienceEntry{{
			Company: "Engines", Position: "Programmer",
			Highlights: []string{"First algorithm"},
		}},
		Education: []cv.EducationEntry{{Institution: "Home", Area: "Mathematics"}},
		Skills:    []cv.SkillEntry{{Label: "Math", Details: words(300)}},
	}
}

func TestScore_Empty(t *testing.T) {
	result := Score(cv.Document{})

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, []string{
		TipLocation, TipSummary, TipExperience, TipHighlights, TipEducation, TipSkills, TipWordCount,
	}, result.Tips)
}

func TestScore_Complete(t *testing.T) {
	result := Score(completeDocument())

	assert.Equal(t, 100, result.Score)
	require.NotNil(t, result.Tips)
	assert.Empty(t, result.Tips)
}

func TestScore_IndividualChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *cv.Document)
		lost    int
		tip     string
		withTip bool
	}{
		{name: "no name", mutate: func(d *cv.Document) { d.Name = " " }, lost: 5},
		{name: "no email", mutate: func(d *cv.Document) { d.Email = "" }, lost: 5},
		{name: "no phone", mutate: func(d *cv.Document) { d.Phone = "" }, lost: 5},
		{name: "no location", mutate: func(d *cv.Document) { d.Location = "" }, lost: 5, tip: TipLocation, withTip: true},
		{
			name:   "summary of exactly 50 characters",
			mutate: func(d *cv.Document) { d.Summary = strings.Repeat("a", 50); d.Skills[0].Details = words(360) },
			lost:   15, tip: TipSummary, withTip: true,
		},
		{
			name:   "experience without position",
			mutate: func(d *cv.Document) { d.Experience[0].Position = "" },
			lost:   15, tip: TipExperience, withTip: true,
		},
		{
			name:   "experience without highlights",
			mutate: func(d *cv.Document) { d.Experience[0].Highlights = nil },
			lost:   10, tip: TipHighlights, withTip: true,
		},
		{
			name:   "education without institution",
			mutate: func(d *cv.Document) { d.Education[0].Institution = "" },
			lost:   15, tip: TipEducation, withTip: true,
		},
		{
			name:   "skills without label",
			mutate: func(d *cv.Document) { d.Skills[0].Label = ""; d.Skills[0].Details = words(301) },
			lost:   15, tip: TipSkills, withTip: true,
		},
		{
			name:   "too many words",
			mutate: func(d *cv.Document) { d.Skills[0].Details = words(700) },
			lost:   10, tip: TipWordCount, withTip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := completeDocument()
			tt.mutate(&doc)
			result := Score(doc)

			assert.Equal(t, 100-tt.lost, result.Score)
			if tt.withTip {
				assert.Equal(t, []string{tt.tip}, result.Tips)
			} else {
				assert.Empty(t, result.Tips)
			}
		})
	}
}

func TestScore_WordBoundaries(t *testing.T) {
	doc := completeDocument()
	base := TotalWords(doc) - 300

	doc.Skills[0].Details = words(300 - base)
	assert.Equal(t, 300, TotalWords(doc))
	assert.Equal(t, 100, Score(doc).Score)

	doc.Skills[0].Details = words(299 - base)
	assert.Contains(t, Score(doc).Tips, TipWordCount)

	doc.Skills[0].Details = words(700 - base)
	assert.NotContains(t, Score(doc).Tips, TipWordCount)
}

func TestAnalyze(t *testing.T) {
	doc := completeDocument()
	doc.Experience[0].StartDate = "2021-05"
	doc.Experience[0].EndDate = "2020-01"
	doc.Projects = []cv.ProjectEntry{{Name: "p", StartDate: "2019", EndDate: "present"}}

	insights := Analyze(doc, cv.ThemeSB2Nov)

	require.NotEmpty(t, insights.Sections)
	assert.Equal(t, cv.SectionProfile, insights.Sections[0].Section)
	assert.Equal(t, cv.SectionEducation, insights.Sections[1].Section)
	assert.Equal(t, cv.SectionDesign, insights.Sections[len(insights.Sections)-1].Section)
	for _, s := range insights.Sections {
		assert.NotEqual(t, cv.SectionSummary, s.Section)
	}

	assert.Len(t, insights.Dates, 3)
	invalid := insights.InvalidDates()
	require.Len(t, invalid, 1)
	assert.Equal(t, cv.SectionExperience, invalid[0].Section)
	assert.Equal(t, 0, invalid[0].Index)
	assert.Equal(t, MsgEndBeforeStart, invalid[0].Message)

	assert.Equal(t, TotalWords(doc), insights.TotalWords)
	assert.Equal(t, Score(doc), insights.Score)
}
