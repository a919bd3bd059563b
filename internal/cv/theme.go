package cv

import (
	"fmt"
	"strings"

	"cvstudio/internal/errors"
)

// Theme selects one of the typesetter's templates.
type Theme string

const (
	ThemeClassic            Theme = "classic"
	ThemeModernCV           Theme = "moderncv"
	ThemeSB2Nov             Theme = "sb2nov"
	ThemeEngineeringResumes Theme = "engineeringresumes"
	ThemeEngineeringClassic Theme = "engineeringclassic"

	DefaultTheme = ThemeClassic
)

// Themes lists the supported themes in display order.
var Themes = []Theme{
	ThemeClassic,
	ThemeModernCV,
	ThemeSB2Nov,
	ThemeEngineeringResumes,
	ThemeEngineeringClassic,
}

// displayOrders is the canonical editor order per theme. Every order starts
// with profile and summary and ends with design.
var displayOrders = map[Theme][]Section{
	ThemeClassic: {
		SectionProfile, SectionSummary, SectionExperience, SectionEducation, SectionProjects,
		SectionSkills, SectionPublications, SectionHonors, SectionPatents, SectionTalks, SectionDesign,
	},
	ThemeModernCV: {
		SectionProfile, SectionSummary, SectionExperience, SectionEducation, SectionSkills,
		SectionProjects, SectionPublications, SectionHonors, SectionPatents, SectionTalks, SectionDesign,
	},
	ThemeSB2Nov: {
		SectionProfile, SectionSummary, SectionEducation, SectionExperience, SectionProjects,
		SectionSkills, SectionPublications, SectionHonors, SectionPatents, SectionTalks, SectionDesign,
	},
	ThemeEngineeringResumes: {
		SectionProfile, SectionSummary, SectionSkills, SectionExperience, SectionProjects,
		SectionEducation, SectionPublications, SectionHonors, SectionPatents, SectionTalks, SectionDesign,
	},
	ThemeEngineeringClassic: {
		SectionProfile, SectionSummary, SectionExperience, SectionProjects, SectionEducation,
		SectionSkills, SectionPublications, SectionHonors, SectionTalks, SectionPatents, SectionDesign,
	},
}

// ParseTheme resolves a theme name. An empty value selects the default.
func ParseTheme(value string) (Theme, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	if name == "" {
		return DefaultTheme, nil
	}
	theme := Theme(name)
	if _, ok := displayOrders[theme]; !ok {
		return "", errors.NewValidationError(errors.ErrCodeFieldInvalid,
			fmt.Sprintf("unknown theme %q", value), nil).
			WithContext("field", "theme")
	}
	return theme, nil
}

func (t Theme) String() string {
	return string(t)
}

// DisplayOrder returns the full editor order, pseudo-sections included.
// Unknown themes fall back to the default theme's order.
func (t Theme) DisplayOrder() []Section {
	order, ok := displayOrders[t]
	if !ok {
		order = displayOrders[DefaultTheme]
	}
	out := make([]Section, len(order))
	copy(out, order)
	return out
}

// SectionOrder is the order sent to the typesetter: DisplayOrder without
// profile and design.
func (t Theme) SectionOrder() []Section {
	order := t.DisplayOrder()
	out := make([]Section, 0, len(order))
	for _, s := range order {
		if s.IsPseudo() {
			continue
		}
		out = append(out, s)
	}
	return out
}
