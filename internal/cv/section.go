package cv

import (
	"fmt"
	"strings"

	"cvstudio/internal/errors"
)

// Section identifies a part of the editor. Profile and design are
// pseudo-sections that are edited like the others but never rendered as lists.
type Section string

const (
	SectionProfile      Section = "profile"
	SectionSummary      Section = "summary"
	SectionExperience   Section = "experience"
	SectionEducation    Section = "education"
	SectionSkills       Section = "skills"
	SectionProjects     Section = "projects"
	SectionPublications Section = "publications"
	SectionHonors       Section = "honors"
	SectionPatents      Section = "patents"
	SectionTalks        Section = "talks"
	SectionDesign       Section = "design"
)

// ListSections are the sections backed by an ordered entry list.
var ListSections = []Section{
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionPublications,
	SectionHonors,
	SectionPatents,
	SectionTalks,
}

// ContentSections are the sections that carry user-written text: profile
// plus every list section. Summary is only a render-order identifier; its
// text belongs to profile.
var ContentSections = append([]Section{SectionProfile}, ListSections...)

// IsList reports whether s is backed by an entry list.
func (s Section) IsList() bool {
	for _, ls := range ListSections {
		if s == ls {
			return true
		}
	}
	return false
}

func (s Section) String() string {
	return string(s)
}

// ParseSection accepts any known section identifier, case-insensitively.
func ParseSection(value string) (Section, error) {
	candidate := Section(strings.ToLower(strings.TrimSpace(value)))
	switch candidate {
	case SectionProfile, SectionSummary, SectionDesign:
		return candidate, nil
	}
	if candidate.IsList() {
		return candidate, nil
	}
	return "", UnknownSectionError(value)
}

// UnknownSectionError is returned wherever a section name cannot be resolved.
func UnknownSectionError(value string) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeUnknownSection,
		fmt.Sprintf("unknown section %q", value), nil).
		WithContext("section", value)
}

// IsPseudo reports whether s is an editor-only section that the typesetter
// never receives.
func (s Section) IsPseudo() bool {
	return s == SectionProfile || s == SectionDesign
}

// ParseOrderSection resolves one element of a render section order.
// Profile and design are rejected since they are not rendered as sections.
func ParseOrderSection(value string) (Section, error) {
	section, err := ParseSection(value)
	if err != nil {
		return "", err
	}
	if section.IsPseudo() {
		return "", errors.NewValidationError(errors.ErrCodeUnknownSection,
			fmt.Sprintf("section %q cannot appear in a section order", section), nil).
			WithContext("section", value)
	}
	return section, nil
}
