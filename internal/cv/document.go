// Package cv holds the CV document model: profile fields, typed section
// entries, design settings and themes, plus JSON/YAML loading.
package cv

import (
	"strings"

	"github.com/google/uuid"
)

// Document is the root of everything the editor collects. It is passed by
// value; list fields are replaced rather than mutated in place.
type Document struct {
	Name     string `json:"name" yaml:"name"`
	Headline string `json:"headline" yaml:"headline,omitempty"`
	Email    string `json:"email" yaml:"email,omitempty"`
	Phone    string `json:"phone" yaml:"phone,omitempty"`
	Location string `json:"location" yaml:"location,omitempty"`
	Website  string `json:"website" yaml:"website,omitempty"`
	LinkedIn string `json:"linkedin" yaml:"linkedin,omitempty"`
	GitHub   string `json:"github" yaml:"github,omitempty"`
	Summary  string `json:"summary" yaml:"summary,omitempty"`
	Photo    string `json:"photo,omitempty" yaml:"photo,omitempty"`

	Experience   []ExperienceEntry  `json:"experience" yaml:"experience,omitempty"`
	Education    []EducationEntry   `json:"education" yaml:"education,omitempty"`
	Skills       []SkillEntry       `json:"skills" yaml:"skills,omitempty"`
	Projects     []ProjectEntry     `json:"projects" yaml:"projects,omitempty"`
	Publications []PublicationEntry `json:"publications" yaml:"publications,omitempty"`
	Honors       []HonorEntry       `json:"honors" yaml:"honors,omitempty"`
	Patents      []PatentEntry      `json:"patents" yaml:"patents,omitempty"`
	Talks        []TalkEntry        `json:"talks" yaml:"talks,omitempty"`
}

// Entry is implemented by every section entry type.
type Entry interface {
	EntryID() string
	Section() Section
	// Texts returns the string-valued content fields, excluding lists.
	Texts() []string
}

// Dated is implemented by entries that carry a start/end range.
type Dated interface {
	DateRange() (start, end string)
}

type ExperienceEntry struct {
	ID         string   `json:"-" yaml:"-"`
	Company    string   `json:"company" yaml:"company"`
	Position   string   `json:"position" yaml:"position"`
	StartDate  string   `json:"start_date" yaml:"start_date,omitempty"`
	EndDate    string   `json:"end_date" yaml:"end_date,omitempty"`
	Location   string   `json:"location" yaml:"location,omitempty"`
	Summary    string   `json:"summary" yaml:"summary,omitempty"`
	Highlights []string `json:"highlights" yaml:"highlights,omitempty"`
}

type EducationEntry struct {
	ID          string   `json:"-" yaml:"-"`
	Institution string   `json:"institution" yaml:"institution"`
	Area        string   `json:"area" yaml:"area"`
	Degree      string   `json:"degree" yaml:"degree,omitempty"`
	StartDate   string   `json:"start_date" yaml:"start_date,omitempty"`
	EndDate     string   `json:"end_date" yaml:"end_date,omitempty"`
	Location    string   `json:"location" yaml:"location,omitempty"`
	Summary     string   `json:"summary" yaml:"summary,omitempty"`
	Highlights  []string `json:"highlights" yaml:"highlights,omitempty"`
}

type SkillEntry struct {
	ID      string `json:"-" yaml:"-"`
	Label   string `json:"label" yaml:"label"`
	Details string `json:"details" yaml:"details,omitempty"`
}

type ProjectEntry struct {
	ID         string   `json:"-" yaml:"-"`
	Name       string   `json:"name" yaml:"name"`
	Date       string   `json:"date" yaml:"date,omitempty"`
	StartDate  string   `json:"start_date" yaml:"start_date,omitempty"`
	EndDate    string   `json:"end_date" yaml:"end_date,omitempty"`
	Location   string   `json:"location" yaml:"location,omitempty"`
	URL        string   `json:"url" yaml:"url,omitempty"`
	Summary    string   `json:"summary" yaml:"summary,omitempty"`
	Highlights []string `json:"highlights" yaml:"highlights,omitempty"`
}

// PublicationEntry keeps authors as one comma-separated string.
type PublicationEntry struct {
	ID      string `json:"-" yaml:"-"`
	Title   string `json:"title" yaml:"title"`
	Authors string `json:"authors" yaml:"authors"`
	Journal string `json:"journal" yaml:"journal,omitempty"`
	Date    string `json:"date" yaml:"date,omitempty"`
	DOI     string `json:"doi" yaml:"doi,omitempty"`
	URL     string `json:"url" yaml:"url,omitempty"`
	Summary string `json:"summary" yaml:"summary,omitempty"`
}

type HonorEntry struct {
	ID     string `json:"-" yaml:"-"`
	Bullet string `json:"bullet" yaml:"bullet"`
}

type PatentEntry struct {
	ID     string `json:"-" yaml:"-"`
	Number string `json:"number" yaml:"number"`
}

type TalkEntry struct {
	ID             string `json:"-" yaml:"-"`
	ReversedNumber string `json:"reversed_number" yaml:"reversed_number"`
}

func (e ExperienceEntry) EntryID() string  { return e.ID }
func (e EducationEntry) EntryID() string   { return e.ID }
func (e SkillEntry) EntryID() string       { return e.ID }
func (e ProjectEntry) EntryID() string     { return e.ID }
func (e PublicationEntry) EntryID() string { return e.ID }
func (e HonorEntry) EntryID() string       { return e.ID }
func (e PatentEntry) EntryID() string      { return e.ID }
func (e TalkEntry) EntryID() string        { return e.ID }

func (ExperienceEntry) Section() Section  { return SectionExperience }
func (EducationEntry) Section() Section   { return SectionEducation }
func (SkillEntry) Section() Section       { return SectionSkills }
func (ProjectEntry) Section() Section     { return SectionProjects }
func (PublicationEntry) Section() Section { return SectionPublications }
func (HonorEntry) Section() Section       { return SectionHonors }
func (PatentEntry) Section() Section      { return SectionPatents }
func (TalkEntry) Section() Section        { return SectionTalks }

func (e ExperienceEntry) Texts() []string {
	return []string{e.Company, e.Position, e.StartDate, e.EndDate, e.Location, e.Summary}
}

func (e EducationEntry) Texts() []string {
	return []string{e.Institution, e.Area, e.Degree, e.StartDate, e.EndDate, e.Location, e.Summary}
}

func (e SkillEntry) Texts() []string { return []string{e.Label, e.Details} }

func (e ProjectEntry) Texts() []string {
	return []string{e.Name, e.Date, e.StartDate, e.EndDate, e.Location, e.URL, e.Summary}
}

func (e PublicationEntry) Texts() []string {
	return []string{e.Title, e.Authors, e.Journal, e.Date, e.DOI, e.URL, e.Summary}
}

func (e HonorEntry) Texts() []string  { return []string{e.Bullet} }
func (e PatentEntry) Texts() []string { return []string{e.Number} }
func (e TalkEntry) Texts() []string   { return []string{e.ReversedNumber} }

func (e ExperienceEntry) DateRange() (string, string) { return e.StartDate, e.EndDate }
func (e EducationEntry) DateRange() (string, string)  { return e.StartDate, e.EndDate }
func (e ProjectEntry) DateRange() (string, string)    { return e.StartDate, e.EndDate }

func newID() string {
	return uuid.NewString()
}

// Default entries, as appended by the editor's "add" action.

func NewExperienceEntry() ExperienceEntry {
	return ExperienceEntry{ID: newID(), EndDate: "present", Highlights: []string{}}
}

func NewEducationEntry() EducationEntry {
	return EducationEntry{ID: newID(), Highlights: []string{}}
}

func NewSkillEntry() SkillEntry             { return SkillEntry{ID: newID()} }
func NewProjectEntry() ProjectEntry         { return ProjectEntry{ID: newID(), Highlights: []string{}} }
func NewPublicationEntry() PublicationEntry { return PublicationEntry{ID: newID()} }
func NewHonorEntry() HonorEntry             { return HonorEntry{ID: newID()} }
func NewPatentEntry() PatentEntry           { return PatentEntry{ID: newID()} }
func NewTalkEntry() TalkEntry               { return TalkEntry{ID: newID()} }

// NewEntry returns the default entry for a list section.
func NewEntry(section Section) (Entry, error) {
	switch section {
	case SectionExperience:
		return NewExperienceEntry(), nil
	case SectionEducation:
		return NewEducationEntry(), nil
	case SectionSkills:
		return NewSkillEntry(), nil
	case SectionProjects:
		return NewProjectEntry(), nil
	case SectionPublications:
		return NewPublicationEntry(), nil
	case SectionHonors:
		return NewHonorEntry(), nil
	case SectionPatents:
		return NewPatentEntry(), nil
	case SectionTalks:
		return NewTalkEntry(), nil
	}
	return nil, UnknownSectionError(string(section))
}

// New returns an empty document with non-nil lists.
func New() Document {
	return Document{}.Clone()
}

// Entries returns a read-only view of a list section. Non-list sections yield nil.
func (d Document) Entries(section Section) []Entry {
	switch section {
	case SectionExperience:
		return toEntries(d.Experience)
	case SectionEducation:
		return toEntries(d.Education)
	case SectionSkills:
		return toEntries(d.Skills)
	case SectionProjects:
		return toEntries(d.Projects)
	case SectionPublications:
		return toEntries(d.Publications)
	case SectionHonors:
		return toEntries(d.Honors)
	case SectionPatents:
		return toEntries(d.Patents)
	case SectionTalks:
		return toEntries(d.Talks)
	}
	return nil
}

func toEntries[T Entry](list []T) []Entry {
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

// ProfileFields returns the scalar profile values in declaration order.
func (d Document) ProfileFields() []string {
	return []string{d.Name, d.Headline, d.Email, d.Phone, d.Location, d.Website, d.LinkedIn, d.GitHub, d.Summary, d.Photo}
}

// IsEmpty is true when every scalar is blank and every list is empty.
func (d Document) IsEmpty() bool {
	for _, field := range d.ProfileFields() {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	for _, section := range ListSections {
		if len(d.Entries(section)) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. Every list of the copy is non-nil, so it
// encodes as [] rather than null.
func (d Document) Clone() Document {
	out := d
	out.Experience = cloneList(d.Experience, func(e ExperienceEntry) ExperienceEntry {
		e.Highlights = cloneStrings(e.Highlights)
		return e
	})
	out.Education = cloneList(d.Education, func(e EducationEntry) EducationEntry {
		e.Highlights = cloneStrings(e.Highlights)
		return e
	})
	out.Skills = cloneList(d.Skills, nil)
	out.Projects = cloneList(d.Projects, func(e ProjectEntry) ProjectEntry {
		e.Highlights = cloneStrings(e.Highlights)
		return e
	})
	out.Publications = cloneList(d.Publications, nil)
	out.Honors = cloneList(d.Honors, nil)
	out.Patents = cloneList(d.Patents, nil)
	out.Talks = cloneList(d.Talks, nil)
	return out
}

func cloneList[T any](list []T, deep func(T) T) []T {
	out := make([]T, len(list))
	for i, e := range list {
		if deep != nil {
			e = deep(e)
		}
		out[i] = e
	}
	return out
}

func cloneStrings(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// AssignIDs gives every entry without an identity a fresh one.
func (d *Document) AssignIDs() {
	for i := range d.Experience {
		ensureID(&d.Experience[i].ID)
	}
	for i := range d.Education {
		ensureID(&d.Education[i].ID)
	}
	for i := range d.Skills {
		ensureID(&d.Skills[i].ID)
	}
	for i := range d.Projects {
		ensureID(&d.Projects[i].ID)
	}
	for i := range d.Publications {
		ensureID(&d.Publications[i].ID)
	}
	for i := range d.Honors {
		ensureID(&d.Honors[i].ID)
	}
	for i := range d.Patents {
		ensureID(&d.Patents[i].ID)
	}
	for i := range d.Talks {
		ensureID(&d.Talks[i].ID)
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = newID()
	}
}

// StripBold removes markdown bold markers, which the name field tolerates
// but file names and the typesetter do not.
func StripBold(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
