// Package rendercv builds the typesetter's YAML input from a CV document.
// Key order matters to the typesetter, so the tree is assembled from
// yaml.Node values instead of maps.
package rendercv

import (
	"bytes"
	"fmt"
	"strings"

	"cvstudio/internal/cv"

	"gopkg.in/yaml.v3"
)

// DefaultOrder is used when no section order is supplied.
var DefaultOrder = []cv.Section{
	cv.SectionSummary,
	cv.SectionExperience,
	cv.SectionEducation,
	cv.SectionProjects,
	cv.SectionSkills,
	cv.SectionPublications,
	cv.SectionHonors,
	cv.SectionPatents,
	cv.SectionTalks,
}

var sectionKeys = map[cv.Section]string{
	cv.SectionSummary:      "Summary",
	cv.SectionExperience:   "experience",
	cv.SectionEducation:    "education",
	cv.SectionProjects:     "projects",
	cv.SectionSkills:       "skills",
	cv.SectionPublications: "publications",
	cv.SectionHonors:       "selected_honors",
	cv.SectionPatents:      "patents",
	cv.SectionTalks:        "invited_talks",
}

// SectionKey returns the typesetter's key for a section, or "" when the
// section is not rendered as a section.
func SectionKey(section cv.Section) string {
	return sectionKeys[section]
}

// Build returns the root mapping with a cv block and a design block.
// Sections are emitted in order; empty ones are left out.
func Build(doc cv.Document, theme cv.Theme, design cv.DesignSettings, order []cv.Section) *yaml.Node {
	root := mapping()
	appendPair(root, "cv", buildCV(doc, order))
	appendPair(root, "design", buildDesign(theme, design))
	return root
}

// Marshal encodes Build's tree with two-space indentation.
func Marshal(doc cv.Document, theme cv.Theme, design cv.DesignSettings, order []cv.Section) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Build(doc, theme, design, order)); err != nil {
		return "", fmt.Errorf("failed to encode rendercv yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to flush rendercv yaml: %w", err)
	}
	return buf.String(), nil
}

// FileName is the download name for a CV: bold markers stripped, spaces
// replaced by underscores, and a "_CV.<ext>" suffix.
func FileName(name, ext string) string {
	base := strings.TrimSpace(cv.StripBold(name))
	if base == "" {
		base = "CV"
	}
	return strings.ReplaceAll(base, " ", "_") + "_CV." + ext
}

// NormalizeURL prepends https:// when no scheme is given. Values that
// cannot be URLs come back empty.
func NormalizeURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" || strings.ContainsAny(url, ", ") {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	if !strings.Contains(url, ".") {
		return ""
	}
	return url
}

func buildCV(doc cv.Document, order []cv.Section) *yaml.Node {
	node := mapping()
	appendString(node, "name", cv.StripBold(strings.TrimSpace(doc.Name)))
	appendString(node, "headline", doc.Headline)
	appendString(node, "email", doc.Email)
	appendString(node, "phone", doc.Phone)
	appendString(node, "location", doc.Location)
	appendString(node, "website", NormalizeURL(doc.Website))

	networks := sequence()
	if doc.LinkedIn != "" {
		networks.Content = append(networks.Content, socialNetwork("LinkedIn", doc.LinkedIn))
	}
	if doc.GitHub != "" {
		networks.Content = append(networks.Content, socialNetwork("GitHub", doc.GitHub))
	}
	if len(networks.Content) > 0 {
		appendPair(node, "social_networks", networks)
	}

	if len(order) == 0 {
		order = DefaultOrder
	}
	sections := mapping()
	seen := make(map[cv.Section]bool, len(order))
	for _, section := range order {
		key := SectionKey(section)
		if key == "" || seen[section] {
			continue
		}
		seen[section] = true
		if content := buildSection(doc, section); content != nil {
			appendPair(sections, key, content)
		}
	}
	if len(sections.Content) > 0 {
		appendPair(node, "sections", sections)
	}
	return node
}

func socialNetwork(network, username string) *yaml.Node {
	n := mapping()
	appendPair(n, "network", str(network))
	appendPair(n, "username", str(username))
	return n
}

// buildSection returns nil when nothing in the section survives filtering.
func buildSection(doc cv.Document, section cv.Section) *yaml.Node {
	list := sequence()
	switch section {
	case cv.SectionSummary:
		if summary := strings.TrimSpace(doc.Summary); summary != "" {
			list.Content = append(list.Content, str(summary))
		}
	case cv.SectionExperience:
		for _, e := range doc.Experience {
			if n := experienceNode(e); n != nil {
				list.Content = append(list.Content, n)
			}
		}
	case cv.SectionEducation:
		for _, e := range doc.Education {
			if n := educationNode(e); n != nil {
				list.Content = append(list.Content, n)
			}
		}
	case cv.SectionProjects:
		for _, e := range doc.Projects {
			if n := projectNode(e); n != nil {
				list.Content = append(list.Content, n)
			}
		}
	case cv.SectionSkills:
		for _, e := range doc.Skills {
			label, details := strings.TrimSpace(e.Label), strings.TrimSpace(e.Details)
			if label == "" && details == "" {
				continue
			}
			n := mapping()
			appendPair(n, "label", str(label))
			appendPair(n, "details", str(details))
			list.Content = append(list.Content, n)
		}
	case cv.SectionPublications:
		for _, e := range doc.Publications {
			if n := publicationNode(e); n != nil {
				list.Content = append(list.Content, n)
			}
		}
	case cv.SectionHonors:
		for _, e := range doc.Honors {
			appendSingle(list, "bullet", e.Bullet)
		}
	case cv.SectionPatents:
		for _, e := range doc.Patents {
			appendSingle(list, "number", e.Number)
		}
	case cv.SectionTalks:
		for _, e := range doc.Talks {
			appendSingle(list, "reversed_number", e.ReversedNumber)
		}
	}
	if len(list.Content) == 0 {
		return nil
	}
	return list
}

func experienceNode(e cv.ExperienceEntry) *yaml.Node {
	company, position := strings.TrimSpace(e.Company), strings.TrimSpace(e.Position)
	if company == "" && position == "" {
		return nil
	}
	if company == "" {
		company = "Company"
	}
	if position == "" {
		position = "Position"
	}
	n := mapping()
	appendPair(n, "company", str(company))
	appendPair(n, "position", str(position))
	appendString(n, "start_date", e.StartDate)
	appendString(n, "end_date", e.EndDate)
	appendString(n, "location", e.Location)
	appendString(n, "summary", e.Summary)
	appendHighlights(n, e.Highlights)
	return n
}

func educationNode(e cv.EducationEntry) *yaml.Node {
	institution, area := strings.TrimSpace(e.Institution), strings.TrimSpace(e.Area)
	if institution == "" || area == "" {
		return nil
	}
	n := mapping()
	appendPair(n, "institution", str(institution))
	appendPair(n, "area", str(area))
	appendString(n, "degree", e.Degree)
	appendString(n, "start_date", e.StartDate)
	appendString(n, "end_date", e.EndDate)
	appendString(n, "location", e.Location)
	appendString(n, "summary", e.Summary)
	appendHighlights(n, e.Highlights)
	return n
}

func projectNode(e cv.ProjectEntry) *yaml.Node {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil
	}
	if e.URL != "" {
		name = fmt.Sprintf("[%s](%s)", name, e.URL)
	}
	n := mapping()
	appendPair(n, "name", str(name))
	appendString(n, "date", e.Date)
	appendString(n, "start_date", e.StartDate)
	appendString(n, "end_date", e.EndDate)
	appendString(n, "location", e.Location)
	appendString(n, "summary", e.Summary)
	appendHighlights(n, e.Highlights)
	return n
}

func publicationNode(e cv.PublicationEntry) *yaml.Node {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return nil
	}
	authors := sequence()
	for _, a := range strings.Split(e.Authors, ",") {
		if a = strings.TrimSpace(a); a != "" {
			authors.Content = append(authors.Content, str(a))
		}
	}
	if len(authors.Content) == 0 {
		return nil
	}
	n := mapping()
	appendPair(n, "title", str(title))
	appendPair(n, "authors", authors)
	appendString(n, "journal", e.Journal)
	appendString(n, "date", e.Date)
	appendString(n, "doi", e.DOI)
	appendString(n, "url", e.URL)
	appendString(n, "summary", e.Summary)
	return n
}

func buildDesign(theme cv.Theme, design cv.DesignSettings) *yaml.Node {
	if theme == "" {
		theme = cv.DefaultTheme
	}
	node := mapping()
	appendPair(node, "theme", str(theme.String()))

	if color := design.PrimaryColor; color != "" {
		colors := mapping()
		for _, key := range []string{"name", "headline", "connections", "section_titles", "links"} {
			appendPair(colors, key, str(color))
		}
		appendPair(node, "colors", colors)
	}
	if font := design.FontFamily; font != "" {
		families := mapping()
		for _, key := range []string{"body", "name", "headline", "connections", "section_titles"} {
			appendPair(families, key, str(font))
		}
		typography := mapping()
		appendPair(typography, "font_family", families)
		appendPair(node, "typography", typography)
	}
	return node
}

func appendHighlights(n *yaml.Node, highlights []string) {
	list := sequence()
	for _, h := range highlights {
		if strings.TrimSpace(h) != "" {
			list.Content = append(list.Content, str(h))
		}
	}
	if len(list.Content) > 0 {
		appendPair(n, "highlights", list)
	}
}

func appendSingle(list *yaml.Node, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	n := mapping()
	appendPair(n, key, str(value))
	list.Content = append(list.Content, n)
}

// appendString adds key only when value is non-empty.
func appendString(n *yaml.Node, key, value string) {
	if value != "" {
		appendPair(n, key, str(value))
	}
}

func appendPair(n *yaml.Node, key string, value *yaml.Node) {
	n.Content = append(n.Content, str(key), value)
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// str tags scalars explicitly so values like "2020" or "yes" stay strings.
func str(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
