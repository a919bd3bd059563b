// Package entries edits section lists. Every operation returns a fresh
// slice, so a caller holding the old list never observes the change.
package entries

import (
	"fmt"
	"strings"

	"cvstudio/internal/cv"
	"cvstudio/internal/errors"
)

// Direction is the way Move shifts an entry.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("invalid direction %q (expected up or down)", value), nil)
}

// Add returns list with entry appended.
func Add[T any](list []T, entry T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, entry)
}

// Move swaps the entry at index with its neighbour. Moves that would leave
// the list, and out-of-range indexes, return an unchanged copy.
func Move[T any](list []T, index int, dir Direction) []T {
	out := make([]T, len(list))
	copy(out, list)

	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if index < 0 || index >= len(out) || target < 0 || target >= len(out) {
		return out
	}
	out[index], out[target] = out[target], out[index]
	return out
}

// Remove drops the entry at index. Out-of-range indexes return an unchanged copy.
func Remove[T any](list []T, index int) []T {
	if index < 0 || index >= len(list) {
		out := make([]T, len(list))
		copy(out, list)
		return out
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

type opKind int

const (
	opAdd opKind = iota
	opMove
	opRemove
)

type listOp struct {
	kind  opKind
	index int
	dir   Direction
}

func apply[T any](list []T, op listOp, newEntry func() T) []T {
	switch op.kind {
	case opAdd:
		return Add(list, newEntry())
	case opMove:
		return Move(list, op.index, op.dir)
	default:
		return Remove(list, op.index)
	}
}

// AddEntry appends the section's default entry.
func AddEntry(doc cv.Document, section cv.Section) (cv.Document, error) {
	return update(doc, section, listOp{kind: opAdd})
}

// MoveEntry moves one entry of a section up or down.
func MoveEntry(doc cv.Document, section cv.Section, index int, dir Direction) (cv.Document, error) {
	return update(doc, section, listOp{kind: opMove, index: index, dir: dir})
}

// RemoveEntry deletes one entry of a section.
func RemoveEntry(doc cv.Document, section cv.Section, index int) (cv.Document, error) {
	return update(doc, section, listOp{kind: opRemove, index: index})
}

func update(doc cv.Document, section cv.Section, op listOp) (cv.Document, error) {
	switch section {
	case cv.SectionExperience:
		doc.Experience = apply(doc.Experience, op, cv.NewExperienceEntry)
	case cv.SectionEducation:
		doc.Education = apply(doc.Education, op, cv.NewEducationEntry)
	case cv.SectionSkills:
		doc.Skills = apply(doc.Skills, op, cv.NewSkillEntry)
	case cv.SectionProjects:
		doc.Projects = apply(doc.Projects, op, cv.NewProjectEntry)
	case cv.SectionPublications:
		doc.Publications = apply(doc.Publications, op, cv.NewPublicationEntry)
	case cv.SectionHonors:
		doc.Honors = apply(doc.Honors, op, cv.NewHonorEntry)
	case cv.SectionPatents:
		doc.Patents = apply(doc.Patents, op, cv.NewPatentEntry)
	case cv.SectionTalks:
		doc.Talks = apply(doc.Talks, op, cv.NewTalkEntry)
	default:
		return doc, cv.UnknownSectionError(string(section))
	}
	return doc, nil
}
