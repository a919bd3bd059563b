package cli

import (
	"fmt"
	"strconv"

	"cvstudio/internal/common"
	"cvstudio/internal/cv"
	"cvstudio/internal/entries"
	"cvstudio/internal/errors"

	"github.com/spf13/cobra"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Add, reorder or remove section entries",
	Long: `Edit the entry lists of a CV file in place. Sections are experience,
education, skills, projects, publications, honors, patents and talks.
Positions are counted from 1 in the order the file lists them.`,
}

var entryAddCmd = &cobra.Command{
	Use:   "add [cv-file] [section]",
	Short: "Append an empty entry to a section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := parseListSection(args[1])
		if err != nil {
			return err
		}
		return editDocument(cmd, args[0], "add", section, func(doc cv.Document) (cv.Document, error) {
			return entries.AddEntry(doc, section)
		})
	},
}

var entryMoveCmd = &cobra.Command{
	Use:       "move [cv-file] [section] [position] [up|down]",
	Short:     "Swap an entry with its neighbour",
	Args:      cobra.ExactArgs(4),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := parseListSection(args[1])
		if err != nil {
			return err
		}
		index, err := parsePosition(args[2])
		if err != nil {
			return err
		}
		dir, err := entries.ParseDirection(args[3])
		if err != nil {
			return err
		}
		return editDocument(cmd, args[0], "move", section, func(doc cv.Document) (cv.Document, error) {
			return entries.MoveEntry(doc, section, index, dir)
		})
	},
}

var entryRemoveCmd = &cobra.Command{
	Use:   "remove [cv-file] [section] [position]",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := parseListSection(args[1])
		if err != nil {
			return err
		}
		index, err := parsePosition(args[2])
		if err != nil {
			return err
		}
		return editDocument(cmd, args[0], "remove", section, func(doc cv.Document) (cv.Document, error) {
			return entries.RemoveEntry(doc, section, index)
		})
	},
}

func init() {
	entryCmd.AddCommand(entryAddCmd)
	entryCmd.AddCommand(entryMoveCmd)
	entryCmd.AddCommand(entryRemoveCmd)
}

// parseListSection accepts only sections backed by an entry list
func parseListSection(name string) (cv.Section, error) {
	section, err := cv.ParseSection(name)
	if err != nil {
		return "", err
	}
	if !section.IsList() {
		return "", errors.NewValidationError(errors.ErrCodeUnknownSection,
			fmt.Sprintf("section %q has no entries", section), nil).WithContext("section", name)
	}
	return section, nil
}

// parsePosition turns a 1-based position into a list index
func parsePosition(value string) (int, error) {
	position, err := strconv.Atoi(value)
	if err != nil || position < 1 {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid position %q (expected a number from 1)", value), err)
	}
	return position - 1, nil
}

// editDocument loads the CV at path, applies edit and writes it back
func editDocument(cmd *cobra.Command, path, action string, section cv.Section, edit func(cv.Document) (cv.Document, error)) error {
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	fileProcessor := common.NewFileProcessor(logger)
	doc, err := fileProcessor.LoadDocument(path)
	if err != nil {
		return err
	}

	before := len(doc.Entries(section))
	updated, err := edit(doc)
	if err != nil {
		return err
	}
	after := len(updated.Entries(section))

	if err := fileProcessor.SaveDocument(path, updated); err != nil {
		return err
	}

	logger.Info("Section updated",
		"file", path,
		"action", action,
		"section", section.String(),
		"entries_before", before,
		"entries_after", after)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", section, after)
	return nil
}
