package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cvstudio/internal/cv"
	"cvstudio/internal/errors"
	"cvstudio/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// LoadDocument validates, reads and parses a CV file
func (fp *FileProcessor) LoadDocument(filename string) (cv.Document, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return cv.Document{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	format, err := cv.FormatFromPath(filename)
	if err != nil {
		return cv.Document{}, err
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return cv.Document{}, err
	}

	doc, err := cv.Parse(content, format)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return cv.Document{}, appErr.WithContext("file", filename)
		}
		return cv.Document{}, err
	}

	fp.logger.Debug("Loaded CV document",
		"file", filename,
		"format", string(format),
		"size", utils.FormatFileSize(int64(len(content))))

	return doc, nil
}

// SaveDocument writes doc in the encoding implied by the file extension
func (fp *FileProcessor) SaveDocument(filename string, doc cv.Document) error {
	if !utils.IsDocumentFile(filename) {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported CV file extension: %s", filename), nil)
	}

	format, err := cv.FormatFromPath(filename)
	if err != nil {
		return err
	}

	content, err := cv.Marshal(doc, format)
	if err != nil {
		return errors.NewInternalError("DOCUMENT_ENCODE_FAILED",
			fmt.Sprintf("Cannot encode CV as %s", format), err)
	}

	return fp.WriteFile(filename, content)
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
