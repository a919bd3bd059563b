package cv

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cvstudio/internal/errors"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func documentSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return compiledSchema, schemaErr
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported CV file extension for %s (expected .json, .yaml or .yml)", path), nil).
		WithContext("file", path)
}

// Parse decodes, validates and normalizes a document.
func Parse(data []byte, format Format) (Document, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported document format %q", format), nil)
	}
	if err != nil {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("document is not valid %s", format), err)
	}
	return Decode(raw)
}

// Decode validates a generic map against the document schema and converts it.
// Numbers and timestamps in text positions become strings, since YAML
// readily produces them for phone numbers and dates.
func Decode(raw map[string]any) (Document, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	normalized, _ := normalizeValue(raw).(map[string]any)
	joinAuthors(normalized)

	schema, err := documentSchema()
	if err != nil {
		return Document{}, errors.NewInternalError(errors.ErrCodeSchemaViolation, "document schema failed to compile", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(normalized))
	if err != nil {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidFormat, "document could not be validated", err)
	}
	if !result.Valid() {
		return Document{}, schemaViolation(result.Errors())
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return Document{}, errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to re-encode document", err)
	}
	var doc Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidFormat, "document does not match the CV model", err)
	}
	doc = doc.Clone()
	doc.AssignIDs()
	return doc, nil
}

func schemaViolation(resultErrors []gojsonschema.ResultError) *errors.AppError {
	first := resultErrors[0]
	field := violationField(first)
	violations := make([]string, 0, len(resultErrors))
	for _, re := range resultErrors {
		violations = append(violations, re.String())
	}
	return errors.NewValidationError(errors.ErrCodeSchemaViolation, first.Description(), nil).
		WithContext("field", field).
		WithContext("path", first.Field()).
		WithContext("violations", violations)
}

// violationField names the offending property: the missing key for
// "required" errors, otherwise the last non-index path element.
func violationField(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if property, ok := re.Details()["property"].(string); ok {
			return property
		}
	}
	parts := strings.Split(re.Field(), ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if _, err := strconv.Atoi(parts[i]); err == nil {
			continue
		}
		if parts[i] == "(root)" {
			break
		}
		return parts[i]
	}
	return ""
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return v
	}
}

func joinAuthors(doc map[string]any) {
	pubs, ok := doc["publications"].([]any)
	if !ok {
		return
	}
	for _, p := range pubs {
		pub, ok := p.(map[string]any)
		if !ok {
			continue
		}
		list, ok := pub["authors"].([]any)
		if !ok {
			continue
		}
		names := make([]string, 0, len(list))
		for _, a := range list {
			if s, ok := a.(string); ok && strings.TrimSpace(s) != "" {
				names = append(names, strings.TrimSpace(s))
			}
		}
		pub["authors"] = strings.Join(names, ", ")
	}
}

// Marshal encodes a document in the given format.
func Marshal(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc.Clone(), "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	}
	return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported document format %q", format), nil)
}

// LoadFile reads a document from a .json, .yaml or .yml file.
func LoadFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("CV file not found: %s", path), err).WithContext("file", path)
		}
		return Document{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to read CV file: %s", path), err).WithContext("file", path)
	}
	doc, err := Parse(data, format)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return Document{}, appErr.WithContext("file", path)
		}
		return Document{}, err
	}
	return doc, nil
}

// SaveFile writes a document in the format implied by the path's extension.
func SaveFile(path string, doc Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(doc, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("failed to write CV file: %s", path), err).WithContext("file", path)
	}
	return nil
}
