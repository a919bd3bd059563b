package render

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// RenderError is a non-2xx answer from the typesetter. Field and Message
// are set when the body names the offending input field.
type RenderError struct {
	StatusCode int
	Field      string
	Message    string
}

func (e *RenderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("render failed with status %d: %s: %s", e.StatusCode, e.Field, e.Message)
	}
	return fmt.Sprintf("render failed with status %d: %s", e.StatusCode, e.Message)
}

// IsClientError is true for 4xx answers, which retrying cannot fix.
func (e *RenderError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsContentError is true when the document itself was rejected: any 4xx,
// or a failure of any status that names an input field. The typesetter
// reports content validation as a 500 carrying loc/msg.
func (e *RenderError) IsContentError() bool {
	return e.Field != "" || e.IsClientError()
}

var (
	locPattern = regexp.MustCompile(`["']loc["']\s*:\s*[\[(]([^\])]*)[\])]`)
	msgPattern = regexp.MustCompile(`["']msg["']\s*:\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`)
)

// ParseErrorBody extracts the field and message of a validation failure.
// It understands FastAPI's JSON detail list as well as a Python repr of
// that list embedded in a string detail. ok is false when no field is named.
func ParseErrorBody(body []byte) (field, message string, ok bool) {
	text := string(body)

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Detail) > 0 {
		var detail string
		if json.Unmarshal(envelope.Detail, &detail) == nil {
			text = detail
		}
	}

	loc := locPattern.FindStringSubmatch(text)
	if loc == nil {
		return "", "", false
	}
	field = lastLocElement(loc[1])
	if field == "" {
		return "", "", false
	}

	if m := msgPattern.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			if unquoted, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
				message = unquoted
			} else {
				message = m[1]
			}
		} else {
			message = m[2]
		}
	}
	return field, message, true
}

func lastLocElement(list string) string {
	parts := strings.Split(list, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		element := strings.Trim(strings.TrimSpace(parts[i]), `"'`)
		if element != "" {
			return element
		}
	}
	return ""
}

// summarizeBody picks a human-readable message for an error without a field.
func summarizeBody(status int, body []byte) string {
	var envelope struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if s, ok := envelope.Detail.(string); ok && s != "" {
			return s
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}

func newRenderError(status int, body []byte) *RenderError {
	field, message, ok := ParseErrorBody(body)
	if !ok {
		return &RenderError{StatusCode: status, Message: summarizeBody(status, body)}
	}
	return &RenderError{StatusCode: status, Field: field, Message: message}
}
