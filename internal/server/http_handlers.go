package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strconv"

	"cvstudio/internal/cv"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/render"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const serviceName = "cvstudio"

// healthHandler answers liveness checks
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// apiHealthHandler reports version and environment
func (s *Server) apiHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"version":     s.Version,
		"environment": s.Environment,
	})
}

// themesHandler lists the themes with the section order each one renders
func (s *Server) themesHandler(w http.ResponseWriter, r *http.Request) {
	response := ThemesResponse{
		Themes:  make([]string, 0, len(cv.Themes)),
		Default: cv.DefaultTheme.String(),
		Details: make([]ThemeInfo, 0, len(cv.Themes)),
	}
	for _, theme := range cv.Themes {
		order := theme.SectionOrder()
		names := make([]string, len(order))
		for i, section := range order {
			names[i] = section.String()
		}
		response.Themes = append(response.Themes, theme.String())
		response.Details = append(response.Details, ThemeInfo{Name: theme.String(), SectionOrder: names})
	}
	writeJSON(w, http.StatusOK, response)
}

// statsHandler provides server statistics including rate limiting and breaker state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": serviceName,
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Renderer != nil {
		response["renderer"] = s.Renderer.Stats()
	}
	if s.Suggester != nil {
		response["ai"] = s.Suggester.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes): %w", maxBytesErr.Limit, err)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeRequestError answers a body that could not be read or decoded
func writeRequestError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeErrorResponse(w, "Request body too large", err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
}

// fieldError is a validation failure at loc below the request body
type fieldError struct {
	loc []string
	msg string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%v: %s", e.loc, e.msg)
}

func newFieldError(msg string, loc ...string) *fieldError {
	return &fieldError{loc: append([]string{"body"}, loc...), msg: msg}
}

// documentFieldError turns a cv decoding failure into a field error
func documentFieldError(err error) *fieldError {
	appErr, ok := cvstudioErrors.AsAppError(err)
	if !ok {
		return newFieldError(err.Error(), "cv_data")
	}
	loc := []string{"cv_data"}
	if field := appErr.ContextString("field"); field != "" {
		loc = append(loc, field)
	}
	return newFieldError(appErr.Message, loc...)
}

// designFieldErrors flattens ozzo validation errors keyed by JSON field name
func designFieldErrors(err error) []*fieldError {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return []*fieldError{newFieldError(err.Error(), "design_settings")}
	}
	out := make([]*fieldError, 0, len(fieldErrs))
	for _, key := range slices.Sorted(maps.Keys(fieldErrs)) {
		out = append(out, newFieldError(fieldErrs[key].Error(), "design_settings", key))
	}
	return out
}

// errorMessage prefers the user-facing message of an AppError
func errorMessage(err error) string {
	if appErr, ok := cvstudioErrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// writeValidationErrors writes a 422 in the {"detail":[{loc,msg}]} shape
func writeValidationErrors(w http.ResponseWriter, errs ...*fieldError) {
	response := ValidationErrorResponse{Detail: make([]FieldErrorDetail, 0, len(errs))}
	for _, e := range errs {
		response.Detail = append(response.Detail, FieldErrorDetail{Loc: e.loc, Msg: e.msg})
	}
	writeJSON(w, http.StatusUnprocessableEntity, response)
}

// writeRenderFailure maps a typesetter failure onto a response. Field
// errors keep the validation shape so clients can highlight the field.
func writeRenderFailure(w http.ResponseWriter, err error) {
	var renderErr *render.RenderError
	if errors.As(err, &renderErr) {
		switch {
		case renderErr.Field != "":
			writeValidationErrors(w, newFieldError(renderErr.Message, "cv_data", renderErr.Field))
		case renderErr.IsClientError():
			writeErrorResponse(w, "Render rejected", renderErr.Message, renderErr.StatusCode)
		default:
			writeErrorResponse(w, "Render failed", renderErr.Error(), http.StatusBadGateway)
		}
		return
	}

	if appErr, ok := cvstudioErrors.AsAppError(err); ok && appErr.Code == cvstudioErrors.ErrCodeCircuitOpen {
		writeErrorResponse(w, "Renderer unavailable", appErr.Message, http.StatusServiceUnavailable)
		return
	}
	writeErrorResponse(w, "Render failed", err.Error(), http.StatusBadGateway)
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeBinary sends a rendered file as an attachment
func writeBinary(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Failed to write response body: %v", err)
	}
}
