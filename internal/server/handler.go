package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cvstudio/internal/ai"
	"cvstudio/internal/cv"
	"cvstudio/internal/derive"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/observability"
	"cvstudio/internal/render"
	"cvstudio/internal/rendercv"

	"go.opentelemetry.io/otel/attribute"
)

const (
	formatPNG = render.FormatPNG
	formatPDF = render.FormatPDF
)

// renderInput is a validated render request
type renderInput struct {
	doc    cv.Document
	theme  cv.Theme
	design cv.DesignSettings
	order  []cv.Section
	format render.Format
}

// renderOutput is what one typesetter call produced
type renderOutput struct {
	data        []byte
	contentType string
}

// parseRenderInput validates every part of a render request and collects
// the field errors of the settings alongside a document error.
func parseRenderInput(req RenderRequest, forced render.Format) (renderInput, []*fieldError) {
	var errs []*fieldError
	in := renderInput{format: forced}

	if req.CVData == nil {
		errs = append(errs, newFieldError("Field required", "cv_data"))
	} else if doc, err := cv.Decode(req.CVData); err != nil {
		errs = append(errs, documentFieldError(err))
	} else {
		in.doc = doc
	}

	theme, err := cv.ParseTheme(req.Theme)
	if err != nil {
		errs = append(errs, newFieldError(errorMessage(err), "theme"))
	}
	in.theme = theme

	if req.DesignSettings != nil {
		in.design = cv.DesignSettings{
			PrimaryColor: strings.TrimSpace(req.DesignSettings.PrimaryColor),
			FontFamily:   strings.TrimSpace(req.DesignSettings.FontFamily),
		}
		if err := in.design.Validate(); err != nil {
			errs = append(errs, designFieldErrors(err)...)
		}
	}

	for i, name := range req.SectionOrder {
		section, err := cv.ParseOrderSection(name)
		if err != nil {
			errs = append(errs, newFieldError(errorMessage(err), "section_order", strconv.Itoa(i)))
			continue
		}
		in.order = append(in.order, section)
	}

	if forced == "" {
		switch render.Format(strings.ToLower(strings.TrimSpace(req.Format))) {
		case "", formatPNG:
			in.format = formatPNG
		case formatPDF:
			in.format = formatPDF
		default:
			errs = append(errs, newFieldError("format must be png or pdf", "format"))
		}
	}

	return in, errs
}

// sectionOrder is the requested order, or the theme's when none was sent
func (in renderInput) sectionOrder() []cv.Section {
	if len(in.order) > 0 {
		return in.order
	}
	return in.theme.SectionOrder()
}

func (in renderInput) request() render.Request {
	req := render.NewRequest(in.doc, in.theme, in.design, in.format)
	req.SectionOrder = in.sectionOrder()
	return req
}

// renderKey identifies identical render requests for coalescing
func renderKey(req render.Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return string(req.Format) + ":" + hex.EncodeToString(sum[:]), nil
}

// createRenderHandler proxies a render to the typesetter. An empty forced
// format takes the format from the request body.
func (s *Server) createRenderHandler(om *observability.ObservabilityManager, forced render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx, span := om.Tracer("cvstudio.api").Start(ctx, "api.render")
		defer span.End()

		var req RenderRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeRequestError(w, err)
			return
		}

		in, fieldErrs := parseRenderInput(req, forced)
		if len(fieldErrs) > 0 {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeValidationErrors(w, fieldErrs...)
			return
		}
		if s.Renderer == nil {
			writeErrorResponse(w, "Renderer unavailable", "no typesetting service configured", http.StatusServiceUnavailable)
			return
		}

		renderReq := in.request()
		span.SetAttributes(
			attribute.String("render.format", string(in.format)),
			attribute.String("render.theme", in.theme.String()),
		)

		key, err := renderKey(renderReq)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		var out *renderOutput
		err = om.TrackOperation(ctx, "render_"+string(in.format), func(ctx context.Context) *observability.OperationResult {
			result, shared, err := s.coalescedRender(ctx, key, renderReq)
			span.SetAttributes(attribute.Bool("render.shared", shared))
			if err != nil {
				return &observability.OperationResult{Error: err}
			}
			out = result
			return &observability.OperationResult{PayloadBytes: int64(len(out.data))}
		})

		metricType := observability.MetricPreviewRendered
		if in.format == formatPDF {
			metricType = observability.MetricDocumentDownloaded
		}
		attrs := []attribute.KeyValue{
			attribute.String("theme", in.theme.String()),
			attribute.String("format", string(in.format)),
		}

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "render"))
			om.RecordBusinessMetric(ctx, metricType, false, attrs...)
			s.Logger.LogError(err, "Render failed", "format", string(in.format), "theme", in.theme.String())
			writeRenderFailure(w, err)
			return
		}

		om.RecordBusinessMetric(ctx, metricType, true, attrs...)
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.bytes", len(out.data)),
		)
		writeBinary(w, out.data, out.contentType, rendercv.FileName(in.doc.Name, string(in.format)))
	}
}

// coalescedRender joins identical in-flight renders. The shared call runs
// detached from the cancellation of whichever caller started it, and every
// caller stops waiting when its own ctx ends.
func (s *Server) coalescedRender(ctx context.Context, key string, req render.Request) (*renderOutput, bool, error) {
	detached := context.WithoutCancel(ctx)
	results := s.renders.DoChan(key, func() (any, error) {
		return s.render(detached, req)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*renderOutput), res.Shared, nil
	case <-ctx.Done():
		return nil, false, context.Cause(ctx)
	}
}

// render performs one typesetter call for req
func (s *Server) render(ctx context.Context, req render.Request) (*renderOutput, error) {
	if req.Format == formatPDF {
		document, err := s.Renderer.Download(ctx, req)
		if err != nil {
			return nil, err
		}
		return &renderOutput{data: document.Data, contentType: document.ContentType}, nil
	}

	data, err := s.Renderer.Preview(ctx, req)
	if err != nil {
		return nil, err
	}
	return &renderOutput{data: data, contentType: "image/png"}, nil
}

// createYAMLHandler returns the typesetter input a render would use
func (s *Server) createYAMLHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := om.Tracer("cvstudio.api").Start(r.Context(), "api.yaml")
		defer span.End()

		var req RenderRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeRequestError(w, err)
			return
		}

		in, fieldErrs := parseRenderInput(req, formatPDF)
		if len(fieldErrs) > 0 {
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeValidationErrors(w, fieldErrs...)
			return
		}

		out, err := rendercv.Marshal(in.doc, in.theme, in.design, in.sectionOrder())
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Failed to generate YAML", err.Error(), http.StatusInternalServerError)
			return
		}

		span.SetAttributes(attribute.Int("response.yaml_length", len(out)))
		writeJSON(w, http.StatusOK, YAMLResponse{YAML: out})
	}
}

// createInsightsHandler computes completion, word counts, dates and score
func (s *Server) createInsightsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvstudio.api").Start(r.Context(), "api.insights")
		defer span.End()

		var req InsightsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeRequestError(w, err)
			return
		}

		var fieldErrs []*fieldError
		theme, err := cv.ParseTheme(req.Theme)
		if err != nil {
			fieldErrs = append(fieldErrs, newFieldError(errorMessage(err), "theme"))
		}
		var doc cv.Document
		if req.CVData == nil {
			fieldErrs = append(fieldErrs, newFieldError("Field required", "cv_data"))
		} else if doc, err = cv.Decode(req.CVData); err != nil {
			fieldErrs = append(fieldErrs, documentFieldError(err))
		}
		if len(fieldErrs) > 0 {
			span.SetAttributes(attribute.String("error.type", "validation"))
			om.RecordBusinessMetric(ctx, observability.MetricDocumentAnalyzed, false)
			writeValidationErrors(w, fieldErrs...)
			return
		}

		insights := derive.Analyze(doc, theme)

		om.RecordBusinessMetric(ctx, observability.MetricDocumentAnalyzed, true,
			attribute.String("theme", theme.String()))
		om.RecordScore(ctx, insights.Score.Score, attribute.String("theme", theme.String()))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("document.score", insights.Score.Score),
			attribute.Int("document.words", insights.TotalWords),
		)

		writeJSON(w, http.StatusOK, insights)
	}
}

// createSuggestHandler serves AI writing suggestions
func (s *Server) createSuggestHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("cvstudio.api").Start(r.Context(), "api.suggest")
		defer span.End()

		var req SuggestRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeRequestError(w, err)
			return
		}
		if strings.TrimSpace(req.Type) == "" {
			req.Type = string(ai.TypeSummary)
		}

		typ, err := ai.ParseType(req.Type)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid suggestion type", errorMessage(err), http.StatusBadRequest)
			return
		}
		if s.Suggester == nil {
			writeErrorResponse(w, "AI suggestions unavailable", "no AI provider configured", http.StatusServiceUnavailable)
			return
		}

		span.SetAttributes(
			attribute.String("suggestion.type", string(typ)),
			attribute.Int("request.text_length", len(req.Text)),
		)

		var resp ai.Response
		err = om.TrackOperation(ctx, "suggest", func(ctx context.Context) *observability.OperationResult {
			var suggestErr error
			resp, suggestErr = s.Suggester.Suggest(ctx, ai.Request{Text: req.Text, Type: string(typ), Context: req.Context})
			result := &observability.OperationResult{Error: suggestErr}
			if resp.Usage != nil {
				result.TokenUsage = &observability.TokenUsage{
					InputTokens:  resp.Usage.InputTokens,
					OutputTokens: resp.Usage.OutputTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				}
			}
			return result
		})
		if err != nil {
			span.RecordError(err)
			om.RecordBusinessMetric(ctx, observability.MetricSuggestionServed, false,
				attribute.String("type", string(typ)))
			if cvstudioErrors.IsType(err, cvstudioErrors.ErrorTypeValidation) {
				writeErrorResponse(w, "Invalid suggestion request", err.Error(), http.StatusBadRequest)
				return
			}
			writeErrorResponse(w, "Failed to generate suggestion", err.Error(), http.StatusInternalServerError)
			return
		}

		om.RecordBusinessMetric(ctx, observability.MetricSuggestionServed, resp.Suggestion != "",
			attribute.String("type", string(typ)))
		span.SetAttributes(
			attribute.Bool("success", resp.Suggestion != ""),
			attribute.Int("response.suggestion_length", len(resp.Suggestion)),
		)

		writeJSON(w, http.StatusOK, resp)
	}
}
