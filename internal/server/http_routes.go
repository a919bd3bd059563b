package server

import (
	"net/http"
	"strings"

	"cvstudio/internal/observability"

	"github.com/rs/cors"
)

// Handler builds the full handler: telemetry, CORS, then the routes.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	mux := s.setupRoutes(om)
	return om.HTTPMiddleware()(s.corsMiddleware().Handler(mux))
}

// route is one API endpoint. Protected routes sit behind rate limiting,
// authentication and the request size limit.
type route struct {
	pattern     string
	description string
	protected   bool
	handler     func(om *observability.ObservabilityManager) http.HandlerFunc
}

func plain(h http.HandlerFunc) func(*observability.ObservabilityManager) http.HandlerFunc {
	return func(*observability.ObservabilityManager) http.HandlerFunc { return h }
}

// routes lists every endpoint in display order
func (s *Server) routes() []route {
	return []route{
		{"GET /health", "Liveness check", false, plain(s.healthHandler)},
		{"GET /api/health", "Version and environment", false, plain(s.apiHealthHandler)},
		{"GET /api/themes", "Available themes", false, plain(s.themesHandler)},
		{"GET /stats", "Server statistics", false, plain(s.statsHandler)},
		{"POST /api/insights", "Completion, word counts and score", true, s.createInsightsHandler},
		{"POST /api/yaml", "Typesetter YAML", true, s.createYAMLHandler},
		{"POST /api/render", "PNG or PDF render", true, func(om *observability.ObservabilityManager) http.HandlerFunc {
			return s.createRenderHandler(om, "")
		}},
		{"POST /api/preview", "PNG preview", true, func(om *observability.ObservabilityManager) http.HandlerFunc {
			return s.createRenderHandler(om, formatPNG)
		}},
		{"POST /api/download", "PDF download", true, func(om *observability.ObservabilityManager) http.HandlerFunc {
			return s.createRenderHandler(om, formatPDF)
		}},
		{"POST /api/ai/suggest", "AI writing suggestion", true, s.createSuggestHandler},
	}
}

// setupRoutes registers the route table on a new mux
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()
	rateLimit := s.rateLimitMiddleware(om)

	for _, rt := range s.routes() {
		h := rt.handler(om)
		if !rt.protected {
			mux.Handle(rt.pattern, h)
			continue
		}
		mux.Handle(rt.pattern, rateLimit(s.authMiddleware(s.requestSizeLimitMiddleware(h))))
	}

	return mux
}

// corsMiddleware allows the configured browser origins
func (s *Server) corsMiddleware() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: s.CORS.AllowCredentials,
	})
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"api_key_prefix", maskAPIKey(apiKey))

		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	})
}

// extractAPIKey reads X-API-Key, falling back to a Bearer token
func extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
