package server

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"cvstudio/internal/utils"
)

// displayServerInfo prints the endpoints and the protection settings
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Available endpoints:")
	for _, rt := range s.routes() {
		note := ""
		if rt.protected && len(s.APIKeys) > 0 {
			note = "(requires API key)"
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", rt.pattern, rt.description, note)
	}
	_ = tw.Flush()

	for _, line := range s.protectionSummary() {
		_, _ = fmt.Fprintln(out, line)
	}
}

// protectionSummary describes auth, body size and rate limits, with a
// warning line for each protection that is off.
func (s *Server) protectionSummary() []string {
	var lines []string

	if n := len(s.APIKeys); n > 0 {
		lines = append(lines, fmt.Sprintf("API authentication: ENABLED (%d keys, X-API-Key or Bearer token)", n))
	} else {
		lines = append(lines, "API authentication: DISABLED", "WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		lines = append(lines, fmt.Sprintf("Request size limit: %s", utils.FormatFileSize(s.MaxRequestSize)))
	} else {
		lines = append(lines, "Request size limit: DISABLED")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		scope := "per IP"
		if s.RateLimit.ByAPIKey {
			scope = "per API key, then per IP"
			if !s.RateLimit.ByIP {
				scope = "per API key"
			}
		}
		lines = append(lines, fmt.Sprintf("Rate limiting: ENABLED (%d requests/min, burst %d, %s)",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, scope))
	} else {
		lines = append(lines, "Rate limiting: DISABLED", "WARNING: No rate limiting configured!")
	}

	return lines
}
