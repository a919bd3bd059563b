package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
	v.SetDefault("app.environment", "development")

	// Renderer
	v.SetDefault("renderer.baseURL", "http://localhost:8000")
	v.SetDefault("renderer.apiKey", "")
	v.SetDefault("renderer.timeout", 60*time.Second) // typesetting a PDF can take a while
	v.SetDefault("renderer.maxRetries", 2)
	v.SetDefault("renderer.circuitBreaker.enabled", true)
	v.SetDefault("renderer.circuitBreaker.maxRequests", 3)
	v.SetDefault("renderer.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("renderer.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("renderer.circuitBreaker.minRequests", 5)
	v.SetDefault("renderer.circuitBreaker.failureThreshold", 0.6)

	// Live preview
	v.SetDefault("sync.debounceDelay", 1500*time.Millisecond)
	v.SetDefault("sync.fenceResponses", true)
	v.SetDefault("sync.defaultTheme", "classic")
	v.SetDefault("sync.requestTimeout", 0)

	// AI suggestions
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 2)
	v.SetDefault("ai.temperature", 0.6)
	v.SetDefault("ai.maxTokens", 300)
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxBodySize", 5*1024*1024) // photos travel as data URLs
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 120)
	v.SetDefault("server.rateLimit.burstCapacity", 20)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.cors.allowCredentials", true)

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "secret/data/cvstudio/auth")
	v.SetDefault("vault.secrets.geminiKey", "secret/data/cvstudio/ai")
	v.SetDefault("vault.secrets.rendererKey", "secret/data/cvstudio/renderer")

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvstudio")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.operations.enabled", true)
	v.SetDefault("observability.customMetrics.operations.trackDuration", true)
	v.SetDefault("observability.customMetrics.operations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.operations.trackPayload", true)
	v.SetDefault("observability.customMetrics.documents.enabled", true)
	v.SetDefault("observability.customMetrics.documents.trackScore", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
