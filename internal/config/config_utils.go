package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyAIKeyFallbacks()
	c.applyCORSFallbacks()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CVSTUDIO_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitList(apiKeysEnv)
		}
	}
}

// applyAIKeyFallbacks accepts the conventional GEMINI_API_KEY variable
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyCORSFallbacks honours CORS_ORIGINS as used by existing deployments
func (c *Config) applyCORSFallbacks() {
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORS.AllowedOrigins = splitList(origins)
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CVSTUDIO_RENDERER_BASEURL",
		"CVSTUDIO_RENDERER_APIKEY",
		"CVSTUDIO_AI_APIKEY",
		"CVSTUDIO_AI_PROVIDER",
		"CVSTUDIO_AI_MODEL",
		"CVSTUDIO_SERVER_PORT",
		"CVSTUDIO_SERVER_HOST",
		"CVSTUDIO_SERVER_APIKEYS",
		"CVSTUDIO_APP_LOGLEVEL",
		"CVSTUDIO_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"CORS_ORIGINS",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Renderer URL: %s", c.Renderer.BaseURL)
	log.Printf("[CONFIG] Renderer API Key: %s", configuredLabel(c.Renderer.APIKey))
	log.Printf("[CONFIG] Debounce Delay: %s", c.Sync.DebounceDelay)
	log.Printf("[CONFIG] Response Fencing: %t", c.Sync.FenceResponses)
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	log.Printf("[CONFIG] AI API Key: %s", configuredLabel(c.AI.APIKey))
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] CORS Origins: %v", c.Server.CORS.AllowedOrigins)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func configuredLabel(secret string) string {
	if secret != "" {
		return "***CONFIGURED***"
	}
	return "***NOT SET***"
}
