// Package config provides configuration management for the proxy server.
// It handles loading and parsing YAML configuration files, and provides
// structured access to application settings including server port, upstream
// credentials, debug settings, proxy configuration, and API keys.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug"`

	// LoggingToFile routes application logs to rotating files instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogDir is the directory where rotating log files are written.
	LogDir string `yaml:"log-dir"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url"`

	// APIKeys is a list of keys for authenticating clients to this proxy server.
	APIKeys []string `yaml:"api-keys"`

	// GlAPIKey is the list of API keys for the generative language API.
	// Requests rotate through them when the first key fails.
	GlAPIKey []string `yaml:"generative-language-api-key"`

	// GeminiOAuth holds optional OAuth credentials for the generative
	// language API, used instead of plain API keys when present.
	GeminiOAuth GeminiOAuth `yaml:"gemini-oauth"`

	// EnableSafety toggles Gemini safety filtering. When disabled, system
	// prompts are downgraded to user turns and permissive safety settings
	// are attached to upstream requests.
	EnableSafety bool `yaml:"enable-safety"`

	// RequestLog enables or disables detailed request logging functionality.
	RequestLog bool `yaml:"request-log"`

	// StorePath is the path of the bbolt database file backing the
	// management API's worker key records.
	StorePath string `yaml:"store-path"`

	// ManagementKey is the bcrypt hash of the key protecting the management API.
	ManagementKey string `yaml:"management-key"`
}

// GeminiOAuth holds an OAuth2 client and refresh token for the upstream API.
type GeminiOAuth struct {
	// ClientID is the OAuth2 client identifier.
	ClientID string `yaml:"client-id"`

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `yaml:"client-secret"`

	// RefreshToken is a long-lived refresh token used to mint access tokens.
	RefreshToken string `yaml:"refresh-token"`
}

// Enabled reports whether OAuth credentials are fully configured.
func (g *GeminiOAuth) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, and returns it.
func LoadConfig(configFile string) (*Config, error) {
	// Read the entire configuration file into memory.
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the YAML data into the Config struct. Safety filtering is on
	// unless the file turns it off explicitly.
	config := Config{EnableSafety: true}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Port == 0 {
		config.Port = 8317
	}
	if config.StorePath == "" {
		config.StorePath = "proxy.db"
	}

	return &config, nil
}
