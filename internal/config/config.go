package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development" validate:"oneof=development production test"`
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080" validate:"required"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`

	SessionSecret string `env:"SESSION_SECRET,required" validate:"min=32"`
	SessionStore  string `env:"SESSION_STORE" envDefault:"filesystem" validate:"oneof=filesystem cookie"`
	SessionDir    string `env:"SESSION_DIR"`

	AzureInstance     string `env:"AZURE_INSTANCE" envDefault:"https://login.microsoftonline.com/" validate:"required,url"`
	AzureTenantID     string `env:"AZURE_TENANT_ID" envDefault:"organizations" validate:"required"`
	AzureClientID     string `env:"AZURE_CLIENT_ID,required" validate:"required"`
	AzureClientSecret string `env:"AZURE_CLIENT_SECRET,required" validate:"required"`
	AzureCallbackPath string `env:"AZURE_CALLBACK_PATH" envDefault:"/signin-oidc" validate:"startswith=/"`

	PowerBIAPIURL    string        `env:"POWERBI_API_URL" envDefault:"https://api.powerbi.com/" validate:"required,url"`
	PowerBIScopes    []string      `env:"POWERBI_SCOPES" envSeparator:"," envDefault:"https://analysis.windows.net/powerbi/api/Report.Read.All,https://analysis.windows.net/powerbi/api/Workspace.Read.All"`
	PowerBITokenType string        `env:"POWERBI_TOKEN_TYPE" envDefault:"Embed" validate:"oneof=Embed Aad"`
	PowerBITimeout   time.Duration `env:"POWERBI_TIMEOUT" envDefault:"15s" validate:"gt=0"`

	// Optional. Report metadata is fetched on every request when empty.
	RedisURL       string        `env:"REDIS_URL"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"5m"`

	TracingEnabled     bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingExporter    string `env:"TRACING_EXPORTER" envDefault:"zipkin" validate:"oneof=zipkin otlp"`
	TracingZipkinURL   string `env:"TRACING_ZIPKIN_URL" envDefault:"http://localhost:9411/api/v2/spans"`
	TracingServiceName string `env:"TRACING_SERVICE_NAME" envDefault:"userownsdata"`

	AuditLogPath string `env:"AUDIT_LOG_PATH" envDefault:"audit/embeds.log"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"debug"`
}

// Provider is the read-only view of the configuration used by the HTTP layer.
type Provider interface {
	IsDevelopment() bool
	GetServerAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string
	GetSessionStore() string
	GetSessionDir() string
	GetCallbackPath() string
}

// New loads configuration from the environment and exits if it is invalid.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Load reads a .env file when present, then parses and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parsed values against their constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) GetServerAddr() string    { return c.ServerAddr }
func (c *Config) GetAppBaseURL() string    { return strings.TrimRight(c.AppBaseURL, "/") }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
func (c *Config) GetSessionStore() string  { return c.SessionStore }
func (c *Config) GetSessionDir() string    { return c.SessionDir }
func (c *Config) GetCallbackPath() string  { return c.AzureCallbackPath }

// RedirectURL is the absolute OAuth2 callback URL registered with Azure AD.
func (c *Config) RedirectURL() string {
	return c.GetAppBaseURL() + c.AzureCallbackPath
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c *Config) Redacted() Config {
	out := *c
	out.SessionSecret = mask(out.SessionSecret)
	out.AzureClientSecret = mask(out.AzureClientSecret)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
