package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/leofalp/promptenhancer/core/retry"
	"github.com/leofalp/promptenhancer/internal/utils"
	"github.com/leofalp/promptenhancer/providers/ai"
	"github.com/leofalp/promptenhancer/providers/ai/azure"
	"github.com/leofalp/promptenhancer/providers/observability/slogobs"
)

// ErrInvalid marks a setting that failed validation.
var ErrInvalid = errors.New("invalid configuration")

const (
	minBackoffBaseSeconds = 0.1
	webSearchToolType     = "web_search"
)

// defaults maps each setting to its default value. Keys are the lowercase
// environment variable names.
var defaults = map[string]any{
	"port":                                   8001,
	"max_prompt_chars":                       16000,
	"agent_service_token":                    "",
	"azure_429_max_retries":                  2,
	"azure_429_backoff_base_seconds":         1.0,
	"azure_429_backoff_max_seconds":          20.0,
	"azure_openai_endpoint":                  "",
	"azure_openai_base_url":                  "",
	"azure_openai_api_version":               "preview",
	"azure_openai_responses_deployment_name": "gpt-5.2",
	"azure_openai_api_key":                   "",
	"azure_openai_ad_token":                  "",
	"azure_openai_default_headers_json":      "",
	"azure_openai_timeout_seconds":           0.0,
	"azure_openai_max_output_tokens":         "",
	"azure_openai_reasoning_effort":          "",
	"azure_openai_reasoning_summary":         "",
	"azure_openai_text_verbosity":            "",
	"enable_hosted_web_search":               "",
	"hosted_web_search_city":                 "",
	"hosted_web_search_country":              "",
	"hosted_web_search_region":               "",
	"extract_url_cache_ttl_ms":               600000,
	"extract_url_cache_max_entries":          200,
	"log_level":                              "INFO",
	"log_format":                             "compact",
}

// Settings is the process configuration. It is loaded once at startup and
// never mutated afterwards.
type Settings struct {
	Port              int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	MaxPromptChars    int    `mapstructure:"max_prompt_chars" validate:"gt=0"`
	AgentServiceToken string `mapstructure:"agent_service_token"`

	MaxRetries         int     `mapstructure:"azure_429_max_retries"`
	BackoffBaseSeconds float64 `mapstructure:"azure_429_backoff_base_seconds"`
	BackoffMaxSeconds  float64 `mapstructure:"azure_429_backoff_max_seconds"`
	TimeoutSeconds     float64 `mapstructure:"azure_openai_timeout_seconds" validate:"gte=0"`

	AzureEndpoint      string `mapstructure:"azure_openai_endpoint"`
	AzureBaseURL       string `mapstructure:"azure_openai_base_url"`
	AzureAPIVersion    string `mapstructure:"azure_openai_api_version" validate:"required"`
	Deployment         string `mapstructure:"azure_openai_responses_deployment_name" validate:"required"`
	AzureAPIKey        string `mapstructure:"azure_openai_api_key"`
	AzureADToken       string `mapstructure:"azure_openai_ad_token"`
	DefaultHeadersJSON string `mapstructure:"azure_openai_default_headers_json"`
	MaxOutputTokensRaw string `mapstructure:"azure_openai_max_output_tokens" validate:"omitempty,number"`
	ReasoningEffort    string `mapstructure:"azure_openai_reasoning_effort" validate:"omitempty,oneof=none minimal low medium high xhigh"`
	ReasoningSummary   string `mapstructure:"azure_openai_reasoning_summary" validate:"omitempty,oneof=auto concise detailed"`
	TextVerbosity      string `mapstructure:"azure_openai_text_verbosity" validate:"omitempty,oneof=low medium high"`
	HostedWebSearchRaw string `mapstructure:"enable_hosted_web_search"`
	WebSearchCity      string `mapstructure:"hosted_web_search_city"`
	WebSearchCountry   string `mapstructure:"hosted_web_search_country"`
	WebSearchRegion    string `mapstructure:"hosted_web_search_region"`
	CacheTTLMillis     int    `mapstructure:"extract_url_cache_ttl_ms" validate:"gte=0"`
	CacheMaxEntries    int    `mapstructure:"extract_url_cache_max_entries" validate:"gte=0"`
	LogLevelRaw        string `mapstructure:"log_level"`
	LogFormatRaw       string `mapstructure:"log_format"`

	// Derived during Load.
	MaxOutputTokens       *int           `mapstructure:"-"`
	EnableHostedWebSearch bool           `mapstructure:"-"`
	LogLevel              slog.Level     `mapstructure:"-"`
	LogFormat             slogobs.Format `mapstructure:"-"`
}

// Load reads the given .env files (".env" when none are named; missing
// files are ignored), then the environment, and returns validated settings.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Settings, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("load env file: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	return v
}

// FromViper decodes, normalizes and validates the settings held by v.
func FromViper(v *viper.Viper) (Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	settings.normalize()
	if err := settings.validate(); err != nil {
		return Settings{}, err
	}
	if err := settings.derive(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Settings) normalize() {
	for _, field := range []*string{
		&s.AgentServiceToken, &s.AzureEndpoint, &s.AzureBaseURL, &s.AzureAPIVersion,
		&s.Deployment, &s.AzureAPIKey, &s.AzureADToken, &s.DefaultHeadersJSON,
		&s.MaxOutputTokensRaw, &s.HostedWebSearchRaw, &s.WebSearchCity,
		&s.WebSearchCountry, &s.WebSearchRegion, &s.LogLevelRaw, &s.LogFormatRaw,
	} {
		*field = strings.TrimSpace(*field)
	}
	s.ReasoningEffort = strings.ToLower(strings.TrimSpace(s.ReasoningEffort))
	s.ReasoningSummary = strings.ToLower(strings.TrimSpace(s.ReasoningSummary))
	s.TextVerbosity = strings.ToLower(strings.TrimSpace(s.TextVerbosity))

	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.BackoffBaseSeconds < minBackoffBaseSeconds {
		s.BackoffBaseSeconds = minBackoffBaseSeconds
	}
	if s.BackoffMaxSeconds < s.BackoffBaseSeconds {
		s.BackoffMaxSeconds = s.BackoffBaseSeconds
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := field.Tag.Get("mapstructure")
		if name == "-" {
			return ""
		}
		return strings.ToUpper(name)
	})
	return v
}

func (s *Settings) validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	first := fieldErrors[0]
	switch first.Tag() {
	case "oneof":
		return fmt.Errorf("%w: %s has invalid value '%v'. Allowed values: %s",
			ErrInvalid, first.Field(), first.Value(), strings.ReplaceAll(first.Param(), " ", ", "))
	case "required":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalid, first.Field())
	case "number":
		return fmt.Errorf("%w: %s must be an integer", ErrInvalid, first.Field())
	default:
		return fmt.Errorf("%w: %s has invalid value '%v'", ErrInvalid, first.Field(), first.Value())
	}
}

func (s *Settings) derive() error {
	if s.MaxOutputTokensRaw != "" {
		tokens, err := strconv.Atoi(s.MaxOutputTokensRaw)
		if err != nil || tokens <= 0 {
			return fmt.Errorf("%w: AZURE_OPENAI_MAX_OUTPUT_TOKENS must be a positive integer", ErrInvalid)
		}
		s.MaxOutputTokens = utils.Ptr(tokens)
	}

	enabled, err := ParseBool(s.HostedWebSearchRaw)
	if err != nil {
		return fmt.Errorf("%w: ENABLE_HOSTED_WEB_SEARCH %v", ErrInvalid, err)
	}
	s.EnableHostedWebSearch = enabled

	if s.LogLevel, err = slogobs.ParseLevel(s.LogLevelRaw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.LogFormat, err = slogobs.ParseFormat(s.LogFormatRaw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParseBool accepts 1/0, true/false, yes/no and on/off, case-insensitively.
// Empty is false.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("has invalid value '%s'. Allowed values: 1, 0, true, false, yes, no, on, off", raw)
	}
}

// AzureConfig returns the provider connection settings. They are validated
// when the client is first built, not here, so the service can start
// without them.
func (s Settings) AzureConfig() azure.Config {
	return azure.Config{
		Endpoint:           s.AzureEndpoint,
		BaseURL:            s.AzureBaseURL,
		APIVersion:         s.AzureAPIVersion,
		Deployment:         s.Deployment,
		APIKey:             s.AzureAPIKey,
		ADToken:            s.AzureADToken,
		DefaultHeadersJSON: s.DefaultHeadersJSON,
	}
}

// RetryConfig returns the rate-limit retry bounds.
func (s Settings) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries: s.MaxRetries,
		BaseDelay:  seconds(s.BackoffBaseSeconds),
		MaxDelay:   seconds(s.BackoffMaxSeconds),
	}
}

// ProviderTimeout is how long a streaming call may go without producing a
// chunk. Zero disables it.
func (s Settings) ProviderTimeout() time.Duration {
	return seconds(s.TimeoutSeconds)
}

// ExtractCacheTTL is how long an /extract-url result is reused.
func (s Settings) ExtractCacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMillis) * time.Millisecond
}

// RunOptions returns the per-run model overrides.
func (s Settings) RunOptions() ai.RunOptions {
	return ai.RunOptions{
		MaxOutputTokens:  s.MaxOutputTokens,
		ReasoningEffort:  s.ReasoningEffort,
		ReasoningSummary: s.ReasoningSummary,
		TextVerbosity:    s.TextVerbosity,
	}
}

// Tools returns the hosted tools to attach to enhancement requests.
func (s Settings) Tools() []ai.HostedTool {
	if !s.EnableHostedWebSearch {
		return nil
	}
	tool := ai.HostedTool{Type: webSearchToolType}
	if s.WebSearchCity != "" || s.WebSearchCountry != "" || s.WebSearchRegion != "" {
		tool.Location = &ai.UserLocation{
			City:    s.WebSearchCity,
			Country: s.WebSearchCountry,
			Region:  s.WebSearchRegion,
		}
	}
	return []ai.HostedTool{tool}
}

// LoggerOptions returns the slogobs options for the process logger.
func (s Settings) LoggerOptions() []slogobs.Option {
	return []slogobs.Option{slogobs.WithLevel(s.LogLevel), slogobs.WithFormat(s.LogFormat)}
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
