// Package config holds the settings for the delivery-management agent
// system: per-role model names, provider selection, temperatures, and the
// API call delay that the gate enforces.
//
// Precedence, lowest to highest: built-in defaults, TOML file, explicit
// overrides, environment variables. A .env file in the working directory is
// loaded into the environment first, so deployments can keep credentials and
// settings together.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	gerrors "github.com/vinayprograms/llmgate/errors"
)

// Configuration is the settings object for the multi-agent system. It is
// pure data; behavior lives in the gate and llm packages.
type Configuration struct {
	// Models per agent role, in OpenRouter format when UseOpenRouter is set.
	CoordinatorModel string `toml:"coordinator_model"`
	SpecialistModel  string `toml:"specialist_model"`
	DocumentModel    string `toml:"document_model"`
	AnalysisModel    string `toml:"analysis_model"`

	// UseOpenRouter selects OpenRouter as the provider instead of the
	// direct Gemini API.
	UseOpenRouter     bool   `toml:"use_openrouter"`
	OpenRouterBaseURL string `toml:"openrouter_base_url"`

	MaxConversationLength int `toml:"max_conversation_length"`
	MaxConcurrentAgents   int `toml:"max_concurrent_agents"`

	ProjectCreationTimeoutMinutes int `toml:"project_creation_timeout_minutes"`
	ThursdayReminderHour          int `toml:"thursday_reminder_hour"`
	MaxDocumentLength             int `toml:"max_document_length"`

	JSONDataDirectory string `toml:"json_data_directory"`

	CoordinatorTemperature float64 `toml:"coordinator_temperature"`
	DocumentTemperature    float64 `toml:"document_temperature"`
	AnalysisTemperature    float64 `toml:"analysis_temperature"`

	// APICallDelaySeconds is the minimum spacing between API calls,
	// enforced per gate, to prevent quota exhaustion.
	APICallDelaySeconds int `toml:"api_call_delay_seconds"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		CoordinatorModel: "google/gemini-2.5-flash-lite",
		SpecialistModel:  "google/gemini-2.5-flash-lite",
		DocumentModel:    "google/gemini-2.5-flash",
		AnalysisModel:    "google/gemini-2.5-flash-lite",

		UseOpenRouter:     true,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",

		MaxConversationLength: 50,
		MaxConcurrentAgents:   15,

		ProjectCreationTimeoutMinutes: 10,
		ThursdayReminderHour:          14,
		MaxDocumentLength:             10000,

		JSONDataDirectory: "./json_data",

		CoordinatorTemperature: 0.1,
		DocumentTemperature:    0.3,
		AnalysisTemperature:    0.2,

		APICallDelaySeconds: 120,
	}
}

// Load builds a Configuration from defaults, an optional TOML file, and
// environment overrides. Pass an empty path to skip the file.
func Load(path string) (*Configuration, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with an explicit override map applied between
// the file and the environment. Keys match the TOML field names; the
// environment still wins.
func LoadWithOverrides(path string, overrides map[string]interface{}) (*Configuration, error) {
	godotenv.Load()

	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, gerrors.New(gerrors.ErrCodeInvalidConfig, "failed to load config file", gerrors.WithCause(err))
		}
	}

	cfg.apply(overrides)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the system cannot run with.
// Large delays are accepted without an upper bound: legitimate quota windows
// can be minutes long.
func (c *Configuration) Validate() error {
	if c.APICallDelaySeconds < 0 {
		return gerrors.InvalidConfig("api_call_delay_seconds must be non-negative")
	}
	if c.ThursdayReminderHour < 0 || c.ThursdayReminderHour > 23 {
		return gerrors.InvalidConfig("thursday_reminder_hour must be between 0 and 23")
	}
	return nil
}

// APICallDelay returns the configured delay as a duration.
func (c *Configuration) APICallDelay() time.Duration {
	return time.Duration(c.APICallDelaySeconds) * time.Second
}

// ProjectCreationTimeout returns the project creation timeout as a duration.
func (c *Configuration) ProjectCreationTimeout() time.Duration {
	return time.Duration(c.ProjectCreationTimeoutMinutes) * time.Minute
}

// apply copies recognized keys from an override map onto the configuration.
// Unknown keys are ignored so callers can share one map between this and
// backend pass-through parameters.
func (c *Configuration) apply(overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "coordinator_model":
			setString(&c.CoordinatorModel, value)
		case "specialist_model":
			setString(&c.SpecialistModel, value)
		case "document_model":
			setString(&c.DocumentModel, value)
		case "analysis_model":
			setString(&c.AnalysisModel, value)
		case "use_openrouter":
			setBool(&c.UseOpenRouter, value)
		case "openrouter_base_url":
			setString(&c.OpenRouterBaseURL, value)
		case "max_conversation_length":
			setInt(&c.MaxConversationLength, value)
		case "max_concurrent_agents":
			setInt(&c.MaxConcurrentAgents, value)
		case "project_creation_timeout_minutes":
			setInt(&c.ProjectCreationTimeoutMinutes, value)
		case "thursday_reminder_hour":
			setInt(&c.ThursdayReminderHour, value)
		case "max_document_length":
			setInt(&c.MaxDocumentLength, value)
		case "json_data_directory":
			setString(&c.JSONDataDirectory, value)
		case "coordinator_temperature":
			setFloat(&c.CoordinatorTemperature, value)
		case "document_temperature":
			setFloat(&c.DocumentTemperature, value)
		case "analysis_temperature":
			setFloat(&c.AnalysisTemperature, value)
		case "api_call_delay_seconds":
			setInt(&c.APICallDelaySeconds, value)
		}
	}
}

// applyEnv overrides fields from environment variables named after the
// uppercased TOML field names (COORDINATOR_MODEL, USE_OPENROUTER, ...).
func (c *Configuration) applyEnv() {
	envString("COORDINATOR_MODEL", &c.CoordinatorModel)
	envString("SPECIALIST_MODEL", &c.SpecialistModel)
	envString("DOCUMENT_MODEL", &c.DocumentModel)
	envString("ANALYSIS_MODEL", &c.AnalysisModel)
	envBool("USE_OPENROUTER", &c.UseOpenRouter)
	envString("OPENROUTER_BASE_URL", &c.OpenRouterBaseURL)
	envInt("MAX_CONVERSATION_LENGTH", &c.MaxConversationLength)
	envInt("MAX_CONCURRENT_AGENTS", &c.MaxConcurrentAgents)
	envInt("PROJECT_CREATION_TIMEOUT_MINUTES", &c.ProjectCreationTimeoutMinutes)
	envInt("THURSDAY_REMINDER_HOUR", &c.ThursdayReminderHour)
	envInt("MAX_DOCUMENT_LENGTH", &c.MaxDocumentLength)
	envString("JSON_DATA_DIRECTORY", &c.JSONDataDirectory)
	envFloat("COORDINATOR_TEMPERATURE", &c.CoordinatorTemperature)
	envFloat("DOCUMENT_TEMPERATURE", &c.DocumentTemperature)
	envFloat("ANALYSIS_TEMPERATURE", &c.AnalysisTemperature)
	envInt("API_CALL_DELAY_SECONDS", &c.APICallDelaySeconds)
}

func setString(dst *string, v interface{}) {
	if s, ok := v.(string); ok {
		*dst = s
	}
}

func setBool(dst *bool, v interface{}) {
	switch b := v.(type) {
	case bool:
		*dst = b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, v interface{}) {
	switch n := v.(type) {
	case int:
		*dst = n
	case int64:
		*dst = int(n)
	case float64:
		*dst = int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, v interface{}) {
	switch n := v.(type) {
	case float64:
		*dst = n
	case int:
		*dst = float64(n)
	case int64:
		*dst = float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			*dst = parsed
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}
