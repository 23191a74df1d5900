package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/openai"
	"gopkg.in/yaml.v3"
)

// Config is the host configuration for a single run.
type Config struct {
	ProblemStatement    string  `yaml:"problem_statement" validate:"required"`
	ModelName           string  `yaml:"model_name" validate:"required"`
	InitialThoughtCount int     `yaml:"initial_thought_count" validate:"min=1,max=20"`
	Cycles              int     `yaml:"cycles" validate:"min=0,max=50"`
	BaseURL             string  `yaml:"base_url" validate:"omitempty,url"`
	Temperature         float32 `yaml:"temperature" validate:"min=0,max=2"`
	JSONMode            bool    `yaml:"json_mode"`
	ArchiveDSN          string  `yaml:"archive_dsn"`
	ExportPath          string  `yaml:"export_path"`
	LogLevel            string  `yaml:"log_level" validate:"oneof=debug info warn error"`
	Direct              bool    `yaml:"direct"`

	// APIKey is read from OPENAI_API_KEY and never from the config file.
	APIKey string `yaml:"-" validate:"required_without=BaseURL"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ModelName:           openai.DefaultModel,
		InitialThoughtCount: arbor.DefaultInitialThoughts,
		Cycles:              arbor.DefaultCycles,
		Temperature:         arbor.DefaultTemperature,
		JSONMode:            true,
		LogLevel:            "info",
	}
}

// LoadConfig reads a YAML file over the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration and reports every invalid field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := yamlName(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		if field == "api_key" {
			return "OPENAI_API_KEY is required unless base_url is set"
		}
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// yamlName converts a Go field name to its snake_case config key.
func yamlName(field string) string {
	switch field {
	case "APIKey":
		return "api_key"
	case "BaseURL":
		return "base_url"
	case "ArchiveDSN":
		return "archive_dsn"
	}

	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
