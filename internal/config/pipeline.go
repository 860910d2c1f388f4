package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/pipeline"
	"github.com/acrewise/acrewise/internal/policy"
)

const (
	EnvPipelineWorkers             = "ACREWISE_PIPELINE_WORKERS"
	EnvPipelineQueueSize           = "ACREWISE_PIPELINE_QUEUE_SIZE"
	EnvPipelineStepTimeout         = "ACREWISE_PIPELINE_STEP_TIMEOUT"
	EnvPipelineRetryAttempts       = "ACREWISE_PIPELINE_RETRY_ATTEMPTS"
	EnvPipelineRetryDelay          = "ACREWISE_PIPELINE_RETRY_DELAY"
	EnvPipelineConfidenceThreshold = "ACREWISE_PIPELINE_CONFIDENCE_THRESHOLD"
	EnvPipelineFinancialLimit      = "ACREWISE_PIPELINE_FINANCIAL_LIMIT"
)

// PipelineConfig holds worker pool sizing, retry behavior, and the review
// policy thresholds and rules.
type PipelineConfig struct {
	Workers             int           `toml:"workers"`
	QueueSize           int           `toml:"queue_size"`
	StepTimeout         string        `toml:"step_timeout"`
	RetryAttempts       int           `toml:"retry_attempts"`
	RetryDelay          string        `toml:"retry_delay"`
	ConfidenceThreshold float64       `toml:"confidence_threshold"`
	FinancialLimit      float64       `toml:"financial_limit"`
	LegalCategories     []string      `toml:"legal_categories"`
	FinancialFields     []string      `toml:"financial_fields"`
	Rules               []policy.Rule `toml:"rules"`
}

// Settings converts to the pipeline worker configuration.
func (c *PipelineConfig) Settings() pipeline.Config {
	stepTimeout, _ := time.ParseDuration(c.StepTimeout)
	retryDelay, _ := time.ParseDuration(c.RetryDelay)

	return pipeline.Config{
		Workers:       c.Workers,
		QueueSize:     c.QueueSize,
		StepTimeout:   stepTimeout,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    retryDelay,
	}
}

// Policy converts to the review policy configuration.
func (c *PipelineConfig) Policy() policy.Config {
	categories := make([]classify.Category, 0, len(c.LegalCategories))
	for _, name := range c.LegalCategories {
		categories = append(categories, classify.Category(name))
	}

	return policy.Config{
		ConfidenceThreshold: c.ConfidenceThreshold,
		FinancialLimit:      c.FinancialLimit,
		LegalCategories:     categories,
		FinancialFields:     c.FinancialFields,
		Rules:               c.Rules,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.StepTimeout != "" {
		c.StepTimeout = overlay.StepTimeout
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.FinancialLimit != 0 {
		c.FinancialLimit = overlay.FinancialLimit
	}
	if len(overlay.LegalCategories) > 0 {
		c.LegalCategories = overlay.LegalCategories
	}
	if len(overlay.FinancialFields) > 0 {
		c.FinancialFields = overlay.FinancialFields
	}
	if len(overlay.Rules) > 0 {
		c.Rules = overlay.Rules
	}
}

func (c *PipelineConfig) loadDefaults() {
	defaults := policy.DefaultConfig()

	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.StepTimeout == "" {
		c.StepTimeout = "30s"
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if c.FinancialLimit == 0 {
		c.FinancialLimit = defaults.FinancialLimit
	}
	if len(c.LegalCategories) == 0 {
		for _, category := range defaults.LegalCategories {
			c.LegalCategories = append(c.LegalCategories, string(category))
		}
	}
	if len(c.FinancialFields) == 0 {
		c.FinancialFields = defaults.FinancialFields
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineWorkers); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			c.Workers = workers
		}
	}
	if v := os.Getenv(EnvPipelineQueueSize); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.QueueSize = size
		}
	}
	if v := os.Getenv(EnvPipelineStepTimeout); v != "" {
		c.StepTimeout = v
	}
	if v := os.Getenv(EnvPipelineRetryAttempts); v != "" {
		if attempts, err := strconv.Atoi(v); err == nil {
			c.RetryAttempts = attempts
		}
	}
	if v := os.Getenv(EnvPipelineRetryDelay); v != "" {
		c.RetryDelay = v
	}
	if v := os.Getenv(EnvPipelineConfidenceThreshold); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = threshold
		}
	}
	if v := os.Getenv(EnvPipelineFinancialLimit); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil {
			c.FinancialLimit = limit
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("invalid queue_size: %d", c.QueueSize)
	}
	if _, err := time.ParseDuration(c.StepTimeout); err != nil {
		return fmt.Errorf("invalid step_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence_threshold: %g", c.ConfidenceThreshold)
	}
	for _, name := range c.LegalCategories {
		if !classify.Category(name).Valid() {
			return fmt.Errorf("unknown legal category: %s", name)
		}
	}
	return nil
}
