package config

import (
	"os"
	"strconv"
	"time"
)

// Review holds the tunables of the review pipeline. Defaults mirror the
// operational values of the batch reviewer: three retries with a fixed
// five-second delay per agent run, a separate three-attempt evaluator budget
// with a three-second delay, and a neutral fallback score of 50.
type Review struct {
	MaxRetries         int
	RetryDelay         time.Duration
	EvalAttempts       int
	EvalDelay          time.Duration
	FallbackConfidence int
	Concurrency        int
	ContextTokenBudget int
}

// DefaultReview returns the default review pipeline configuration.
func DefaultReview() Review {
	return Review{
		MaxRetries:         3,
		RetryDelay:         5 * time.Second,
		EvalAttempts:       3,
		EvalDelay:          3 * time.Second,
		FallbackConfidence: 50,
		Concurrency:        4,
		ContextTokenBudget: 512,
	}
}

// ReviewFromEnv loads review pipeline configuration from environment variables,
// falling back to defaults for anything unset.
func ReviewFromEnv() Review {
	def := DefaultReview()
	return Review{
		MaxRetries:         getEnvInt("BOOKAUDIT_MAX_RETRIES", def.MaxRetries),
		RetryDelay:         getEnvDuration("BOOKAUDIT_RETRY_DELAY", def.RetryDelay),
		EvalAttempts:       getEnvInt("BOOKAUDIT_EVAL_ATTEMPTS", def.EvalAttempts),
		EvalDelay:          getEnvDuration("BOOKAUDIT_EVAL_DELAY", def.EvalDelay),
		FallbackConfidence: getEnvInt("BOOKAUDIT_EVAL_FALLBACK", def.FallbackConfidence),
		Concurrency:        getEnvInt("BOOKAUDIT_CONCURRENCY", def.Concurrency),
		ContextTokenBudget: getEnvInt("BOOKAUDIT_CONTEXT_TOKENS", def.ContextTokenBudget),
	}
}

// Validate checks the review configuration for sane values.
func (r Review) Validate() error {
	v := NewValidator()
	v.RequireNonNegative("maxRetries", r.MaxRetries)
	v.RequirePositive("evalAttempts", r.EvalAttempts)
	v.ValidateRange("fallbackConfidence", r.FallbackConfidence, 0, 100)
	v.RequirePositive("concurrency", r.Concurrency)
	v.RequireNonNegative("contextTokenBudget", r.ContextTokenBudget)
	return v.Error()
}

// Helper functions for environment variable reading

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
