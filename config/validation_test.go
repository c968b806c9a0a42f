package config

import (
	"testing"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{
			name:      "non-empty value",
			value:     "valid",
			wantError: false,
		},
		{
			name:      "empty value",
			value:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorRequirePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{
			name:      "positive value",
			value:     10,
			wantError: false,
		},
		{
			name:      "zero value",
			value:     0,
			wantError: true,
		},
		{
			name:      "negative value",
			value:     -5,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequirePositive("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorRequireNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{
			name:      "positive value",
			value:     3,
			wantError: false,
		},
		{
			name:      "zero value",
			value:     0,
			wantError: false,
		},
		{
			name:      "negative value",
			value:     -1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonNegative("test_field", tt.value)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateRange(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		max       int
		wantError bool
	}{
		{
			name:      "value in range",
			value:     50,
			min:       0,
			max:       100,
			wantError: false,
		},
		{
			name:      "value below minimum",
			value:     -1,
			min:       0,
			max:       100,
			wantError: true,
		},
		{
			name:      "value above maximum",
			value:     101,
			min:       0,
			max:       100,
			wantError: true,
		},
		{
			name:      "value at minimum boundary",
			value:     0,
			min:       0,
			max:       100,
			wantError: false,
		},
		{
			name:      "value at maximum boundary",
			value:     100,
			min:       0,
			max:       100,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateRange("test_field", tt.value, tt.min, tt.max)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateOneOf(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		allowed   []string
		wantError bool
	}{
		{
			name:      "value is allowed",
			value:     "openai",
			allowed:   []string{"openai", "claude", "groq", "gemini"},
			wantError: false,
		},
		{
			name:      "value not allowed",
			value:     "invalid",
			allowed:   []string{"openai", "claude"},
			wantError: true,
		},
		{
			name:      "empty allowed list",
			value:     "any",
			allowed:   []string{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateOneOf("field", tt.value, tt.allowed...)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateDBNumber(t *testing.T) {
	tests := []struct {
		name      string
		db        int
		wantError bool
	}{
		{
			name:      "valid db number",
			db:        5,
			wantError: false,
		},
		{
			name:      "minimum valid db",
			db:        0,
			wantError: false,
		},
		{
			name:      "maximum valid db",
			db:        15,
			wantError: false,
		},
		{
			name:      "db too high",
			db:        16,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateDBNumber("db", tt.db)
			hasError := v.HasErrors()
			if hasError != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "")
	v.RequirePositive("field2", 0)
	v.ValidateRange("field3", 200, 0, 100)

	if !v.HasErrors() {
		t.Errorf("HasErrors() = false, want true")
	}

	errs := v.Errors()
	if len(errs) != 3 {
		t.Errorf("Errors() count = %d, want 3", len(errs))
	}

	if err := v.Error(); err == nil {
		t.Errorf("Error() = nil, want non-nil error")
	}
}

func TestValidateMongoConfig(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		database    string
		collections []string
		wantError   bool
	}{
		{
			name:        "valid config",
			uri:         "mongodb://localhost:27017",
			database:    "bookaudit",
			collections: []string{"chunks", "agents"},
			wantError:   false,
		},
		{
			name:        "missing uri",
			uri:         "",
			database:    "bookaudit",
			collections: []string{"chunks"},
			wantError:   true,
		},
		{
			name:        "empty collection name",
			uri:         "mongodb://localhost:27017",
			database:    "bookaudit",
			collections: []string{""},
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMongoConfig(tt.uri, tt.database, tt.collections...)
			hasError := err != nil
			if hasError != tt.wantError {
				t.Errorf("ValidateMongoConfig() error = %v, wantError %v", hasError, tt.wantError)
			}
		})
	}
}

func TestValidateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		wantError bool
	}{
		{
			name:      "valid threshold",
			threshold: 80,
			wantError: false,
		},
		{
			name:      "threshold too high",
			threshold: 101,
			wantError: true,
		},
		{
			name:      "negative threshold",
			threshold: -1,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreshold("confidence_score", tt.threshold)
			hasError := err != nil
			if hasError != tt.wantError {
				t.Errorf("ValidateThreshold() error = %v, wantError %v", hasError, tt.wantError)
			}
		})
	}
}

func TestDefaultReviewIsValid(t *testing.T) {
	cfg := DefaultReview()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultReview() should validate, got %v", err)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected 3 max retries, got %d", cfg.MaxRetries)
	}
	if cfg.FallbackConfidence != 50 {
		t.Errorf("Expected fallback confidence 50, got %d", cfg.FallbackConfidence)
	}
}

func TestReviewFromEnv(t *testing.T) {
	t.Setenv("BOOKAUDIT_MAX_RETRIES", "5")
	t.Setenv("BOOKAUDIT_RETRY_DELAY", "2s")
	t.Setenv("BOOKAUDIT_EVAL_FALLBACK", "40")

	cfg := ReviewFromEnv()
	if cfg.MaxRetries != 5 {
		t.Errorf("Expected max retries 5 from env, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay.Seconds() != 2 {
		t.Errorf("Expected retry delay 2s from env, got %v", cfg.RetryDelay)
	}
	if cfg.FallbackConfidence != 40 {
		t.Errorf("Expected fallback 40 from env, got %d", cfg.FallbackConfidence)
	}
	// Unset values keep their defaults.
	if cfg.EvalAttempts != 3 {
		t.Errorf("Expected default eval attempts 3, got %d", cfg.EvalAttempts)
	}
}

func TestReviewValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultReview()
	cfg.FallbackConfidence = 120
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for out-of-range fallback confidence")
	}

	cfg = DefaultReview()
	cfg.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for zero concurrency")
	}
}
