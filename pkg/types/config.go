// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "chronos/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIProvider identifies the generation backend.
type AIProvider string

const (
	ProviderGemini AIProvider = "gemini"
	ProviderOpenAI AIProvider = "openai"
	ProviderClaude AIProvider = "claude"
)

// AIConfig holds settings for the language-model backend shared by all phases.
type AIConfig struct {
	// Provider selects the backend: gemini, openai, or claude.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gemini-2.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers, tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BaseDelay is the minimum spacing between requests (default 12s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps a single backoff wait (default 5m).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// TotalTimeout bounds one request including all retries (default 30m).
	TotalTimeout time.Duration `json:"total_timeout" yaml:"total_timeout"`

	// MaxOutputTokens bounds each response (default 8192).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`
}

// OCRBackend identifies the image OCR engine.
type OCRBackend string

const (
	OCRTesseract OCRBackend = "tesseract"
	OCRGemini    OCRBackend = "gemini"
)

// OCRConfig holds settings for turning input documents into text.
type OCRConfig struct {
	// Backend selects the image OCR engine: tesseract or gemini.
	Backend OCRBackend `json:"backend" yaml:"backend"`

	// Image is the container image providing tesseract.
	Image string `json:"image" yaml:"image"`

	// Language is the tesseract language code (default "eng").
	Language string `json:"language" yaml:"language"`

	// MinNativeChars is the least text a PDF must yield natively before
	// image OCR is skipped (default 200).
	MinNativeChars int `json:"min_native_chars" yaml:"min_native_chars"`
}

// QuestionFormat selects the Phase 4 output structure.
type QuestionFormat string

const (
	FormatHypothesis QuestionFormat = "h-format"
	FormatDetailed   QuestionFormat = "detailed"
)

// PhaseConfig holds sampling and size settings for the four phases.
type PhaseConfig struct {
	BrainstormTemperature float32 `json:"brainstorm_temperature" yaml:"brainstorm_temperature"`
	ContextTemperature    float32 `json:"context_temperature" yaml:"context_temperature"`
	DistillTemperature    float32 `json:"distill_temperature" yaml:"distill_temperature"`
	FormulateTemperature  float32 `json:"formulate_temperature" yaml:"formulate_temperature"`

	// NumQuestions is how many hypotheses Phase 4 requests (default 10).
	NumQuestions int `json:"num_questions" yaml:"num_questions"`

	// TopN is how many hypotheses the ranking keeps (default 3).
	TopN int `json:"top_n" yaml:"top_n"`

	// Format selects h-format or detailed (13-field) questions.
	Format QuestionFormat `json:"format" yaml:"format"`

	// MaxContextChars truncates OCR text passed to graph extraction (default 10000).
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"`
}

// LiteratureConfig holds settings for the optional modern-evidence check.
type LiteratureConfig struct {
	HTTPConfig `yaml:",inline"`

	// Enabled turns the check on after Phase 4.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Email is sent to OpenAlex for the polite pool.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// MaxResults is the number of works fetched per hypothesis (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServeConfig holds settings for the upload service.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// UploadDir receives uploaded documents.
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`

	// MaxUploadBytes bounds one upload (default 50 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// MaxConcurrentRuns bounds pipelines running at once (default 2).
	MaxConcurrentRuns int `json:"max_concurrent_runs" yaml:"max_concurrent_runs"`

	// StatusTTL is how long finished run statuses are kept (default 24h).
	StatusTTL time.Duration `json:"status_ttl" yaml:"status_ttl"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	// ResultsDir is the base directory; each run gets a subdirectory.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	AI         AIConfig         `json:"ai" yaml:"ai"`
	OCR        OCRConfig        `json:"ocr" yaml:"ocr"`
	Phases     PhaseConfig      `json:"phases" yaml:"phases"`
	Literature LiteratureConfig `json:"literature" yaml:"literature"`
	Serve      ServeConfig      `json:"serve" yaml:"serve"`
}

// DefaultPipelineConfig returns the configuration used when no file or
// environment overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ResultsDir: "chronos_results",
		AI: AIConfig{
			Provider:        ProviderGemini,
			Model:           "gemini-2.5-pro",
			MaxRetries:      5,
			BaseDelay:       12 * time.Second,
			MaxDelay:        5 * time.Minute,
			TotalTimeout:    30 * time.Minute,
			MaxOutputTokens: 8192,
		},
		OCR: OCRConfig{
			Backend:        OCRTesseract,
			Image:          "docker.io/jitesoft/tesseract-ocr:latest",
			Language:       "eng",
			MinNativeChars: 200,
		},
		Phases: PhaseConfig{
			BrainstormTemperature: 0.8,
			ContextTemperature:    0.5,
			DistillTemperature:    0.7,
			FormulateTemperature:  0.6,
			NumQuestions:          10,
			TopN:                  3,
			Format:                FormatHypothesis,
			MaxContextChars:       10000,
		},
		Literature: LiteratureConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "chronos/0.1"},
			MaxResults: 5,
		},
		Serve: ServeConfig{
			Addr:              ":8080",
			UploadDir:         "uploads",
			MaxUploadBytes:    50 << 20,
			MaxConcurrentRuns: 2,
			StatusTTL:         24 * time.Hour,
		},
	}
}
