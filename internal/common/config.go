package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Limits   LimitsConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	Compiler CompilerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// LimitsConfig bounds what a single submission may contain
type LimitsConfig struct {
	MaxFiles          int
	MaxFileBytes      int64
	MaxTotalBytes     int64
	MaxTotalChars     int
	MaxPDFPages       int
	MaxQuestions      int
	MaxTitleLen       int
	MaxInstructionLen int
}

// PipelineConfig holds stage concurrency and token budgets
type PipelineConfig struct {
	ExtractWorkers       int
	GenerateWorkers      int
	SummaryTokensPerUnit int
	SummaryTokensMin     int
	SummaryTokensMax     int
	InputTokenCap        int
	JobRetention         time.Duration
	MaxJobs              int
	OutputDir            string
}

// LLMConfig holds generative-model configuration
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	QuestionModel   string
	SummaryModel    string
	Timeout         time.Duration
	QuestionOutCap  int
	AnswerOutCap    int
	SummaryOutScale float32
}

// CompilerConfig holds document-compiler configuration
type CompilerConfig struct {
	Command     string
	Timeout     time.Duration
	MaxAttempts int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Limits: LimitsConfig{
			MaxFiles:          getEnvAsInt("APP_MAX_FILES", 30),
			MaxFileBytes:      int64(getEnvAsInt("APP_MAX_FILE_MB", 25)) << 20,
			MaxTotalBytes:     int64(getEnvAsInt("APP_TOTAL_UPLOAD_MB", 100)) << 20,
			MaxTotalChars:     getEnvAsInt("APP_TOTAL_TEXT_CHAR_CAP", 3_000_000),
			MaxPDFPages:       getEnvAsInt("APP_PDF_PAGE_LIMIT", 2_000),
			MaxQuestions:      getEnvAsInt("APP_MAX_QUESTIONS", 30),
			MaxTitleLen:       getEnvAsInt("APP_MAX_TITLE_LEN", 80),
			MaxInstructionLen: getEnvAsInt("APP_MAX_INSTRUCTION_LEN", 200),
		},
		Pipeline: PipelineConfig{
			ExtractWorkers:       getEnvAsInt("APP_EXTRACT_WORKERS", 4),
			GenerateWorkers:      getEnvAsInt("APP_GENERATE_WORKERS", 2),
			SummaryTokensPerUnit: getEnvAsInt("APP_SUMMARY_TOKENS", 350),
			SummaryTokensMin:     getEnvAsInt("APP_SUMMARY_MIN", 200),
			SummaryTokensMax:     getEnvAsInt("APP_SUMMARY_MAX", 800),
			InputTokenCap:        getEnvAsInt("APP_Q_INPUT_CAP", 12_000),
			JobRetention:         getEnvAsDuration("APP_JOB_RETENTION", 24*time.Hour),
			MaxJobs:              getEnvAsInt("APP_MAX_JOBS", 2_000),
			OutputDir:            getEnv("APP_OUTPUT_DIR", "generated"),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			QuestionModel:   getEnv("OPENAI_MODEL_MAIN", "chatgpt-4o-latest"),
			SummaryModel:    getEnv("OPENAI_MODEL_SUMMARY", "gpt-4o-mini"),
			Timeout:         getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			QuestionOutCap:  getEnvAsInt("APP_Q_OUT_CAP", 4_000),
			AnswerOutCap:    getEnvAsInt("APP_A_OUT_CAP", 2_500),
			SummaryOutScale: getEnvAsFloat32("APP_SUMMARY_OUT_SCALE", 1.0),
		},
		Compiler: CompilerConfig{
			Command:     getEnv("TECTONIC_CMD", "tectonic"),
			Timeout:     getEnvAsDuration("TECTONIC_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("APP_COMPILE_ATTEMPTS", 3),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Compiler.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "APP_COMPILE_ATTEMPTS must be >= 1", ErrInvalidInput)
	}
	if c.Pipeline.ExtractWorkers < 1 || c.Pipeline.GenerateWorkers < 1 {
		return NewAppError("CONFIG_ERROR", "worker pool sizes must be >= 1", ErrInvalidInput)
	}
	return nil
}
