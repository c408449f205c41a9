package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// LLM endpoint
	LLMProvider    string
	OllamaBaseURL  string
	OllamaModel    string
	OutputLanguage string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	LLMTimeout     time.Duration

	// Retry
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Files
	OutputDirectory string
	UploadDirectory string
	MaxUploadBytes  int64

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

const (
	defaultPort           = "8090"
	defaultOllamaBaseURL  = "http://localhost:11434"
	defaultOllamaModel    = "granite3.3"
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 1000 // milliseconds
	defaultMaxUploadBytes = 52428800
	defaultWorkerCount    = 1
	defaultMaxQueueSize   = 100
	defaultJobTTL         = time.Hour
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", defaultPort)
	v.SetDefault("resumer_api_key", "")
	v.SetDefault("llm_provider", "ollama")
	v.SetDefault("ollama_base_url", defaultOllamaBaseURL)
	v.SetDefault("ollama_model", defaultOllamaModel)
	v.SetDefault("ollama_output_language", "English")
	v.SetDefault("openai_base_url", defaultOllamaBaseURL+"/v1")
	v.SetDefault("openai_api_key", "ollama")
	v.SetDefault("openai_model", "")
	v.SetDefault("llm_timeout", "0s")
	v.SetDefault("max_retries", defaultMaxRetries)
	v.SetDefault("retry_base_delay", defaultRetryBaseDelay)
	v.SetDefault("output_directory", "./pdf-output")
	v.SetDefault("upload_directory", os.TempDir())
	v.SetDefault("max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("worker_count", defaultWorkerCount)
	v.SetDefault("max_queue_size", defaultMaxQueueSize)
	v.SetDefault("job_ttl", defaultJobTTL.String())
	v.SetDefault("pdf_fallback_pdftotext", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads defaults, then the optional YAML config file, then environment
// variables. An empty cfgFile looks for resumer.yaml in the working
// directory and $HOME/.resumer; a missing file there is not an error.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("resumer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.resumer")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:   v.GetString("port"),
		APIKey: v.GetString("resumer_api_key"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
		OllamaBaseURL:  v.GetString("ollama_base_url"),
		OllamaModel:    v.GetString("ollama_model"),
		OutputLanguage: v.GetString("ollama_output_language"),
		OpenAIBaseURL:  v.GetString("openai_base_url"),
		OpenAIAPIKey:   v.GetString("openai_api_key"),
		OpenAIModel:    v.GetString("openai_model"),

		MaxRetries:     v.GetInt("max_retries"),
		RetryBaseDelay: time.Duration(v.GetInt("retry_base_delay")) * time.Millisecond,

		OutputDirectory: v.GetString("output_directory"),
		UploadDirectory: v.GetString("upload_directory"),
		MaxUploadBytes:  v.GetInt64("max_upload_bytes"),

		WorkerCount:  v.GetInt("worker_count"),
		MaxQueueSize: v.GetInt("max_queue_size"),

		PDFFallbackPdftotext: v.GetBool("pdf_fallback_pdftotext"),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}

	var err error
	if cfg.LLMTimeout, err = parseSeconds(v.GetString("llm_timeout")); err != nil {
		return Config{}, fmt.Errorf("LLM_TIMEOUT: %w", err)
	}
	if cfg.JobTTL, err = parseSeconds(v.GetString("job_ttl")); err != nil {
		return Config{}, fmt.Errorf("JOB_TTL: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = cfg.OllamaModel
	}
	if cfg.LLMTimeout < 0 {
		cfg.LLMTimeout = 0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay * time.Millisecond
	}
	if cfg.UploadDirectory == "" {
		cfg.UploadDirectory = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = defaultMaxQueueSize
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = defaultJobTTL
	}

	return cfg, nil
}

// parseSeconds reads a Go duration ("90s", "2m") or a bare integer count of
// seconds.
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// Model returns the model name for the configured provider.
func (c Config) Model() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return c.OllamaModel
}

func (c Config) Validate() error {
	switch c.LLMProvider {
	case "ollama":
		if err := validateURL("OLLAMA_BASE_URL", c.OllamaBaseURL); err != nil {
			return err
		}
	case "openai":
		if err := validateURL("OPENAI_BASE_URL", c.OpenAIBaseURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be ollama or openai, got %q", c.LLMProvider)
	}
	if strings.TrimSpace(c.Model()) == "" {
		return fmt.Errorf("a model name is required for provider %s", c.LLMProvider)
	}
	if c.OutputDirectory == "" {
		return fmt.Errorf("OUTPUT_DIRECTORY is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	return nil
}
