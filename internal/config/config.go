package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/language"

	"github.com/BemoBit/po-translator/internal/translator"
	"github.com/BemoBit/po-translator/pkg/file"
)

// Config holds all run configuration. Values come from environment
// variables with sensible defaults; command-line flags override them.
//
// Environment Variables:
// - PO_TRANSLATOR_SERVICE: translation backend (default: google)
// - PO_TRANSLATOR_TARGET: target language code (default: fa)
// - PO_TRANSLATOR_SOURCE: source language code (default: auto-detect)
// - PO_TRANSLATOR_BATCH_SIZE: entries per batch (default: 10)
// - PO_TRANSLATOR_WORKERS: concurrent requests (default: 4)
// - PO_TRANSLATOR_SAVE_INTERVAL: translations between snapshots (default: 50)
// - PO_TRANSLATOR_MAX_ATTEMPTS: tries per string on transient errors (default: 3)
// - PO_TRANSLATOR_REQUEST_DELAY_MS: pause after each request (default: 100)
// - PO_TRANSLATOR_CACHE_DIR: cache directory (default: ~/.cache/po-translator)
// - PO_TRANSLATOR_LIBRETRANSLATE_URL: LibreTranslate endpoint override
// - PO_TRANSLATOR_EMAIL: MyMemory contact email
// - PO_TRANSLATOR_LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`

	Service           string `json:"service"`
	SourceLang        string `json:"source_lang"`
	TargetLang        string `json:"target_lang"`
	LibreTranslateURL string `json:"libretranslate_url"`
	MyMemoryEmail     string `json:"mymemory_email"`

	BatchSize      int  `json:"batch_size"`
	Workers        int  `json:"workers"`
	SaveInterval   int  `json:"save_interval"`
	MaxAttempts    int  `json:"max_attempts"`
	RequestDelayMs int  `json:"request_delay_ms"`
	IgnoreExisting bool `json:"ignore_existing"`

	NoCache  bool   `json:"no_cache"`
	CacheDir string `json:"cache_dir"`

	LogLevel string `json:"log_level"`
}

// NewFromEnv builds a Config from environment variables. The result is the
// flag-default layer; the CLI overrides individual fields before Validate.
func NewFromEnv() *Config {
	return &Config{
		Service:           getEnvString("PO_TRANSLATOR_SERVICE", translator.ServiceGoogle),
		SourceLang:        getEnvString("PO_TRANSLATOR_SOURCE", ""),
		TargetLang:        getEnvString("PO_TRANSLATOR_TARGET", "fa"),
		LibreTranslateURL: getEnvString("PO_TRANSLATOR_LIBRETRANSLATE_URL", ""),
		MyMemoryEmail:     getEnvString("PO_TRANSLATOR_EMAIL", ""),
		BatchSize:         getEnvInt("PO_TRANSLATOR_BATCH_SIZE", 10),
		Workers:           getEnvInt("PO_TRANSLATOR_WORKERS", 4),
		SaveInterval:      getEnvInt("PO_TRANSLATOR_SAVE_INTERVAL", 50),
		MaxAttempts:       getEnvInt("PO_TRANSLATOR_MAX_ATTEMPTS", 3),
		RequestDelayMs:    getEnvInt("PO_TRANSLATOR_REQUEST_DELAY_MS", 100),
		CacheDir:          getEnvString("PO_TRANSLATOR_CACHE_DIR", defaultCacheDir()),
		LogLevel:          getEnvString("PO_TRANSLATOR_LOG_LEVEL", "info"),
	}
}

// Finalize fills derived fields once the input path is known. The default
// output path is the input with the target language spliced in before the
// extension, e.g. messages.po → messages.fa.po.
func (c *Config) Finalize(inputPath string) {
	c.InputPath = inputPath
	if c.OutputPath == "" {
		c.OutputPath = file.InsertBeforeExt(inputPath, "."+c.TargetLang)
	}
}

// Validate checks languages, service and numeric bounds.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input file is required")
	}

	switch c.Service {
	case translator.ServiceGoogle, translator.ServiceLibreTranslate, translator.ServiceMyMemory:
	default:
		return fmt.Errorf("unknown translation service %q", c.Service)
	}

	if c.TargetLang == "" {
		return fmt.Errorf("target language is required")
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("invalid target language %q: %w", c.TargetLang, err)
	}
	if c.SourceLang != "" {
		if _, err := language.Parse(c.SourceLang); err != nil {
			return fmt.Errorf("invalid source language %q: %w", c.SourceLang, err)
		}
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.SaveInterval <= 0 {
		return fmt.Errorf("save interval must be positive, got %d", c.SaveInterval)
	}
	return nil
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".po-translator-cache"
	}
	return filepath.Join(base, "po-translator")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
