package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Client   ClientConfig   `yaml:"client"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OCRConfig holds extraction-engine configuration
type OCRConfig struct {
	Engine        string `yaml:"engine"`     // gosseract | tesseract-cli
	PDFEngine     string `yaml:"pdf_engine"` // native | pdftotext
	TesseractLang string `yaml:"tesseract_lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	TempDir       string `yaml:"temp_dir"`
}

// LLMConfig holds generative-backend configuration
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // gemini | openai
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	ValidateJSON bool          `yaml:"validate_json"`
}

// IngestConfig holds batch-ingestion configuration
type IngestConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxFiles      int           `yaml:"max_files"`
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// ClientConfig holds settings for the API client used by the CLI
type ClientConfig struct {
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             "file:engagement.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			GRPCAddr:        ":8080",
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		OCR: OCRConfig{
			Engine:        "gosseract",
			PDFEngine:     "native",
			TesseractLang: "eng",
		},
		LLM: LLMConfig{
			Provider:     "gemini",
			Model:        "gemini-1.5-flash",
			Temperature:  0.7,
			Timeout:      30 * time.Second,
			ValidateJSON: true,
		},
		Ingest: IngestConfig{
			MaxConcurrent: 5,
			MaxFiles:      5,
			Workers:       2,
			QueueSize:     64,
			JobTimeout:    3 * time.Minute,
		},
		Client: ClientConfig{
			APIURL:  "http://localhost:5000/api",
			Timeout: 30 * time.Second,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
// An empty path falls back to CONFIG_FILE.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.PDFEngine = getEnv("PDF_ENGINE", c.OCR.PDFEngine)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.TempDir = getEnv("ARTIFACT_TEMP_DIR", c.OCR.TempDir)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.Model == "gemini-1.5-flash" {
			c.LLM.Model = "gpt-4o-mini"
		}
		c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.Model = getEnv("GEMINI_MODEL", c.LLM.Model)
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	}

	c.Ingest.MaxConcurrent = getEnvAsInt("INGEST_MAX_CONCURRENT", c.Ingest.MaxConcurrent)
	c.Ingest.MaxFiles = getEnvAsInt("INGEST_MAX_FILES", c.Ingest.MaxFiles)
	c.Ingest.Workers = getEnvAsInt("INGEST_WORKERS", c.Ingest.Workers)
	c.Ingest.QueueSize = getEnvAsInt("INGEST_QUEUE_SIZE", c.Ingest.QueueSize)
	c.Ingest.JobTimeout = getEnvAsDuration("INGEST_JOB_TIMEOUT", c.Ingest.JobTimeout)

	c.Client.APIURL = getEnv("ENGAGE_API_URL", c.Client.APIURL)
	c.Client.Timeout = getEnvAsDuration("ENGAGE_API_TIMEOUT", c.Client.Timeout)
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrValidation, nil)
	}
	if c.Database.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrValidation, nil)
	}
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "GEMINI_API_KEY is required", ErrValidation, nil)
		}
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "OPENAI_API_KEY is required", ErrValidation, nil)
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider), ErrValidation, nil)
	}
	switch c.OCR.Engine {
	case "gosseract", "tesseract-cli":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown OCR_ENGINE %q", c.OCR.Engine), ErrValidation, nil)
	}
	switch c.OCR.PDFEngine {
	case "native", "pdftotext":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown PDF_ENGINE %q", c.OCR.PDFEngine), ErrValidation, nil)
	}
	if c.Ingest.MaxConcurrent <= 0 || c.Ingest.MaxConcurrent > 5 {
		return NewAppError(CodeConfig, "INGEST_MAX_CONCURRENT must be between 1 and 5", ErrValidation, nil)
	}
	return nil
}
