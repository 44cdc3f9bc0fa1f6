package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	LLMProvider string  // Provider identifier: openai, deepseek, siliconflow, dashscope, ollama
	LLMAPIKey   string  // LLM API key
	LLMBaseURL  string  // LLM base URL (optional, has default per provider)
	LLMModel    string  // Model name: gpt-4o-mini, deepseek-chat, etc.
	LLMTimeout  int     // LLM request timeout in seconds
	LLMRate     float64 // Max LLM requests per second, 0 disables pacing

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Reranker configuration
	RerankEnabled bool
	RerankModel   string
	RerankAPIKey  string
	RerankBaseURL string

	// Classification configuration
	ConfidenceThreshold float64
	AuditLogPath        string

	// Dataset and storage
	CatalogPath string
	DSN         string

	// Server
	Mode    string
	Addr    string
	Data    string
	Version string
	Port    int
}

// Provider default configurations for the LLM.
// Used when TOONDESK_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// ListenAddress joins Addr and Port into a host:port string.
func (p *Profile) ListenAddress() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("TOONDESK_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("TOONDESK_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TOONDESK_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TOONDESK_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("TOONDESK_LLM_TIMEOUT_SECONDS", 60)
	p.LLMRate = getEnvOrDefaultFloat("TOONDESK_LLM_RATE_PER_SECOND", 0)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("TOONDESK_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("TOONDESK_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("TOONDESK_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("TOONDESK_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("TOONDESK_EMBEDDING_DIMENSIONS", 1536)

	p.RerankEnabled = getEnvOrDefault("TOONDESK_RERANK_ENABLED", "false") == "true"
	p.RerankModel = getEnvOrDefault("TOONDESK_RERANK_MODEL", "BAAI/bge-reranker-v2-m3")
	p.RerankAPIKey = getEnvOrDefault("TOONDESK_RERANK_API_KEY", p.LLMAPIKey)
	p.RerankBaseURL = getEnvOrDefault("TOONDESK_RERANK_BASE_URL", "https://api.siliconflow.cn/v1")

	p.ConfidenceThreshold = getEnvOrDefaultFloat("TOONDESK_CONFIDENCE_THRESHOLD", 0.5)
	p.AuditLogPath = getEnvOrDefault("TOONDESK_AUDIT_LOG_PATH", "intent_audit.csv")

	p.CatalogPath = getEnvOrDefault("TOONDESK_CATALOG_PATH", "webtoon.csv")
	p.DSN = getEnvOrDefault("TOONDESK_DSN", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if !filepath.IsAbs(p.CatalogPath) {
		p.CatalogPath = filepath.Join(p.Data, p.CatalogPath)
	}
	if !filepath.IsAbs(p.AuditLogPath) {
		p.AuditLogPath = filepath.Join(p.Data, p.AuditLogPath)
	}

	if p.DSN == "" {
		return errors.New("TOONDESK_DSN is required")
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		slog.Warn("confidence threshold out of range, using default", "threshold", p.ConfidenceThreshold)
		p.ConfidenceThreshold = 0.5
	}
	return nil
}
