package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TargetSiYuan   = "siyuan"
	TargetObsidian = "obsidian"
	TargetLogseq   = "logseq"
	TargetSurreal  = "surrealdb"
)

var (
	ErrMissingGitHubToken = errors.New("missing GITHUB_TOKEN")
	ErrMissingLLMKey      = errors.New("missing LLM_API_KEY (or OPENAI_API_KEY) while ENABLE_AI is on")
)

type Config struct {
	GitHubToken  string
	GitHubAPIURL string

	EnableAI    bool
	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string

	Timezone  string
	Targets   []string
	ForceSync bool
	StateFile string
	CacheDir  string

	SiYuanAPIURL     string
	SiYuanToken      string
	SiYuanNotebookID string
	SiYuanDocPath    string

	ObsidianVaultPath string
	ObsidianFilePath  string

	LogseqGraphPath string
	LogseqPagePath  string

	SurrealURL  string
	SurrealNS   string
	SurrealDB   string
	SurrealUser string
	SurrealPass string

	LogLevel  string
	LogFile   string
	LogFormat string

	ServeAddr    string
	SyncInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),

		EnableAI:    os.Getenv("ENABLE_AI") != "false",
		LLMProvider: strings.ToLower(os.Getenv("LLM_PROVIDER")),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMModel:    os.Getenv("LLM_MODEL"),

		Timezone:  os.Getenv("SYNC_TZ"),
		Targets:   splitList(os.Getenv("SYNC_TARGETS")),
		ForceSync: os.Getenv("FORCE_SYNC") == "true",
		StateFile: os.Getenv("STATE_FILE"),
		CacheDir:  os.Getenv("CACHE_DIR"),

		SiYuanAPIURL:     os.Getenv("SIYUAN_API_URL"),
		SiYuanToken:      os.Getenv("SIYUAN_API_TOKEN"),
		SiYuanNotebookID: os.Getenv("SIYUAN_NOTEBOOK_ID"),
		SiYuanDocPath:    os.Getenv("SIYUAN_DOC_PATH"),

		ObsidianVaultPath: os.Getenv("OBSIDIAN_VAULT_PATH"),
		ObsidianFilePath:  os.Getenv("OBSIDIAN_FILE_PATH"),

		LogseqGraphPath: os.Getenv("LOGSEQ_GRAPH_PATH"),
		LogseqPagePath:  os.Getenv("LOGSEQ_PAGE_PATH"),

		SurrealURL:  os.Getenv("SURREAL_URL"),
		SurrealNS:   os.Getenv("SURREAL_NS"),
		SurrealDB:   os.Getenv("SURREAL_DB"),
		SurrealUser: os.Getenv("SURREAL_USER"),
		SurrealPass: os.Getenv("SURREAL_PASS"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFile:   os.Getenv("LOG_FILE"),
		LogFormat: os.Getenv("LOG_FORMAT"),

		ServeAddr: os.Getenv("SERVE_ADDR"),
	}

	// OPENAI_API_KEY is accepted as a fallback
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	// The SDK appends /rpc automatically
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/rpc")
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/")

	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = "https://api.github.com"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "gpt-4o-mini"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Shanghai"
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{TargetSiYuan}
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "starred_state.json"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "."
	}
	if cfg.SiYuanAPIURL == "" {
		cfg.SiYuanAPIURL = "http://127.0.0.1:6806"
	}
	if cfg.SiYuanDocPath == "" {
		cfg.SiYuanDocPath = "/GitHub/Stars"
	}
	if !strings.HasPrefix(cfg.SiYuanDocPath, "/") {
		cfg.SiYuanDocPath = "/" + cfg.SiYuanDocPath
	}
	if cfg.ObsidianFilePath == "" {
		cfg.ObsidianFilePath = "GitHub/Stars.md"
	}
	if cfg.LogseqPagePath == "" {
		cfg.LogseqPagePath = "pages/github-stars.md"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.ServeAddr == "" {
		cfg.ServeAddr = "127.0.0.1:8765"
	}

	cfg.SyncInterval = time.Hour
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncInterval = d
		}
	}

	return cfg
}

// Validate checks the settings a sync cycle cannot run without.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return ErrMissingGitHubToken
	}
	if c.EnableAI && strings.TrimSpace(c.LLMAPIKey) == "" {
		return ErrMissingLLMKey
	}
	return nil
}

// AIAvailable reports whether classification calls may be made.
func (c *Config) AIAvailable() bool {
	return c.EnableAI && strings.TrimSpace(c.LLMAPIKey) != ""
}

// HasTarget reports whether name is one of the configured sync targets.
func (c *Config) HasTarget(name string) bool {
	for _, t := range c.Targets {
		if t == name {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
