package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBucket         = "RESEARCH_DOCS"
	DefaultPrefix         = "uploads/"
	DefaultSweepLimit     = 5
	DefaultWorkersAIModel = "@cf/meta/llama-3.1-70b-instruct"
)

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	AccountID string `toml:"account_id"`
	MaxTokens int    `toml:"max_tokens"`
}

// ExtractionConfig controls chunking and the per-chunk model calls.
type ExtractionConfig struct {
	Variant          string `toml:"variant"`
	ChunkSize        int    `toml:"chunk_size"`
	MinChunkSize     int    `toml:"min_chunk_size"`
	Concurrency      int    `toml:"concurrency"`
	CallInterval     string `toml:"call_interval"`
	FallbackMountain string `toml:"fallback_mountain"`
	SystemPrompt     string `toml:"system_prompt"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// BucketConfig describes one named document bucket binding.
type BucketConfig struct {
	Provider  string `toml:"provider"`
	Name      string `toml:"name"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type QueueConfig struct {
	Provider string   `toml:"provider"`
	Topic    string   `toml:"topic"`
	Group    string   `toml:"group"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	Brokers  []string `toml:"brokers"`
}

type TemporalConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	TaskQueue string `toml:"task_queue"`
}

type RetryConfig struct {
	MaxAttempts       int     `toml:"max_attempts"`
	InitialDelay      string  `toml:"initial_delay"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
}

type WorkflowConfig struct {
	DedupWindow  string      `toml:"dedup_window"`
	PollSchedule string      `toml:"poll_schedule"`
	PollBucket   string      `toml:"poll_bucket"`
	PollPrefix   string      `toml:"poll_prefix"`
	Retry        RetryConfig `toml:"retry"`
}

type LedgerConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Limit  int    `toml:"limit"`
}

type Config struct {
	Server     ServerConfig            `toml:"server"`
	Log        LogConfig               `toml:"log"`
	LLM        LLMConfig               `toml:"llm"`
	Extraction ExtractionConfig        `toml:"extraction"`
	Store      StoreConfig             `toml:"store"`
	Memgraph   MemgraphConfig          `toml:"memgraph"`
	Buckets    map[string]BucketConfig `toml:"buckets"`
	Queue      QueueConfig             `toml:"queue"`
	Temporal   TemporalConfig          `toml:"temporal"`
	Workflow   WorkflowConfig          `toml:"workflow"`
	Ledger     LedgerConfig            `toml:"ledger"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.AccountID, "CLOUDFLARE_ACCOUNT_ID")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DSN, "STORE_DSN")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Temporal.Address, "TEMPORAL_ADDRESS")
	setString(&c.Temporal.Namespace, "TEMPORAL_NAMESPACE")
	setString(&c.Temporal.TaskQueue, "TEMPORAL_TASK_QUEUE")
	setString(&c.Queue.Addr, "REDIS_ADDR")
	setString(&c.Ledger.DSN, "LEDGER_DSN")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Mode, "LOG_MODE")
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		c.Queue.Brokers = strings.Split(brokers, ",")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("EXTRACTION_CONCURRENCY"))); err == nil && n > 0 {
		c.Extraction.Concurrency = n
	}
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}

	// Default to Ollama if provider is empty
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = "http://localhost:11434"
		}
		if c.LLM.Model == "" {
			c.LLM.Model = "llama3.1"
		}
	}
	if strings.EqualFold(c.LLM.Provider, "workersai") && c.LLM.Model == "" {
		c.LLM.Model = DefaultWorkersAIModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}

	if c.Extraction.Variant == "" {
		c.Extraction.Variant = "simple"
	}
	if c.Extraction.ChunkSize <= 0 {
		c.Extraction.ChunkSize = 8000
	}
	if c.Extraction.MinChunkSize <= 0 {
		c.Extraction.MinChunkSize = 100
	}
	if c.Extraction.Concurrency <= 0 {
		c.Extraction.Concurrency = 4
	}
	if c.Extraction.FallbackMountain == "" {
		c.Extraction.FallbackMountain = "Government"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		c.Store.DSN = "inquisitor.db"
	}
	if c.Memgraph.URI == "" {
		c.Memgraph.URI = "bolt://localhost:7687"
	}

	if c.Buckets == nil {
		c.Buckets = map[string]BucketConfig{}
	}

	if c.Queue.Topic == "" {
		c.Queue.Topic = "extraction-jobs"
	}
	if c.Queue.Group == "" {
		c.Queue.Group = "inquisitor"
	}

	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = "default"
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = "inquisitor-extraction"
	}

	if c.Workflow.DedupWindow == "" {
		c.Workflow.DedupWindow = "1h"
	}
	if c.Workflow.PollBucket == "" {
		c.Workflow.PollBucket = DefaultBucket
	}
	if c.Workflow.PollPrefix == "" {
		c.Workflow.PollPrefix = DefaultPrefix
	}
	if c.Workflow.Retry.MaxAttempts <= 0 {
		c.Workflow.Retry.MaxAttempts = 3
	}
	if c.Workflow.Retry.InitialDelay == "" {
		c.Workflow.Retry.InitialDelay = "10s"
	}
	if c.Workflow.Retry.BackoffMultiplier <= 0 {
		c.Workflow.Retry.BackoffMultiplier = 2
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "sqlite"
	}
	if c.Ledger.Limit <= 0 {
		c.Ledger.Limit = 2000
	}
}

// Duration parses a duration setting, falling back to def when empty or invalid.
func Duration(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
