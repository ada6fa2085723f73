// Package config loads the application configuration from YAML with
// documented defaults. Every tunable of the pipeline is a named field here,
// passed into components at construction.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RetrievalConfig tunes the two retrievers and their fusion.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	RetrieveK       int     `yaml:"retrieve_k"`
	RRFK            int     `yaml:"rrf_k"`
	BM25K1          float64 `yaml:"bm25_k1"`
	BM25B           float64 `yaml:"bm25_b"`
	FilterStopwords bool    `yaml:"filter_stopwords"`
}

// GuardrailsConfig tunes input/output screening.
type GuardrailsConfig struct {
	MaxInputChars   int `yaml:"max_input_chars"`
	MaxOutputChars  int `yaml:"max_output_chars"`
	MaxControlChars int `yaml:"max_control_chars"`
}

// GroundingConfig tunes the grounding validator.
type GroundingConfig struct {
	Threshold     float64 `yaml:"threshold"`
	WeightByScore bool    `yaml:"weight_by_score"`
}

// IngestionConfig tunes chunking.
type IngestionConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// ProviderConfig configures one external provider endpoint.
type ProviderConfig struct {
	Type        string  `yaml:"type"` // "ollama" or "openai"
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// EvaluationConfig tunes the evaluation harness.
type EvaluationConfig struct {
	Workers             int     `yaml:"workers"`
	HitOverlapThreshold float64 `yaml:"hit_overlap_threshold"`
}

// StorageConfig selects chunk/history persistence.
type StorageConfig struct {
	Type     string `yaml:"type"` // "sqlite" or "memory"
	DataPath string `yaml:"data_path"`
}

// Config is the root application configuration.
type Config struct {
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Grounding  GroundingConfig  `yaml:"grounding"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Embedder   ProviderConfig   `yaml:"embedder"`
	LLM        ProviderConfig   `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
	WatchDir   string           `yaml:"watch_dir"`
	LogLevel   string           `yaml:"log_level"`
}

// Load reads a config from path. A missing file returns defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			TopK:            5,
			RetrieveK:       10,
			RRFK:            60,
			BM25K1:          1.5,
			BM25B:           0.75,
			FilterStopwords: true,
		},
		Guardrails: GuardrailsConfig{
			MaxInputChars:   5000,
			MaxOutputChars:  3000,
			MaxControlChars: 4,
		},
		Grounding: GroundingConfig{
			Threshold:     0.3,
			WeightByScore: true,
		},
		Ingestion: IngestionConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Embedder: ProviderConfig{
			Type:        "ollama",
			Model:       "nomic-embed-text",
			TimeoutSecs: 30,
		},
		LLM: ProviderConfig{
			Type:        "ollama",
			Model:       "llama3.2",
			TimeoutSecs: 60,
		},
		Evaluation: EvaluationConfig{
			Workers:             4,
			HitOverlapThreshold: 0.5,
		},
		Storage: StorageConfig{
			Type:     "sqlite",
			DataPath: "./data",
		},
		LogLevel: "info",
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Retrieval.RetrieveK <= 0 {
		c.Retrieval.RetrieveK = c.Retrieval.TopK * 2
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = d.Retrieval.RRFK
	}
	if c.Retrieval.BM25K1 <= 0 {
		c.Retrieval.BM25K1 = d.Retrieval.BM25K1
	}
	if c.Retrieval.BM25B <= 0 {
		c.Retrieval.BM25B = d.Retrieval.BM25B
	}
	if c.Guardrails.MaxInputChars <= 0 {
		c.Guardrails.MaxInputChars = d.Guardrails.MaxInputChars
	}
	if c.Guardrails.MaxOutputChars <= 0 {
		c.Guardrails.MaxOutputChars = d.Guardrails.MaxOutputChars
	}
	if c.Guardrails.MaxControlChars <= 0 {
		c.Guardrails.MaxControlChars = d.Guardrails.MaxControlChars
	}
	if c.Grounding.Threshold <= 0 {
		c.Grounding.Threshold = d.Grounding.Threshold
	}
	if c.Ingestion.ChunkSize <= 0 {
		c.Ingestion.ChunkSize = d.Ingestion.ChunkSize
	}
	if c.Ingestion.ChunkOverlap < 0 {
		c.Ingestion.ChunkOverlap = d.Ingestion.ChunkOverlap
	}
	if c.Embedder.Type == "" {
		c.Embedder.Type = d.Embedder.Type
	}
	if c.Embedder.TimeoutSecs <= 0 {
		c.Embedder.TimeoutSecs = d.Embedder.TimeoutSecs
	}
	if c.LLM.Type == "" {
		c.LLM.Type = d.LLM.Type
	}
	if c.LLM.TimeoutSecs <= 0 {
		c.LLM.TimeoutSecs = d.LLM.TimeoutSecs
	}
	if c.Evaluation.Workers <= 0 {
		c.Evaluation.Workers = d.Evaluation.Workers
	}
	if c.Evaluation.HitOverlapThreshold <= 0 {
		c.Evaluation.HitOverlapThreshold = d.Evaluation.HitOverlapThreshold
	}
	if c.Storage.Type == "" {
		c.Storage.Type = d.Storage.Type
	}
	if c.Storage.DataPath == "" {
		c.Storage.DataPath = d.Storage.DataPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}
