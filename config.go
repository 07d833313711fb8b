// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package relevit

import (
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/search"
)

// Config holds the retrieval settings of an Engine. Embedding provider
// settings live in the nested ai.Config.
type Config struct {
	// ChunkSize is the target chunk length in characters. Default: 1000
	ChunkSize int

	// ChunkOverlap is how many characters consecutive chunks share.
	// Default: 200
	ChunkOverlap int

	// SemanticWeight and KeywordWeight weight the two retrieval legs during
	// score fusion. They are normalized to sum to one. Defaults: 0.7 / 0.3
	SemanticWeight float64
	KeywordWeight  float64

	// MaxKeywords caps how many keywords are indexed per chunk. Default: 20
	MaxKeywords int

	// CacheRetention is how long an unused query result stays cached.
	// Default: 1h
	CacheRetention time.Duration

	// Overfetch multiplies the result limit when the retrieval legs query
	// the index, so fusion has enough candidate overlap to rank. Default: 3
	Overfetch int

	// BatchSize is how many chunks are embedded per provider call during
	// ingestion. Default: 10
	BatchSize int

	// PoolSize is the number of concurrent ingestion workers. Default: 4
	PoolSize int

	// LegTimeout bounds each retrieval leg of a search. Default: 30s
	LegTimeout time.Duration

	// MinRelevance drops results whose fused score falls below it.
	// Default: 0.1
	MinRelevance float64

	// ContextWindow is the result preview length in characters. Default: 200
	ContextWindow int

	// AI configures the embedding providers. Default: ai.DefaultConfig()
	AI *ai.Config

	// LocalOnly skips the remote embedding tier and embeds everything with
	// the deterministic local provider. Default: false
	LocalOnly bool

	// Monitor observes search stages. Default: none
	Monitor search.Monitor

	// Logger receives engine logs. Default: slog.Default()
	Logger *slog.Logger
}

// Option is a functional option for configuring an Engine.
type Option func(*Config)

// WithChunking sets the chunk size and overlap used during ingestion.
func WithChunking(size, overlap int) Option {
	return func(c *Config) {
		c.ChunkSize = size
		c.ChunkOverlap = overlap
	}
}

// WithWeights sets the fusion weights of the semantic and keyword legs.
func WithWeights(semantic, keyword float64) Option {
	return func(c *Config) {
		c.SemanticWeight = semantic
		c.KeywordWeight = keyword
	}
}

// WithMaxKeywords caps how many keywords are indexed per chunk.
func WithMaxKeywords(max int) Option {
	return func(c *Config) {
		c.MaxKeywords = max
	}
}

// WithCacheRetention sets how long unused query results stay cached.
func WithCacheRetention(retention time.Duration) Option {
	return func(c *Config) {
		c.CacheRetention = retention
	}
}

// WithOverfetch sets the candidate over-fetch multiplier of the retrieval
// legs.
func WithOverfetch(multiplier int) Option {
	return func(c *Config) {
		c.Overfetch = multiplier
	}
}

// WithBatchSize sets how many chunks are embedded per provider call.
func WithBatchSize(size int) Option {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithPoolSize sets the number of concurrent ingestion workers.
func WithPoolSize(size int) Option {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithLegTimeout bounds how long a single retrieval leg may run.
func WithLegTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.LegTimeout = timeout
	}
}

// WithMinRelevance sets the fused score below which results are dropped.
func WithMinRelevance(threshold float64) Option {
	return func(c *Config) {
		c.MinRelevance = threshold
	}
}

// WithContextWindow sets the result preview length in characters.
func WithContextWindow(window int) Option {
	return func(c *Config) {
		c.ContextWindow = window
	}
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(c *Config) {
		c.AI = config
	}
}

// WithLocalEmbeddingOnly disables the remote embedding tier. Every text is
// embedded by the deterministic local provider, so the engine runs without
// network access.
func WithLocalEmbeddingOnly() Option {
	return func(c *Config) {
		c.LocalOnly = true
	}
}

// WithSearchMonitor sets an observer for search stages.
func WithSearchMonitor(monitor search.Monitor) Option {
	return func(c *Config) {
		c.Monitor = monitor
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with the default retrieval settings.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
		MaxKeywords:    20,
		CacheRetention: time.Hour,
		Overfetch:      3,
		BatchSize:      10,
		PoolSize:       4,
		LegTimeout:     30 * time.Second,
		MinRelevance:   0.1,
		ContextWindow:  200,
		AI:             ai.DefaultConfig(),
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.ChunkOverlap < 0 {
		return errors.New("config: ChunkOverlap must not be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return errors.New("config: ChunkOverlap must be smaller than ChunkSize")
	}
	if c.SemanticWeight < 0 || c.KeywordWeight < 0 {
		return errors.New("config: fusion weights must not be negative")
	}
	if c.SemanticWeight+c.KeywordWeight == 0 {
		return errors.New("config: at least one fusion weight must be positive")
	}
	if c.MaxKeywords < 1 {
		return errors.New("config: MaxKeywords must be at least 1")
	}
	if c.CacheRetention <= 0 {
		return errors.New("config: CacheRetention must be positive")
	}
	if c.Overfetch < 1 {
		return errors.New("config: Overfetch must be at least 1")
	}
	if c.BatchSize < 1 {
		return errors.New("config: BatchSize must be at least 1")
	}
	if c.PoolSize < 1 {
		return errors.New("config: PoolSize must be at least 1")
	}
	if c.LegTimeout <= 0 {
		return errors.New("config: LegTimeout must be positive")
	}
	if c.MinRelevance < 0 || c.MinRelevance >= 1 {
		return errors.New("config: MinRelevance must be in [0, 1)")
	}
	if c.ContextWindow < 0 {
		return errors.New("config: ContextWindow must not be negative")
	}
	if c.AI == nil {
		return errors.New("config: AI configuration is required")
	}
	if c.LocalOnly {
		// Remote provider settings are unused offline.
		if c.AI.LocalDimension < 1 {
			return errors.New("config: AI.LocalDimension must be at least 1")
		}
		return nil
	}
	return c.AI.Validate()
}
