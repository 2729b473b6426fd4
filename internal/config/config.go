// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Kernel() KernelConfig
	Graph() GraphConfig
	Intent() IntentConfig
	Attention() AttentionConfig
	Reflection() ReflectionConfig
	Curiosity() CuriosityConfig
	Store() StoreConfig

	SetDataDir(dir string)
	SetRNGSeed(seed uint64)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	KernelCfg     KernelConfig     `mapstructure:"kernel" yaml:"kernel"`
	GraphCfg      GraphConfig      `mapstructure:"graph" yaml:"graph"`
	IntentCfg     IntentConfig     `mapstructure:"intent" yaml:"intent"`
	AttentionCfg  AttentionConfig  `mapstructure:"attention" yaml:"attention"`
	ReflectionCfg ReflectionConfig `mapstructure:"reflection" yaml:"reflection"`
	CuriosityCfg  CuriosityConfig  `mapstructure:"curiosity" yaml:"curiosity"`
	StoreCfg      StoreConfig      `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Kernel() KernelConfig         { return c.KernelCfg }
func (c *Config) Graph() GraphConfig           { return c.GraphCfg }
func (c *Config) Intent() IntentConfig         { return c.IntentCfg }
func (c *Config) Attention() AttentionConfig   { return c.AttentionCfg }
func (c *Config) Reflection() ReflectionConfig { return c.ReflectionCfg }
func (c *Config) Curiosity() CuriosityConfig   { return c.CuriosityCfg }
func (c *Config) Store() StoreConfig           { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetDataDir(dir string)  { c.KernelCfg.DataDir = dir }
func (c *Config) SetRNGSeed(seed uint64) { c.KernelCfg.RNGSeed = seed }

// LoggerConfig holds settings for the zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// KernelConfig holds settings for the turn loop and its files.
type KernelConfig struct {
	DataDir      string `mapstructure:"data_dir" yaml:"data_dir"`
	MemoryFile   string `mapstructure:"memory_file" yaml:"memory_file"`
	PatternsFile string `mapstructure:"patterns_file" yaml:"patterns_file"`
	// RNGSeed seeds template selection. Zero picks a time based seed.
	RNGSeed       uint64 `mapstructure:"rng_seed" yaml:"rng_seed"`
	WatchPatterns bool   `mapstructure:"watch_patterns" yaml:"watch_patterns"`
	// CheckpointRate is the number of learning checkpoints allowed per second.
	CheckpointRate  float64 `mapstructure:"checkpoint_rate" yaml:"checkpoint_rate"`
	CheckpointBurst int     `mapstructure:"checkpoint_burst" yaml:"checkpoint_burst"`
	BusBufferSize   int     `mapstructure:"bus_buffer_size" yaml:"bus_buffer_size"`
	HistorySize     int     `mapstructure:"history_size" yaml:"history_size"`
}

// MemoryPath returns the absolute location of the graph snapshot.
func (k KernelConfig) MemoryPath() string {
	return filepath.Join(k.DataDir, k.MemoryFile)
}

// PatternsPath returns the absolute location of the template file.
func (k KernelConfig) PatternsPath() string {
	return filepath.Join(k.DataDir, k.PatternsFile)
}

// GraphConfig holds activation dynamics.
type GraphConfig struct {
	DecayFactor    float64 `mapstructure:"decay_factor" yaml:"decay_factor"`
	SpreadDecay    float64 `mapstructure:"spread_decay" yaml:"spread_decay"`
	PerceiveAmount float64 `mapstructure:"perceive_amount" yaml:"perceive_amount"`
	MaxSpreadDepth int     `mapstructure:"max_spread_depth" yaml:"max_spread_depth"`
	ContextWindow  int     `mapstructure:"context_window" yaml:"context_window"`
}

// IntentConfig holds classification thresholds.
type IntentConfig struct {
	SemanticTrust      float64 `mapstructure:"semantic_trust" yaml:"semantic_trust"`
	SemanticCrossCheck float64 `mapstructure:"semantic_crosscheck" yaml:"semantic_crosscheck"`
	FuzzyThreshold     float64 `mapstructure:"fuzzy_threshold" yaml:"fuzzy_threshold"`
	ActivationResidue  float64 `mapstructure:"activation_residue" yaml:"activation_residue"`
	MinConfidence      float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// AttentionConfig holds working memory settings.
type AttentionConfig struct {
	MinRelevance   float64 `mapstructure:"min_relevance" yaml:"min_relevance"`
	Capacity       int     `mapstructure:"capacity" yaml:"capacity"`
	GatingFactor   float64 `mapstructure:"gating_factor" yaml:"gating_factor"`
	HighActivation float64 `mapstructure:"high_activation" yaml:"high_activation"`
}

// ReflectionConfig holds settings for the idle maintenance cycle.
type ReflectionConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	CheckInterval        time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	RewardThreshold      float64       `mapstructure:"reward_threshold" yaml:"reward_threshold"`
	SimilarityThreshold  float64       `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	PruneActivation      float64       `mapstructure:"prune_activation" yaml:"prune_activation"`
	PruneAge             time.Duration `mapstructure:"prune_age" yaml:"prune_age"`
	WeakEdgeThreshold    float64       `mapstructure:"weak_edge_threshold" yaml:"weak_edge_threshold"`
	InteractionWindow    int           `mapstructure:"interaction_window" yaml:"interaction_window"`
	BeliefRewardStrength float64       `mapstructure:"belief_reward_strength" yaml:"belief_reward_strength"`
}

// CuriosityConfig holds the unknown-input policy settings.
type CuriosityConfig struct {
	TeachAfter      int           `mapstructure:"teach_after" yaml:"teach_after"`
	FrequencyTTL    time.Duration `mapstructure:"frequency_ttl" yaml:"frequency_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval" yaml:"janitor_interval"`
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds the connection details for the PostgreSQL backend.
type PostgresConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "genesis")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Kernel --
	v.SetDefault("kernel.data_dir", "~/.genesis")
	v.SetDefault("kernel.memory_file", "memory.json")
	v.SetDefault("kernel.patterns_file", "patterns.json")
	v.SetDefault("kernel.rng_seed", 0)
	v.SetDefault("kernel.watch_patterns", false)
	v.SetDefault("kernel.checkpoint_rate", 0.2)
	v.SetDefault("kernel.checkpoint_burst", 3)
	v.SetDefault("kernel.bus_buffer_size", 64)
	v.SetDefault("kernel.history_size", 50)

	// -- Graph --
	v.SetDefault("graph.decay_factor", 0.9)
	v.SetDefault("graph.spread_decay", 0.5)
	v.SetDefault("graph.perceive_amount", 1.0)
	v.SetDefault("graph.max_spread_depth", 16)
	v.SetDefault("graph.context_window", 10)

	// -- Intent --
	v.SetDefault("intent.semantic_trust", 0.7)
	v.SetDefault("intent.semantic_crosscheck", 0.5)
	v.SetDefault("intent.fuzzy_threshold", 0.5)
	v.SetDefault("intent.activation_residue", 0.1)
	v.SetDefault("intent.min_confidence", 0.3)

	// -- Attention --
	v.SetDefault("attention.min_relevance", 0.3)
	v.SetDefault("attention.capacity", 20)
	v.SetDefault("attention.gating_factor", 0.2)
	v.SetDefault("attention.high_activation", 0.8)

	// -- Reflection --
	v.SetDefault("reflection.enabled", true)
	v.SetDefault("reflection.idle_timeout", "60s")
	v.SetDefault("reflection.check_interval", "5s")
	v.SetDefault("reflection.reward_threshold", 0.7)
	v.SetDefault("reflection.similarity_threshold", 0.7)
	v.SetDefault("reflection.prune_activation", 0.0)
	v.SetDefault("reflection.prune_age", "24h")
	v.SetDefault("reflection.weak_edge_threshold", 0.05)
	v.SetDefault("reflection.interaction_window", 200)
	v.SetDefault("reflection.belief_reward_strength", 0.1)

	// -- Curiosity --
	v.SetDefault("curiosity.teach_after", 3)
	v.SetDefault("curiosity.frequency_ttl", "24h")
	v.SetDefault("curiosity.janitor_interval", "10m")

	// -- Store --
	v.SetDefault("store.type", "file")
	v.SetDefault("store.postgres.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("store.postgres.url", "GENESIS_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	dir, err := homedir.Expand(cfg.KernelCfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand kernel.data_dir: %w", err)
	}
	cfg.KernelCfg.DataDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.KernelCfg.DataDir == "" {
		return fmt.Errorf("kernel.data_dir is a required configuration field")
	}
	if c.KernelCfg.MemoryFile == "" || c.KernelCfg.PatternsFile == "" {
		return fmt.Errorf("kernel.memory_file and kernel.patterns_file are required")
	}
	if err := c.GraphCfg.Validate(); err != nil {
		return fmt.Errorf("graph configuration invalid: %w", err)
	}
	if err := c.IntentCfg.Validate(); err != nil {
		return fmt.Errorf("intent configuration invalid: %w", err)
	}
	if c.AttentionCfg.Capacity <= 0 {
		return fmt.Errorf("attention.capacity must be a positive integer")
	}
	if err := c.ReflectionCfg.Validate(); err != nil {
		return fmt.Errorf("reflection configuration invalid: %w", err)
	}
	if err := c.StoreCfg.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the activation dynamics.
func (g *GraphConfig) Validate() error {
	if g.DecayFactor <= 0 || g.DecayFactor >= 1 {
		return fmt.Errorf("decay_factor must be in (0, 1)")
	}
	if g.SpreadDecay <= 0 || g.SpreadDecay >= 1 {
		return fmt.Errorf("spread_decay must be in (0, 1)")
	}
	if g.MaxSpreadDepth <= 0 {
		return fmt.Errorf("max_spread_depth must be a positive integer")
	}
	if g.ContextWindow <= 0 {
		return fmt.Errorf("context_window must be a positive integer")
	}
	return nil
}

// Validate checks the classification thresholds.
func (i *IntentConfig) Validate() error {
	if i.SemanticCrossCheck > i.SemanticTrust {
		return fmt.Errorf("semantic_crosscheck must not exceed semantic_trust")
	}
	if i.FuzzyThreshold <= 0 || i.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1]")
	}
	if i.ActivationResidue < 0 || i.ActivationResidue > 1 {
		return fmt.Errorf("activation_residue must be between 0.0 and 1.0")
	}
	return nil
}

// Validate checks the reflection settings.
func (r *ReflectionConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be a positive duration")
	}
	if r.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be a positive duration")
	}
	return nil
}

// Validate checks the snapshot backend selection.
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case "file":
		return nil
	case "postgres":
		if s.Postgres.URL == "" {
			return fmt.Errorf("store.postgres.url is required when store.type is postgres")
		}
		return nil
	default:
		return fmt.Errorf("unsupported store.type '%s'", s.Type)
	}
}
