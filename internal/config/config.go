package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".tweak"
	ConfigFileName = "config.yaml"
	TOMLFileName   = "config.toml"
	HistoryDBName  = "history.db"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "TWEAK_CONFIG"
	// EnvProvider overrides DefaultProvider.
	EnvProvider = "TWEAK_PROVIDER"
)

// Family identifies a wire format. Providers of the same family share a client implementation.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyOllama    Family = "ollama"
)

// Provider describes one configured LLM backend.
type Provider struct {
	ID        string            `yaml:"-" toml:"-"`
	Family    Family            `yaml:"family" toml:"family"`
	BaseURL   string            `yaml:"base_url" toml:"base_url"`
	APIKey    string            `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	APIKeyEnv string            `yaml:"api_key_env,omitempty" toml:"api_key_env,omitempty"`
	Models    []string          `yaml:"models" toml:"models"`
	Headers   map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty"`

	// Token is the resolved credential. It is never serialized.
	Token string `yaml:"-" toml:"-"`
}

// DefaultModel returns the first configured model, or "" when there is none.
func (p *Provider) DefaultModel() string {
	if len(p.Models) == 0 {
		return ""
	}
	return p.Models[0]
}

// TokenEnv returns the environment variable holding this provider's key.
func (p *Provider) TokenEnv() string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	id := strings.NewReplacer("-", "_", ".", "_").Replace(p.ID)
	return strings.ToUpper(id) + "_API_KEY"
}

// Generation holds the sampling parameters sent with every completion.
type Generation struct {
	MaxTokens   int           `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64       `yaml:"temperature" toml:"temperature"`
	TopP        float64       `yaml:"top_p" toml:"top_p"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
}

// Retry bounds the orchestrator's transport retries.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" toml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" toml:"max_delay"`
}

// History controls the local session log.
type History struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DefaultProvider string               `yaml:"default_provider" toml:"default_provider"`
	Providers       map[string]*Provider `yaml:"providers" toml:"providers"`
	Generation      Generation           `yaml:"generation" toml:"generation"`
	Retry           Retry                `yaml:"retry" toml:"retry"`
	BackupSuffix    string               `yaml:"backup_suffix" toml:"backup_suffix"`
	History         *History             `yaml:"history" toml:"history"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultProvider: "hyperbolic",
		Providers: map[string]*Provider{
			"hyperbolic": {
				Family:  FamilyOpenAI,
				BaseURL: "https://api.hyperbolic.xyz/v1",
				Models: []string{
					"meta-llama/Meta-Llama-3.1-405B-Instruct",
					"NousResearch/Hermes-3-Llama-3.1-70B",
					"meta-llama/Meta-Llama-3.1-70B-Instruct",
					"meta-llama/Meta-Llama-3.1-8B-Instruct",
					"meta-llama/Meta-Llama-3-70B-Instruct",
				},
			},
			"openrouter": {
				Family:  FamilyOpenAI,
				BaseURL: "https://openrouter.ai/api/v1",
				Models: []string{
					"nousresearch/hermes-3-llama-3.1-405b",
					"meta-llama/llama-3.1-405b-instruct",
					"meta-llama/llama-3.1-70b-instruct",
					"meta-llama/llama-3.1-8b-instruct",
				},
				Headers: map[string]string{
					"HTTP-Referer": "https://github.com/iishyfishyy/tweak",
					"X-Title":      "tweak",
				},
			},
			"anthropic": {
				Family:  FamilyAnthropic,
				BaseURL: "https://api.anthropic.com/v1",
				Models: []string{
					"claude-3-5-sonnet-latest",
					"claude-3-5-haiku-latest",
				},
			},
			"ollama": {
				Family:  FamilyOllama,
				BaseURL: "http://localhost:11434",
				Models:  []string{"llama3.1"},
			},
		},
		Generation: Generation{
			MaxTokens:   2048,
			Temperature: 0.7,
			TopP:        0.9,
			Timeout:     2 * time.Minute,
		},
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    8 * time.Second,
		},
		BackupSuffix: ".bak",
		History:      &History{Enabled: true},
	}
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the config file to use: $TWEAK_CONFIG, then
// ~/.tweak/config.yaml, then ~/.tweak/config.toml if only that one exists.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	yamlPath := filepath.Join(configDir, ConfigFileName)
	tomlPath := filepath.Join(configDir, TOMLFileName)
	if _, err := os.Stat(yamlPath); errors.Is(err, fs.ErrNotExist) {
		if _, err := os.Stat(tomlPath); err == nil {
			return tomlPath, nil
		}
	}
	return yamlPath, nil
}

// Load reads the configuration at path and layers it over Default.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		var file Config
		if err := decode(path, data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.merge(&file)
	}

	if v := os.Getenv(EnvProvider); v != "" {
		cfg.DefaultProvider = v
	}

	cfg.finalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, out *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), out)
		return err
	}
	return yaml.Unmarshal(data, out)
}

// merge overlays non-zero fields of file onto c. Providers are merged by id;
// an entry with an id unknown to the defaults is added as is.
func (c *Config) merge(file *Config) {
	if file.DefaultProvider != "" {
		c.DefaultProvider = file.DefaultProvider
	}
	for id, fp := range file.Providers {
		if fp == nil {
			continue
		}
		base, ok := c.Providers[id]
		if !ok {
			c.Providers[id] = fp
			continue
		}
		if fp.Family != "" {
			base.Family = fp.Family
		}
		if fp.BaseURL != "" {
			base.BaseURL = fp.BaseURL
		}
		if fp.APIKey != "" {
			base.APIKey = fp.APIKey
		}
		if fp.APIKeyEnv != "" {
			base.APIKeyEnv = fp.APIKeyEnv
		}
		if len(fp.Models) > 0 {
			base.Models = fp.Models
		}
		for k, v := range fp.Headers {
			if base.Headers == nil {
				base.Headers = map[string]string{}
			}
			base.Headers[k] = v
		}
	}

	g := file.Generation
	if g.MaxTokens != 0 {
		c.Generation.MaxTokens = g.MaxTokens
	}
	if g.Temperature != 0 {
		c.Generation.Temperature = g.Temperature
	}
	if g.TopP != 0 {
		c.Generation.TopP = g.TopP
	}
	if g.Timeout != 0 {
		c.Generation.Timeout = g.Timeout
	}

	r := file.Retry
	if r.MaxAttempts != 0 {
		c.Retry.MaxAttempts = r.MaxAttempts
	}
	if r.BaseDelay != 0 {
		c.Retry.BaseDelay = r.BaseDelay
	}
	if r.MaxDelay != 0 {
		c.Retry.MaxDelay = r.MaxDelay
	}

	if file.BackupSuffix != "" {
		c.BackupSuffix = file.BackupSuffix
	}
	if file.History != nil {
		c.History = file.History
	}
}

// finalize stamps provider ids and trims trailing slashes from base URLs.
func (c *Config) finalize() {
	for id, p := range c.Providers {
		p.ID = id
		p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}
	for id, p := range c.Providers {
		switch p.Family {
		case FamilyOpenAI, FamilyAnthropic, FamilyOllama:
		default:
			return fmt.Errorf("provider %s: unknown family %q", id, p.Family)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider %s: base_url is required", id)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must be >= 0")
	}
	if c.Generation.Timeout < 0 {
		return fmt.Errorf("generation.timeout must be >= 0, got %v", c.Generation.Timeout)
	}
	return nil
}

// Provider returns the provider with the given id.
func (c *Config) Provider(id string) (*Provider, bool) {
	p, ok := c.Providers[id]
	return p, ok
}

// ProviderIDs returns the configured provider ids in sorted order.
func (c *Config) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HistoryPath returns the history database location.
func (c *Config) HistoryPath() (string, error) {
	if c.History != nil && c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HistoryDBName), nil
}

// Save writes the configuration to path as YAML, or TOML for a .toml path.
// Resolved tokens are not written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(b.String())
	} else {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = out
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// HistoryEnabled reports whether sessions should be logged.
func (c *Config) HistoryEnabled() bool {
	return c.History != nil && c.History.Enabled
}
