package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials resolves provider tokens. Lookup order: process environment,
// the .env file, the api_key field of the config file, the key file
// <Dir>/<provider>_api_key.txt.
type Credentials struct {
	Dir        string
	DotEnvPath string

	getenv func(string) string
	dotenv map[string]string
}

// NewCredentials returns a store rooted at dir that also reads dotEnvPath
// when it exists.
func NewCredentials(dir, dotEnvPath string) (*Credentials, error) {
	c := &Credentials{
		Dir:        dir,
		DotEnvPath: dotEnvPath,
		getenv:     os.Getenv,
	}

	if dotEnvPath != "" {
		values, err := godotenv.Read(dotEnvPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", dotEnvPath, err)
		default:
			c.dotenv = values
		}
	}
	return c, nil
}

// KeyPath returns the key file for providerID.
func (c *Credentials) KeyPath(providerID string) string {
	return filepath.Join(c.Dir, strings.ToLower(providerID)+"_api_key.txt")
}

// Lookup returns the token for p, or "" when none is stored anywhere.
func (c *Credentials) Lookup(p *Provider) (string, error) {
	env := p.TokenEnv()
	if v := strings.TrimSpace(c.getenv(env)); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(c.dotenv[env]); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(p.APIKey); v != "" {
		return v, nil
	}

	data, err := os.ReadFile(c.KeyPath(p.ID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key file for %s: %w", p.ID, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes token to the provider's key file with owner-only permissions.
func (c *Credentials) Save(providerID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty API key for %s", providerID)
	}
	if err := os.MkdirAll(c.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.WriteFile(c.KeyPath(providerID), []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Resolve fills Provider.Token for every provider in cfg.
func (c *Credentials) Resolve(cfg *Config) error {
	for _, id := range cfg.ProviderIDs() {
		p := cfg.Providers[id]
		token, err := c.Lookup(p)
		if err != nil {
			return err
		}
		p.Token = token
	}
	return nil
}
