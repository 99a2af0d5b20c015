package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderSecret holds one provider's credentials.
type ProviderSecret struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Secrets maps provider name to credentials. Environment variables of the
// form <PROVIDER>_API_KEY overlay the file contents.
type Secrets map[string]ProviderSecret

// LoadSecrets reads an optional secrets file and applies the environment
// overlay. A missing path yields an environment-only Secrets map.
func LoadSecrets(path string) (Secrets, error) {
	secrets := Secrets{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &secrets); err != nil {
			return nil, fmt.Errorf("parse secrets: %w", err)
		}
	}

	for _, provider := range []string{"openai", "anthropic", "gemini"} {
		env := strings.ToUpper(provider) + "_API_KEY"
		if v := os.Getenv(env); v != "" {
			s := secrets[provider]
			s.APIKey = v
			secrets[provider] = s
		}
	}
	return secrets, nil
}

// APIKey returns the configured key for a provider, or empty.
func (s Secrets) APIKey(provider string) string {
	return s[provider].APIKey
}
