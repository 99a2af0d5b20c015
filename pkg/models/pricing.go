package models

// Rate prices one provider/model pair in USD per million tokens. Exactly one
// of Model and ModelPrefix should be set; exact model entries take precedence
// over prefix entries during lookup.
type Rate struct {
	Provider string `yaml:"provider" json:"provider"`

	Model       string `yaml:"model,omitempty" json:"model,omitempty"`
	ModelPrefix string `yaml:"model_prefix,omitempty" json:"model_prefix,omitempty"`

	InputPerMillionUSD  float64 `yaml:"input_per_million_usd" json:"input_per_million_usd"`
	OutputPerMillionUSD float64 `yaml:"output_per_million_usd" json:"output_per_million_usd"`

	CacheReadInputPerMillionUSD     *float64 `yaml:"cache_read_input_per_million_usd,omitempty" json:"cache_read_input_per_million_usd,omitempty"`
	CacheCreationInputPerMillionUSD *float64 `yaml:"cache_creation_input_per_million_usd,omitempty" json:"cache_creation_input_per_million_usd,omitempty"`
}

// PricingTable is the on-disk pricing file.
type PricingTable struct {
	Name     string `yaml:"name" json:"name"`
	Currency string `yaml:"currency" json:"currency"`
	Rates    []Rate `yaml:"rates" json:"rates"`
}
