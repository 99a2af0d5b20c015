package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/satbench-ai/satbench/pkg/models"
	"gopkg.in/yaml.v3"
)

// Table resolves (provider, model) pairs to rates.
type Table struct {
	table models.PricingTable
}

// Load reads a pricing table YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}
	var t models.PricingTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}
	if t.Currency != "" && t.Currency != "USD" {
		return nil, fmt.Errorf("pricing table currency %q not supported", t.Currency)
	}
	return &Table{table: t}, nil
}

// New wraps an in-memory pricing table.
func New(t models.PricingTable) *Table {
	return &Table{table: t}
}

// Lookup returns the rate for a provider/model pair. Exact model entries win
// over prefix entries; among prefix entries the longest matching prefix wins.
// Returns nil when nothing matches.
func (t *Table) Lookup(provider, model string) *models.Rate {
	if t == nil {
		return nil
	}
	var best *models.Rate
	bestLen := -1
	for i := range t.table.Rates {
		r := &t.table.Rates[i]
		if r.Provider != provider {
			continue
		}
		if r.Model != "" && r.Model == model {
			return r
		}
		if r.ModelPrefix != "" && strings.HasPrefix(model, r.ModelPrefix) && len(r.ModelPrefix) > bestLen {
			best = r
			bestLen = len(r.ModelPrefix)
		}
	}
	return best
}

// Cost holds the USD breakdown for one usage record.
type Cost struct {
	InputUSD     float64
	OutputUSD    float64
	ReasoningUSD float64
	TotalUSD     float64
}

// Compute prices normalized usage against a rate. Cache reads and creations
// are billed only when the rate carries the corresponding field. Reasoning
// tokens are estimated at the output rate but not added to the total, since
// providers that bill them do so inside output_tokens.
func Compute(usage *models.Usage, rate *models.Rate) Cost {
	if usage == nil || rate == nil {
		return Cost{}
	}
	c := Cost{
		InputUSD:     float64(usage.Input()) / 1e6 * rate.InputPerMillionUSD,
		OutputUSD:    float64(usage.Output()) / 1e6 * rate.OutputPerMillionUSD,
		ReasoningUSD: float64(usage.Reasoning()) / 1e6 * rate.OutputPerMillionUSD,
	}
	c.TotalUSD = c.InputUSD + c.OutputUSD
	if rate.CacheReadInputPerMillionUSD != nil {
		c.TotalUSD += float64(usage.CacheRead()) / 1e6 * *rate.CacheReadInputPerMillionUSD
	}
	if rate.CacheCreationInputPerMillionUSD != nil {
		c.TotalUSD += float64(usage.CacheCreation()) / 1e6 * *rate.CacheCreationInputPerMillionUSD
	}
	return c
}
