// Package venue implements domain.QuoteSource for the supported venue
// transports. The transport is selected once at configuration-load time;
// the pipeline only ever sees the QuoteSource capability.
package venue

import (
	"fmt"

	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/solana"
)

// Transport names accepted in venue configuration.
const (
	TransportAPI     = "api"
	TransportOnChain = "onchain"
)

// Config describes one venue to construct a QuoteSource for.
type Config struct {
	Name string
	Type string

	// APIURL is the quote API root for api venues.
	APIURL string

	// Pools maps pair keys ("mintA/mintB") to pool accounts for onchain venues.
	Pools map[string]string

	// FeeBps is used to estimate the absolute fee when the venue does not
	// report one.
	FeeBps float64
}

// New constructs the QuoteSource for a single venue config.
func New(cfg Config, rpc *solana.Client) (domain.QuoteSource, error) {
	switch cfg.Type {
	case TransportAPI:
		if cfg.APIURL == "" {
			return nil, fmt.Errorf("venue %q: api_url is required", cfg.Name)
		}
		return NewAPISource(cfg.Name, cfg.APIURL, cfg.FeeBps), nil

	case TransportOnChain:
		if rpc == nil {
			return nil, fmt.Errorf("venue %q: rpc client is required for onchain transport", cfg.Name)
		}
		if len(cfg.Pools) == 0 {
			return nil, fmt.Errorf("venue %q: at least one pool is required", cfg.Name)
		}
		return NewOnChainSource(cfg.Name, rpc, cfg.Pools, cfg.FeeBps), nil

	default:
		return nil, fmt.Errorf("venue %q: unknown transport %q", cfg.Name, cfg.Type)
	}
}

// BuildSources constructs QuoteSources for all configs, preserving order.
// Order matters: the detector's tie-break is first-encountered.
func BuildSources(cfgs []Config, rpc *solana.Client) ([]domain.QuoteSource, error) {
	sources := make([]domain.QuoteSource, 0, len(cfgs))
	for _, cfg := range cfgs {
		src, err := New(cfg, rpc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
