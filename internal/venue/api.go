package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// probeAmount is the input size (in TokenA smallest units) used to probe the
// venue's quote endpoint for an effective price.
const probeAmount uint64 = 1_000_000_000

// APISource fetches quotes from a venue's HTTP quote API (Jupiter-style
// /quote endpoint).
type APISource struct {
	name       string
	baseURL    string
	feeBps     float64
	httpClient *http.Client
}

// NewAPISource creates an APISource for the given quote API root.
func NewAPISource(name, baseURL string, feeBps float64) *APISource {
	return &APISource{
		name:    name,
		baseURL: baseURL,
		feeBps:  feeBps,
		// Per-request deadlines come from the caller's context; the client
		// timeout is only a safety net.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the venue identifier.
func (s *APISource) Name() string {
	return s.name
}

// quoteResponse is the venue's /quote payload. Amount fields are decimal
// strings in smallest units.
type quoteResponse struct {
	InAmount  string  `json:"inAmount"`
	OutAmount string  `json:"outAmount"`
	Liquidity float64 `json:"liquidity"`
	MaxAmount string  `json:"maxAmount"`
	FeeAmount float64 `json:"feeAmount"`
}

// FetchQuote queries both directions of the pair and assembles a Quote.
func (s *APISource) FetchQuote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	fwd, err := s.quoteOnce(ctx, pair.TokenA, pair.TokenB)
	if err != nil {
		return domain.Quote{}, err
	}
	rev, err := s.quoteOnce(ctx, pair.TokenB, pair.TokenA)
	if err != nil {
		return domain.Quote{}, err
	}

	priceAtoB, err := effectivePrice(fwd)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue %s: %s->%s: %w", s.name, pair.TokenA, pair.TokenB, err)
	}
	priceBtoA, err := effectivePrice(rev)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("venue %s: %s->%s: %w", s.name, pair.TokenB, pair.TokenA, err)
	}

	maxAmount := 0.0
	if fwd.MaxAmount != "" {
		if v, err := strconv.ParseFloat(fwd.MaxAmount, 64); err == nil && v > 0 {
			maxAmount = v
		}
	}

	fee := fwd.FeeAmount
	if fee == 0 && s.feeBps > 0 {
		fee = float64(probeAmount) * s.feeBps / 10_000
	}

	q := domain.Quote{
		Venue:     s.name,
		PriceAtoB: priceAtoB,
		PriceBtoA: priceBtoA,
		Liquidity: fwd.Liquidity,
		MaxAmount: maxAmount,
		Fee:       fee,
		FetchedAt: time.Now().UTC(),
	}
	if !q.Valid() {
		return domain.Quote{}, fmt.Errorf("venue %s: %w", s.name, domain.ErrMalformedQuote)
	}
	return q, nil
}

// quoteOnce fetches one direction's quote for the probe amount.
func (s *APISource) quoteOnce(ctx context.Context, inputMint, outputMint string) (quoteResponse, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(probeAmount, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return quoteResponse{}, fmt.Errorf("venue %s: build quote request: %w", s.name, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return quoteResponse{}, fmt.Errorf("venue %s: quote request: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return quoteResponse{}, fmt.Errorf("venue %s: read quote response: %w", s.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return quoteResponse{}, fmt.Errorf("venue %s: quote: unexpected status %d: %s", s.name, resp.StatusCode, body)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return quoteResponse{}, fmt.Errorf("venue %s: decode quote: %w", s.name, err)
	}
	return qr, nil
}

// effectivePrice computes outAmount/inAmount from a single-direction quote.
func effectivePrice(qr quoteResponse) (float64, error) {
	in, err := strconv.ParseFloat(qr.InAmount, 64)
	if err != nil || in <= 0 {
		return 0, fmt.Errorf("bad inAmount %q: %w", qr.InAmount, domain.ErrMalformedQuote)
	}
	out, err := strconv.ParseFloat(qr.OutAmount, 64)
	if err != nil || out <= 0 {
		return 0, fmt.Errorf("bad outAmount %q: %w", qr.OutAmount, domain.ErrMalformedQuote)
	}
	return out / in, nil
}

// Compile-time interface check.
var _ domain.QuoteSource = (*APISource)(nil)
