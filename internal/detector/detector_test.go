package detector

import (
	"errors"
	"testing"
	"time"

	"github.com/dmarkhas/solarbot/internal/domain"
)

func quote(venue string, atob, btoa, liquidity float64) domain.Quote {
	return domain.Quote{
		Venue:     venue,
		PriceAtoB: atob,
		PriceBtoA: btoa,
		Liquidity: liquidity,
		FetchedAt: time.Now(),
	}
}

func pairCfg(minProfit float64) domain.PairConfig {
	return domain.PairConfig{
		TokenA:           "SOL",
		TokenB:           "USDC",
		MinProfitPercent: minProfit,
		Enabled:          true,
	}
}

func TestDetectFindsSpread(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	quotes := []domain.Quote{
		quote("orca", 1.00, 1.01, 1_000_000),
		quote("raydium", 1.02, 0.99, 1_000_000),
	}

	opp, err := d.Detect(quotes, pairCfg(0.5))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.BuyVenue != "orca" {
		t.Errorf("buy venue = %q, want orca", opp.BuyVenue)
	}
	if opp.SellVenue != "orca" {
		t.Errorf("sell venue = %q, want orca", opp.SellVenue)
	}
	if got, want := opp.GrossProfitPercent, 1.0; !closeTo(got, want) {
		t.Errorf("gross = %v, want %v", got, want)
	}
	if opp.Amount != 50_000 {
		t.Errorf("amount = %d, want 50000", opp.Amount)
	}
	if got, want := opp.MinProfitAbsolute, 250.0; !closeTo(got, want) {
		t.Errorf("min profit absolute = %v, want %v", got, want)
	}
	if opp.ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestDetectFeeNetting(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	buy := quote("orca", 1.00, 0.98, 1_000_000)
	buy.Fee = 100
	sell := quote("raydium", 1.02, 1.01, 1_000_000)
	sell.Fee = 100

	opp, err := d.Detect([]domain.Quote{buy, sell}, pairCfg(0.5))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	// gross 1%, fees 200 over amount 50000 cost 0.4%, net 0.6%.
	if got, want := opp.NetProfitPercent, 0.6; !closeTo(got, want) {
		t.Errorf("net = %v, want %v", got, want)
	}
	if got, want := opp.ExpectedFee, 200.0; !closeTo(got, want) {
		t.Errorf("expected fee = %v, want %v", got, want)
	}
}

func TestDetectBelowThreshold(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	quotes := []domain.Quote{
		quote("orca", 1.00, 1.001, 1_000_000),
		quote("raydium", 1.01, 0.99, 1_000_000),
	}

	// gross 0.1% is below the 0.5% threshold.
	opp, err := d.Detect(quotes, pairCfg(0.5))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp != nil {
		t.Fatalf("expected no opportunity, got %+v", opp)
	}
}

func TestDetectNoSpread(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	quotes := []domain.Quote{
		quote("orca", 1.00, 0.99, 1_000_000),
		quote("raydium", 1.00, 0.98, 1_000_000),
	}

	opp, err := d.Detect(quotes, pairCfg(0.1))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp != nil {
		t.Fatalf("expected no opportunity, got %+v", opp)
	}
}

func TestDetectInsufficientQuotes(t *testing.T) {
	d := New(Config{})

	for _, quotes := range [][]domain.Quote{
		nil,
		{quote("orca", 1.0, 1.0, 1_000_000)},
	} {
		_, err := d.Detect(quotes, pairCfg(0.5))
		if !errors.Is(err, domain.ErrInsufficientQuotes) {
			t.Errorf("Detect(%d quotes) err = %v, want ErrInsufficientQuotes", len(quotes), err)
		}
	}
}

func TestDetectTieBreakFirstEncountered(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	quotes := []domain.Quote{
		quote("orca", 1.00, 1.01, 1_000_000),
		quote("raydium", 1.00, 1.01, 1_000_000),
	}

	for i := 0; i < 5; i++ {
		opp, err := d.Detect(quotes, pairCfg(0.5))
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if opp == nil {
			t.Fatal("expected an opportunity")
		}
		if opp.BuyVenue != "orca" || opp.SellVenue != "orca" {
			t.Fatalf("tie broke to %s/%s, want orca/orca", opp.BuyVenue, opp.SellVenue)
		}
	}
}

func TestDetectAmountCaps(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	buy := quote("orca", 1.00, 0.98, 1_000_000)
	buy.MaxAmount = 10_000
	sell := quote("raydium", 1.05, 1.10, 2_000_000)

	cfg := pairCfg(0.5)
	cfg.MaxAmount = 8_000

	opp, err := d.Detect([]domain.Quote{buy, sell}, cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	// Pair cap is tighter than both the liquidity fraction and the quote cap.
	if opp.Amount != 8_000 {
		t.Errorf("amount = %d, want 8000", opp.Amount)
	}
}

func TestDetectZeroSize(t *testing.T) {
	d := New(Config{LiquidityFraction: 0.05})

	quotes := []domain.Quote{
		quote("orca", 1.00, 0.98, 0),
		quote("raydium", 1.05, 1.10, 1_000_000),
	}

	opp, err := d.Detect(quotes, pairCfg(0.5))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if opp != nil {
		t.Fatalf("expected no opportunity at zero size, got %+v", opp)
	}
}

func closeTo(got, want float64) bool {
	const eps = 1e-9
	diff := got - want
	return diff < eps && diff > -eps
}
