package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("connection reset")

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", NewTransientSubmitError("send", base), true},
		{"permanent", NewPermanentSubmitError("simulation_failed", base), false},
		{"unclassified", base, false},
		{"wrapped transient", fmt.Errorf("executor: %w", NewTransientSubmitError("send", base)), true},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Errorf("%s: IsTransient = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSubmitErrorUnwrap(t *testing.T) {
	base := errors.New("blockhash expired")
	err := NewTransientSubmitError("blockhash", base)

	if !errors.Is(err, base) {
		t.Error("SubmitError does not unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}

func TestPairKey(t *testing.T) {
	p := Pair{TokenA: "SOL", TokenB: "USDC"}
	if p.Key() != "SOL/USDC" {
		t.Errorf("Key = %q", p.Key())
	}
}

func TestQuoteValid(t *testing.T) {
	good := Quote{Venue: "orca", PriceAtoB: 1, PriceBtoA: 1, Liquidity: 10}
	if !good.Valid() {
		t.Error("good quote rejected")
	}

	cases := map[string]Quote{
		"no venue":       {PriceAtoB: 1, PriceBtoA: 1},
		"zero price":     {Venue: "orca", PriceAtoB: 0, PriceBtoA: 1},
		"negative price": {Venue: "orca", PriceAtoB: 1, PriceBtoA: -1},
		"negative depth": {Venue: "orca", PriceAtoB: 1, PriceBtoA: 1, Liquidity: -5},
		"negative fee":   {Venue: "orca", PriceAtoB: 1, PriceBtoA: 1, Fee: -1},
	}
	for name, q := range cases {
		if q.Valid() {
			t.Errorf("%s: invalid quote accepted", name)
		}
	}
}
