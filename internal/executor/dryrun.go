package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmarkhas/solarbot/internal/domain"
)

// DryRunSubmitter logs opportunities instead of trading them. Used in
// monitor mode so the whole pipeline runs without touching the chain.
type DryRunSubmitter struct {
	logger *slog.Logger
}

func NewDryRunSubmitter(logger *slog.Logger) *DryRunSubmitter {
	return &DryRunSubmitter{logger: logger.With("component", "dryrun")}
}

// Submit logs the would-be trade and returns a synthetic transaction ID.
func (s *DryRunSubmitter) Submit(_ context.Context, opp domain.Opportunity) (string, error) {
	txID := fmt.Sprintf("dryrun-%s", uuid.NewString())
	s.logger.Info("dry run, not submitting",
		"pair", opp.Pair.Key(),
		"buy_venue", opp.BuyVenue,
		"sell_venue", opp.SellVenue,
		"amount", opp.Amount,
		"net_profit_percent", opp.NetProfitPercent)
	return txID, nil
}

var _ domain.Submitter = (*DryRunSubmitter)(nil)
