package executor

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/solana"
	"github.com/dmarkhas/solarbot/internal/wallet"
)

// PoolResolver maps a venue and pair to the venue's pool state account.
type PoolResolver interface {
	ResolvePool(venue string, pair domain.Pair) (string, bool)
}

// OnChainSubmitter submits arbitrage transactions to the on-chain program.
type OnChainSubmitter struct {
	rpc        *solana.Client
	keypair    wallet.Keypair
	programID  string
	pools      PoolResolver
	maxRetries int
	logger     *slog.Logger
}

// NewOnChainSubmitter creates a live submitter signing with the given wallet.
func NewOnChainSubmitter(rpc *solana.Client, kp wallet.Keypair, programID string, pools PoolResolver, maxRetries int, logger *slog.Logger) *OnChainSubmitter {
	return &OnChainSubmitter{
		rpc:        rpc,
		keypair:    kp,
		programID:  programID,
		pools:      pools,
		maxRetries: maxRetries,
		logger:     logger.With("component", "submitter"),
	}
}

// instructionDiscriminator derives the 8-byte Anchor discriminator for a
// global instruction name.
func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// Submit builds, signs, sends, and confirms the arbitrage transaction.
// Errors are classified so the orchestrator can decide whether to retry:
// network and blockhash trouble is transient, program rejection is not.
func (s *OnChainSubmitter) Submit(ctx context.Context, opp domain.Opportunity) (string, error) {
	buyPool, ok := s.pools.ResolvePool(opp.BuyVenue, opp.Pair)
	if !ok {
		return "", domain.NewPermanentSubmitError("no_buy_pool",
			fmt.Errorf("submitter: no pool for venue %s pair %s", opp.BuyVenue, opp.Pair))
	}
	sellPool, ok := s.pools.ResolvePool(opp.SellVenue, opp.Pair)
	if !ok {
		return "", domain.NewPermanentSubmitError("no_sell_pool",
			fmt.Errorf("submitter: no pool for venue %s pair %s", opp.SellVenue, opp.Pair))
	}

	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", domain.NewTransientSubmitError("blockhash", fmt.Errorf("submitter: latest blockhash: %w", err))
	}

	data := instructionDiscriminator("execute_arbitrage")
	data = solana.AppendU64(data, opp.Amount)
	data = solana.AppendU64(data, uint64(opp.MinProfitAbsolute))

	ins := solana.Instruction{
		ProgramID: s.programID,
		Accounts: []solana.AccountMeta{
			{Pubkey: s.keypair.PublicKey(), Signer: true, Writable: true},
			{Pubkey: buyPool, Writable: true},
			{Pubkey: sellPool, Writable: true},
		},
		Data: data,
	}

	txBase64, err := solana.BuildTransaction(s.keypair.PrivateKey(), blockhash, ins)
	if err != nil {
		return "", domain.NewPermanentSubmitError("build_tx", fmt.Errorf("submitter: build transaction: %w", err))
	}

	sig, err := s.rpc.SendTransaction(ctx, txBase64, s.maxRetries)
	if err != nil {
		return "", classifySendError(err)
	}

	s.logger.Info("transaction sent", "signature", sig, "pair", opp.Pair.Key())

	if err := s.rpc.ConfirmTransaction(ctx, sig); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", domain.NewTransientSubmitError("confirm_timeout", fmt.Errorf("submitter: confirm %s: %w", sig, err))
		}
		return "", domain.NewPermanentSubmitError("tx_failed", fmt.Errorf("submitter: confirm %s: %w", sig, err))
	}
	return sig, nil
}

// classifySendError maps RPC send failures onto the retry taxonomy. A
// preflight simulation failure means the program will keep rejecting the
// same transaction, so retrying is pointless. Everything else from the
// transport is worth another attempt with a fresh blockhash.
func classifySendError(err error) error {
	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		// -32002 is the preflight simulation failure code.
		if rpcErr.Code == -32002 {
			return domain.NewPermanentSubmitError("simulation_failed", fmt.Errorf("submitter: send: %w", err))
		}
	}
	return domain.NewTransientSubmitError("send", fmt.Errorf("submitter: send: %w", err))
}

var _ domain.Submitter = (*OnChainSubmitter)(nil)
