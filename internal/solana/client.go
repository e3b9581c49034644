// Package solana provides the JSON-RPC connection handle used by on-chain
// venue transports and the execution submitter. The core pipeline treats it
// as injected configuration and never constructs it.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// lamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// ClientConfig holds RPC endpoint parameters.
type ClientConfig struct {
	// URL is the HTTP JSON-RPC endpoint, e.g. "https://api.mainnet-beta.solana.com".
	URL string

	// Commitment is the confirmation level for queries ("processed",
	// "confirmed", "finalized").
	Commitment string

	// Timeout bounds each RPC round trip.
	Timeout time.Duration
}

// Client is a minimal Solana JSON-RPC client covering the calls this system
// needs: balance and account queries, blockhash retrieval, and transaction
// submission with confirmation polling.
type Client struct {
	url        string
	commitment string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// New creates a Client for the given endpoint.
func New(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}
	return &Client{
		url:        cfg.URL,
		commitment: commitment,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RPCError is a JSON-RPC error response from the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call performs one JSON-RPC round trip and unmarshals the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("solana: build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("solana: read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s: unexpected status %d: %s", method, resp.StatusCode, respBody)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s: %w", method, rpcResp.Error)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("solana: decode %s result: %w", method, err)
		}
	}
	return nil
}

// contextValue is the standard {context, value} envelope on query results.
type contextValue struct {
	Value json.RawMessage `json:"value"`
}

// GetBalance returns the lamport balance of the given account.
func (c *Client) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	params := []any{pubkey, map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// AccountInfo is the decoded getAccountInfo response value.
type AccountInfo struct {
	// Data is the base64-encoded account data.
	Data     string
	Owner    string
	Lamports uint64
}

// GetAccountInfo fetches an account's data base64-encoded. It returns an
// error when the account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey string) (AccountInfo, error) {
	var result contextValue
	params := []any{pubkey, map[string]any{"encoding": "base64", "commitment": c.commitment}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return AccountInfo{}, err
	}
	if len(result.Value) == 0 || string(result.Value) == "null" {
		return AccountInfo{}, fmt.Errorf("solana: account %s does not exist", pubkey)
	}

	var value struct {
		Data     []string `json:"data"` // [base64, "base64"]
		Owner    string   `json:"owner"`
		Lamports uint64   `json:"lamports"`
	}
	if err := json.Unmarshal(result.Value, &value); err != nil {
		return AccountInfo{}, fmt.Errorf("solana: decode account %s: %w", pubkey, err)
	}
	if len(value.Data) == 0 {
		return AccountInfo{}, fmt.Errorf("solana: account %s: empty data envelope", pubkey)
	}
	return AccountInfo{Data: value.Data[0], Owner: value.Owner, Lamports: value.Lamports}, nil
}

// GetLatestBlockhash returns the most recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result contextValue
	params := []any{map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	var value struct {
		Blockhash string `json:"blockhash"`
	}
	if err := json.Unmarshal(result.Value, &value); err != nil {
		return "", fmt.Errorf("solana: decode blockhash: %w", err)
	}
	return value.Blockhash, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns its
// signature. maxRetries is forwarded to the node's internal rebroadcast.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string, maxRetries int) (string, error) {
	opts := map[string]any{
		"encoding":            "base64",
		"preflightCommitment": c.commitment,
	}
	if maxRetries > 0 {
		opts["maxRetries"] = maxRetries
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", []any{txBase64, opts}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// SignatureStatus reports the confirmation state of a submitted transaction.
type SignatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// Failed reports whether the transaction was processed and failed on-chain.
func (s *SignatureStatus) Failed() bool {
	return s != nil && len(s.Err) > 0 && string(s.Err) != "null"
}

// GetSignatureStatuses fetches the status of the given signatures. Entries
// are nil for unknown signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{signatures, map[string]any{"searchTransactionHistory": false}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ConfirmTransaction polls signature status until the configured commitment
// is reached, the transaction fails, or ctx expires.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
			if err != nil {
				return err
			}
			if len(statuses) == 0 || statuses[0] == nil {
				continue
			}
			st := statuses[0]
			if st.Failed() {
				return fmt.Errorf("solana: transaction %s failed on-chain: %s", signature, st.Err)
			}
			if st.ConfirmationStatus == c.commitment || st.ConfirmationStatus == "finalized" {
				return nil
			}
		}
	}
}

// Commitment returns the configured commitment level.
func (c *Client) Commitment() string {
	return c.commitment
}
