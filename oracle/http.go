package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cosmossdk.io/log"

	"github.com/tanda-protocol/tanda-collector/types"
)

var _ Oracle = (*Client)(nil)

// Client is an HTTP client for a remote proof oracle.
type Client struct {
	baseURL string
	client  http.Client
	logger  log.Logger
}

func NewClient(cfg types.OracleConfig, logger log.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client:  http.Client{Timeout: cfg.RequestTimeout.Std()},
		logger:  logger.With("component", "proof-oracle"),
	}
}

func (c *Client) VerifyWalletProof(ctx context.Context, proof WalletProof) (WalletVerification, error) {
	var out WalletVerification
	err := c.post(ctx, "/v1/wallet/verify", proof, &out)
	if err != nil {
		return WalletVerification{}, err
	}
	return out, nil
}

func (c *Client) VerifyBalanceSufficiency(ctx context.Context, commitment string, requiredAmount uint64) (Sufficiency, error) {
	req := struct {
		Commitment     string `json:"commitment"`
		RequiredAmount uint64 `json:"required_amount"`
	}{commitment, requiredAmount}

	var out Sufficiency
	err := c.post(ctx, "/v1/balance/sufficiency", req, &out)
	if err != nil {
		return Sufficiency{}, err
	}
	return out, nil
}

func (c *Client) VerifyPaymentProof(ctx context.Context, proof string) (bool, error) {
	req := struct {
		Proof string `json:"proof"`
	}{proof}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.post(ctx, "/v1/payment/verify", req, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	bz, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("unable to marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bz))
	if err != nil {
		return fmt.Errorf("unable to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("error during oracle request", "path", path, "err", err)
		return fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("non 200 response received from proof oracle", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read oracle response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unable to unmarshal oracle response: %w", err)
	}
	return nil
}
