package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

const solanaFMSource = "solanafm"

// SolanaFMConfig configures a SolanaFMClient
type SolanaFMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SolanaFMClient lists a wallet's tokens through the SolanaFM indexer.
// Unlike the RPC source it usually supplies symbols along with balances.
type SolanaFMClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSolanaFMClient creates a new SolanaFM client
func NewSolanaFMClient(cfg SolanaFMConfig) *SolanaFMClient {
	return &SolanaFMClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  newHTTPClient(cfg.Timeout),
	}
}

// solanaFMToken is one entry of the SolanaFM wallet token list
type solanaFMToken struct {
	Mint     string          `json:"mint"`
	Amount   json.RawMessage `json:"amount"`
	Decimals int             `json:"decimals"`
	Symbol   string          `json:"symbol"`
}

// rawAmount returns the amount as an integer string whether it was sent as a number or a string
func (t solanaFMToken) rawAmount() string {
	s := strings.Trim(strings.TrimSpace(string(t.Amount)), `"`)
	if s == "" || s == "null" {
		return "0"
	}
	return s
}

func (t solanaFMToken) toRawHolding() types.RawHolding {
	h := types.RawHolding{
		TokenID:   t.Mint,
		RawAmount: t.rawAmount(),
		Decimals:  t.Decimals,
	}
	if sym := strings.TrimSpace(t.Symbol); sym != "" {
		h.Symbol = &sym
	}
	return h
}

// FetchHoldings returns the raw token records SolanaFM reports for wallet.
// An unknown wallet yields an empty list.
func (c *SolanaFMClient) FetchHoldings(ctx context.Context, wallet string) ([]types.RawHolding, error) {
	endpoint := c.baseURL + "/v0/addresses/" + url.PathEscape(wallet) + "/tokens"

	var tokens []solanaFMToken
	err := getJSON(ctx, c.client, solanaFMSource, endpoint, map[string]string{"ApiKey": c.apiKey}, &tokens)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	holdings := make([]types.RawHolding, 0, len(tokens))
	for _, t := range tokens {
		if t.Mint == "" {
			continue
		}
		holdings = append(holdings, t.toRawHolding())
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"wallet": wallet,
		"tokens": len(holdings),
	}).Debug("Fetched SolanaFM token list")

	return holdings, nil
}
