package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const solscanSource = "solscan"

// SolscanConfig configures a SolscanClient
type SolscanConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SolscanClient looks up token metadata on Solscan
type SolscanClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSolscanClient creates a new Solscan client
func NewSolscanClient(cfg SolscanConfig) *SolscanClient {
	return &SolscanClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  newHTTPClient(cfg.Timeout),
	}
}

// solscanMeta accepts both the flat v1 payload and the v2 payload wrapped in data
type solscanMeta struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Data   *struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"data"`
}

func (m solscanMeta) symbol() string {
	if m.Data != nil && m.Data.Symbol != "" {
		return m.Data.Symbol
	}
	return m.Symbol
}

// LookupSymbol returns the ticker symbol of tokenID.
// ok is false when Solscan does not know the token.
func (c *SolscanClient) LookupSymbol(ctx context.Context, tokenID string) (string, bool, error) {
	q := url.Values{}
	q.Set("tokenAddress", tokenID)

	var meta solscanMeta
	err := getJSON(ctx, c.client, solscanSource, c.baseURL+"/token/meta?"+q.Encode(),
		map[string]string{"token": c.apiKey}, &meta)
	if errors.Is(err, errNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	symbol := strings.TrimSpace(meta.symbol())
	if symbol == "" {
		return "", false, nil
	}
	return symbol, true, nil
}
