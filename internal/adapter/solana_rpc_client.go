package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

// SPL token program identifiers
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VeaUzn1thc4oiiHFiG7U8GNHvjgcK"
)

// JSON-RPC error code Solana nodes return for malformed params
const rpcInvalidParams = -32602

const solanaRPCSource = "solana-rpc"

// SolanaRPCConfig configures a SolanaRPCClient
type SolanaRPCConfig struct {
	PrimaryURL       string
	SecondaryURL     string
	IncludeNative    bool
	IncludeToken2022 bool
	Timeout          time.Duration
}

// SolanaRPCClient lists a wallet's token accounts over Solana JSON-RPC
type SolanaRPCClient struct {
	endpoints        *EndpointProvider
	httpClient       *http.Client
	includeNative    bool
	includeToken2022 bool

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewSolanaRPCClient creates a new Solana RPC client
func NewSolanaRPCClient(cfg SolanaRPCConfig) (*SolanaRPCClient, error) {
	endpoints, err := NewEndpointProvider(cfg.PrimaryURL, cfg.SecondaryURL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SolanaRPCClient{
		endpoints:        endpoints,
		httpClient:       &http.Client{Timeout: timeout},
		includeNative:    cfg.IncludeNative,
		includeToken2022: cfg.IncludeToken2022,
		clients:          make(map[string]*rpc.Client),
	}, nil
}

// parsedTokenAccounts is the jsonParsed result of getTokenAccountsByOwner
type parsedTokenAccounts struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Program string `json:"program"`
				Parsed  struct {
					Type string `json:"type"`
					Info struct {
						Mint        string `json:"mint"`
						Owner       string `json:"owner"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals int    `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// balanceResult is the result of getBalance
type balanceResult struct {
	Value uint64 `json:"value"`
}

// FetchHoldings returns one raw record per token account owned by wallet, plus the
// native balance as wrapped SOL when enabled and non-zero.
func (c *SolanaRPCClient) FetchHoldings(ctx context.Context, wallet string) ([]types.RawHolding, error) {
	logger := logging.FromContext(ctx)

	programs := []string{TokenProgramID}
	if c.includeToken2022 {
		programs = append(programs, Token2022ProgramID)
	}

	var holdings []types.RawHolding
	for _, program := range programs {
		var accounts parsedTokenAccounts
		err := c.call(ctx, &accounts, "getTokenAccountsByOwner",
			wallet,
			map[string]string{"programId": program},
			map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
		)
		if err != nil {
			return nil, err
		}

		for _, acc := range accounts.Value {
			info := acc.Account.Data.Parsed.Info
			if info.Mint == "" {
				logger.WithField("account", acc.Pubkey).Warn("Token account without mint, skipping")
				continue
			}
			holdings = append(holdings, types.RawHolding{
				TokenID:   info.Mint,
				RawAmount: info.TokenAmount.Amount,
				Decimals:  info.TokenAmount.Decimals,
			})
		}

		logger.WithFields(map[string]interface{}{
			"program":  program,
			"accounts": len(accounts.Value),
		}).Debug("Fetched token accounts")
	}

	if c.includeNative {
		var balance balanceResult
		if err := c.call(ctx, &balance, "getBalance", wallet, map[string]string{"commitment": "confirmed"}); err != nil {
			return nil, err
		}
		if balance.Value > 0 {
			holdings = append(holdings, types.RawHolding{
				TokenID:   types.MintWrappedSOL,
				RawAmount: strconv.FormatUint(balance.Value, 10),
				Decimals:  types.NativeDecimals,
			})
		}
	}

	return holdings, nil
}

// call runs one JSON-RPC request, failing over to the next endpoint once on transport errors
func (c *SolanaRPCClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	attempts := c.endpoints.Len()
	var lastErr error

	for i := 0; i < attempts; i++ {
		url := c.endpoints.Current()
		client, err := c.clientFor(ctx, url)
		if err != nil {
			return apperrors.NewDataSourceError(solanaRPCSource, err)
		}

		start := time.Now()
		err = client.CallContext(ctx, result, method, args...)
		if err == nil {
			c.endpoints.RecordSuccess(url, time.Since(start))
			return nil
		}

		mapped := mapRPCError(method, err)
		if apperrors.IsInvalidAddress(mapped) || ctx.Err() != nil {
			return mapped
		}

		c.endpoints.RecordFailure(url)
		lastErr = mapped

		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"endpoint": url,
			"method":   method,
			"error":    err.Error(),
		}).Warn("Solana RPC call failed")

		if failErr := c.endpoints.Failover(url); failErr != nil {
			break
		}
	}

	return lastErr
}

func (c *SolanaRPCClient) clientFor(ctx context.Context, url string) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[url]; ok {
		return client, nil
	}

	client, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c.clients[url] = client
	return client, nil
}

// Close releases the underlying RPC clients
func (c *SolanaRPCClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for url, client := range c.clients {
		client.Close()
		delete(c.clients, url)
	}
}

// Endpoints exposes endpoint health for diagnostics
func (c *SolanaRPCClient) Endpoints() *EndpointProvider {
	return c.endpoints
}

func mapRPCError(method string, err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return apperrors.NewDataSourceStatusError(solanaRPCSource, httpErr.StatusCode, string(httpErr.Body))
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == rpcInvalidParams {
			return apperrors.NewInvalidAddressError("", fmt.Sprintf("%s rejected params: %s", method, rpcErr.Error()))
		}
		return apperrors.NewDataSourceError(solanaRPCSource, fmt.Errorf("%s: %w", method, err))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.NewDataSourceError(solanaRPCSource, fmt.Errorf("%s: decoding result: %w", method, err))
	}

	return apperrors.NewDataSourceTransportError(solanaRPCSource, fmt.Errorf("%s: %w", method, err))
}
