package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/types"
)

const testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer answers JSON-RPC calls with handler's result or error object
func newRPCServer(t *testing.T, handler func(req rpcRequest) (result interface{}, rpcErr map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func tokenAccount(mint, amount string, decimals int) map[string]interface{} {
	return map[string]interface{}{
		"pubkey": "acct-" + mint[:4],
		"account": map[string]interface{}{
			"data": map[string]interface{}{
				"program": "spl-token",
				"parsed": map[string]interface{}{
					"type": "account",
					"info": map[string]interface{}{
						"mint":  mint,
						"owner": testWallet,
						"tokenAmount": map[string]interface{}{
							"amount":   amount,
							"decimals": decimals,
						},
					},
				},
			},
		},
	}
}

func programOf(t *testing.T, req rpcRequest) string {
	t.Helper()
	require.Len(t, req.Params, 3)
	var filter map[string]string
	require.NoError(t, json.Unmarshal(req.Params[1], &filter))
	return filter["programId"]
}

func TestSolanaRPCClient_FetchHoldings(t *testing.T) {
	var programs []string
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		switch req.Method {
		case "getTokenAccountsByOwner":
			program := programOf(t, req)
			programs = append(programs, program)
			if program == TokenProgramID {
				return map[string]interface{}{"value": []interface{}{
					tokenAccount(types.MintUSDC, "100000000", 6),
					tokenAccount(types.MintUSDT, "0", 6),
				}}, nil
			}
			return map[string]interface{}{"value": []interface{}{}}, nil
		case "getBalance":
			return map[string]interface{}{"value": 2500000000}, nil
		}
		return nil, map[string]interface{}{"code": -32601, "message": "method not found"}
	})
	defer server.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{
		PrimaryURL:       server.URL,
		IncludeNative:    true,
		IncludeToken2022: true,
	})
	require.NoError(t, err)
	defer client.Close()

	holdings, err := client.FetchHoldings(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, []string{TokenProgramID, Token2022ProgramID}, programs)
	require.Len(t, holdings, 3)
	assert.Equal(t, types.RawHolding{TokenID: types.MintUSDC, RawAmount: "100000000", Decimals: 6}, holdings[0])
	assert.Equal(t, types.MintUSDT, holdings[1].TokenID)
	assert.Equal(t, types.RawHolding{TokenID: types.MintWrappedSOL, RawAmount: "2500000000", Decimals: 9}, holdings[2])
}

func TestSolanaRPCClient_ZeroNativeBalanceOmitted(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		if req.Method == "getBalance" {
			return map[string]interface{}{"value": 0}, nil
		}
		return map[string]interface{}{"value": []interface{}{}}, nil
	})
	defer server.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: server.URL, IncludeNative: true})
	require.NoError(t, err)
	defer client.Close()

	holdings, err := client.FetchHoldings(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestSolanaRPCClient_InvalidParamsIsInvalidAddress(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32602, "message": "Invalid param: WrongSize"}
	})
	defer server.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchHoldings(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidAddress(err))
}

func TestSolanaRPCClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchHoldings(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataSourceUnavailable(err))
	assert.True(t, apperrors.IsRateLimited(err))
}

func TestSolanaRPCClient_FailsOverToSecondary(t *testing.T) {
	var primaryCalls int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryCalls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	secondary := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		return map[string]interface{}{"value": []interface{}{
			tokenAccount(types.MintUSDC, "5000000", 6),
		}}, nil
	})
	defer secondary.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: primary.URL, SecondaryURL: secondary.URL})
	require.NoError(t, err)
	defer client.Close()

	holdings, err := client.FetchHoldings(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "5000000", holdings[0].RawAmount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryCalls))
	assert.Equal(t, secondary.URL, client.Endpoints().Current())

	health := client.Endpoints().Health()
	assert.Equal(t, int64(1), health[0].FailedRequests)
	assert.Equal(t, int64(1), health[1].TotalRequests)
}

func TestSolanaRPCClient_AllEndpointsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer down.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: down.URL})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchHoldings(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataSourceUnavailable(err))
	assert.False(t, apperrors.IsRateLimited(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSolanaRPCClient_ErrorResponseIsNotRetryable(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32601, "message": "Method not found"}
	})
	defer server.Close()

	client, err := NewSolanaRPCClient(SolanaRPCConfig{PrimaryURL: server.URL})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchHoldings(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataSourceUnavailable(err))
	assert.False(t, apperrors.IsInvalidAddress(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestNewSolanaRPCClient_RequiresPrimary(t *testing.T) {
	_, err := NewSolanaRPCClient(SolanaRPCConfig{})
	assert.Error(t, err)
}
