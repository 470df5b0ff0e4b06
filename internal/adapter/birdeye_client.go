package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

const birdeyeSource = "birdeye"

// BirdeyeConfig configures a BirdeyeClient
type BirdeyeConfig struct {
	BaseURL    string
	APIKey     string
	Chain      string
	BucketType string        // Candle granularity, e.g. "1D"
	BucketSpan time.Duration // Look-back used to find the bucket covering a timestamp
	Timeout    time.Duration
}

// BirdeyeClient reads historical token prices from the Birdeye public API.
// It performs exactly one HTTP request per lookup and does no pacing of its own.
type BirdeyeClient struct {
	baseURL    string
	apiKey     string
	chain      string
	bucketType string
	bucketSpan time.Duration
	client     *http.Client
}

// NewBirdeyeClient creates a new Birdeye client
func NewBirdeyeClient(cfg BirdeyeConfig) *BirdeyeClient {
	chain := cfg.Chain
	if chain == "" {
		chain = "solana"
	}
	bucketType := cfg.BucketType
	if bucketType == "" {
		bucketType = "1D"
	}
	span := cfg.BucketSpan
	if span <= 0 {
		span = 24 * time.Hour
	}

	return &BirdeyeClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		chain:      chain,
		bucketType: bucketType,
		bucketSpan: span,
		client:     newHTTPClient(cfg.Timeout),
	}
}

type birdeyeHistoryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Items []struct {
			UnixTime int64   `json:"unixTime"`
			Value    float64 `json:"value"`
		} `json:"items"`
	} `json:"data"`
}

// PriceAt returns the price of tokenID at the bucket covering at.
// A missing data point is reported as a PricePoint with Found false, not as an error.
func (c *BirdeyeClient) PriceAt(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, error) {
	point := types.PricePoint{TokenID: tokenID, Timestamp: at}

	q := url.Values{}
	q.Set("address", tokenID)
	q.Set("address_type", "token")
	q.Set("type", c.bucketType)
	q.Set("time_from", strconv.FormatInt(at.Add(-c.bucketSpan).Unix(), 10))
	q.Set("time_to", strconv.FormatInt(at.Unix(), 10))

	headers := map[string]string{
		"X-API-KEY": c.apiKey,
		"x-chain":   c.chain,
	}

	var resp birdeyeHistoryResponse
	err := getJSON(ctx, c.client, birdeyeSource, c.baseURL+"/defi/history_price?"+q.Encode(), headers, &resp)
	if errors.Is(err, errNotFound) {
		return point, nil
	}
	if err != nil {
		return point, err
	}

	if !resp.Success {
		return point, apperrors.NewDataSourceError(birdeyeSource, fmt.Errorf("request unsuccessful: %s", resp.Message))
	}

	// Latest bucket that does not start after the requested instant
	cutoff := at.Unix()
	var best int64 = -1
	for _, item := range resp.Data.Items {
		if item.UnixTime <= cutoff && item.UnixTime > best {
			best = item.UnixTime
			point.Price = item.Value
			point.Found = true
		}
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"token": tokenID,
		"at":    at.Unix(),
		"found": point.Found,
		"items": len(resp.Data.Items),
	}).Debug("Fetched historical price")

	return point, nil
}
