package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/cache"
)

var (
	ErrTokenNotFound = errors.New("token metadata not found")
	ErrDisabled      = errors.New("metadata service not configured")
)

const tokenPath = "/tokens/%s"

// TokenMetadata is the off-chain description of a token as served by the metadata service
type TokenMetadata struct {
	Address         common.Address  `json:"address"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	ImageUrl        string          `json:"imageUrl"`
	Description     string          `json:"description"`
	Creator         common.Address  `json:"creator"`
	BurnManager     common.Address  `json:"burnManager"`
	FundingGoal     string          `json:"fundingGoal"`
	Collateral      string          `json:"collateral"`
	CreatedAt       time.Time       `json:"createdAt"`
	BlockNumber     uint64          `json:"blockNumber"`
	TransactionHash string          `json:"transactionHash"`
	Statistics      TokenStatistics `json:"statistics"`
}

type TokenStatistics struct {
	TradeCount uint64 `json:"tradeCount"`
	VolumeETH  string `json:"volumeETH"`
}

type ClientConfig struct {
	Url          string
	Headers      map[string]string
	Timeout      time.Duration
	CacheTimeout time.Duration
}

// Client fetches token metadata from the metadata service. It never writes.
type Client struct {
	client  *resty.Client
	baseURL string
	headers map[string]string
	config  ClientConfig
	cache   *cache.TieredCache
	logger  logrus.FieldLogger
}

func NewClient(config ClientConfig, tieredCache *cache.TieredCache, logger logrus.FieldLogger) *Client {
	url := strings.TrimSuffix(config.Url, "/")

	client := resty.New()
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}

	return &Client{
		client:  client,
		baseURL: url,
		headers: config.Headers,
		config:  config,
		cache:   tieredCache,
		logger:  logger,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

func cacheKey(token common.Address) string {
	return fmt.Sprintf("meta:%s", strings.ToLower(token.Hex()))
}

// GetToken returns the metadata of token, served from cache while fresh
func (c *Client) GetToken(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	key := cacheKey(token)
	if c.cache != nil {
		cached := &TokenMetadata{}
		if _, err := c.cache.Get(key, cached); err == nil {
			return cached, nil
		}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeaders(c.headers).
		Get(c.baseURL + fmt.Sprintf(tokenPath, token.Hex()))
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrTokenNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("metadata request failed with status: %s", resp.Status())
	}

	result := &TokenMetadata{}
	err = json.Unmarshal(resp.Body(), result)
	if err != nil {
		return nil, fmt.Errorf("failed parsing metadata response: %w", err)
	}
	if result.Address == (common.Address{}) {
		result.Address = token
	}

	if c.cache != nil {
		if err := c.cache.Set(key, result, c.config.CacheTimeout); err != nil {
			c.logger.WithError(err).WithField("token", token.Hex()).Warnf("failed caching token metadata")
		}
	}

	return result, nil
}

// Forget drops the cached metadata of token
func (c *Client) Forget(token common.Address) {
	if c.cache != nil {
		c.cache.Delete(cacheKey(token))
	}
}
