package veax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"veaxflow/internal/model"
)

const (
	DefaultURL        = "https://veax-liquidity-pool.veax.com/v1/rpc"
	DefaultChartRange = "DAY"

	methodGetPools    = "get_pools"
	methodChartVolume = "chart_volume"

	maxResponseBytes = 10 * 1024 * 1024
)

// Config holds transport settings for the Veax RPC endpoint.
type Config struct {
	URL          string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64
}

// Client speaks JSON-RPC 2.0 to the Veax liquidity pool API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a Client. A nil logger discards logs.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type chartParams struct {
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
	Range  string `json:"range"`
}

// GetPools returns the full pool listing.
func (c *Client) GetPools(ctx context.Context) ([]model.PoolRecord, error) {
	result, err := c.call(ctx, methodGetPools, struct{}{}, "result.pools")
	if err != nil {
		return nil, err
	}
	var pools []model.PoolRecord
	if err := json.Unmarshal([]byte(result.Raw), &pools); err != nil {
		return nil, fmt.Errorf("decode pools: %w: %w", model.ErrMalformed, err)
	}
	return pools, nil
}

// ChartVolume returns the volume series of a pair over chartRange (e.g. DAY).
func (c *Client) ChartVolume(ctx context.Context, tokenA, tokenB, chartRange string) ([]model.VolumePoint, error) {
	if chartRange == "" {
		chartRange = DefaultChartRange
	}
	params := chartParams{TokenA: tokenA, TokenB: tokenB, Range: chartRange}
	result, err := c.call(ctx, methodChartVolume, params, "result.chart")
	if err != nil {
		return nil, err
	}
	var points []model.VolumePoint
	if err := json.Unmarshal([]byte(result.Raw), &points); err != nil {
		return nil, fmt.Errorf("decode chart: %w: %w", model.ErrMalformed, err)
	}
	return points, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}, resultPath string) (gjson.Result, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal %s request: %w", method, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryBackoff
	policy.MaxInterval = c.cfg.RetryBackoff * 10

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("rpc call failed, retrying", zap.String("method", method), zap.Error(err), zap.Duration("backoff", wait))
	}

	operation := func() (gjson.Result, error) {
		body, retryable, err := c.post(ctx, payload)
		if err != nil {
			if !retryable {
				return gjson.Result{}, backoff.Permanent(err)
			}
			return gjson.Result{}, err
		}
		result, err := parseResponse(body, resultPath)
		if err != nil {
			return gjson.Result{}, backoff.Permanent(err)
		}
		return result, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

// post sends one request. The bool reports whether a failure is transient.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
		return nil, statusErr.Retryable(), statusErr
	}
	return body, false, nil
}

func parseResponse(body []byte, resultPath string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json response: %w", model.ErrMalformed)
	}
	if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return gjson.Result{}, &RPCError{
			Code:    rpcErr.Get("code").Int(),
			Message: rpcErr.Get("message").String(),
		}
	}
	result := gjson.GetBytes(body, resultPath)
	if !result.Exists() || !result.IsArray() {
		return gjson.Result{}, fmt.Errorf("response missing %s: %w", resultPath, model.ErrMalformed)
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
