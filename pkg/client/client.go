package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned (wrapped) when the server answers 404.
var ErrNotFound = errors.New("not found")

// adminSecretHeader must match the server's tamper gate header.
const adminSecretHeader = "X-Admin-Secret"

// Block mirrors a block as served by the API.
type Block struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Data         string    `json:"data"`
	PreviousHash string    `json:"previousHash"`
	CurrentHash  string    `json:"currentHash"`
}

// VerificationResult is the chain integrity report.
type VerificationResult struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	TotalBlocks int      `json:"totalBlocks"`
}

// ChainOverview holds the chain length and tip hash.
type ChainOverview struct {
	Blocks int    `json:"blocks"`
	Tip    string `json:"tip"`
}

// Client is the chainledger SDK entry point.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	adminSecret string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// WithAdminSecret attaches the admin secret used by TamperBlock.
func WithAdminSecret(secret string) Option {
	return func(c *Client) error {
		c.adminSecret = secret
		return nil
	}
}

// New creates a new Client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// AddBlock appends a new block holding data.
func (c *Client) AddBlock(ctx context.Context, data string) (*Block, error) {
	var b Block
	if err := c.call(ctx, http.MethodPost, "/api/blocks", map[string]string{"data": data}, &b); err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	return &b, nil
}

// ListBlocks returns every block in sequence order.
func (c *Client) ListBlocks(ctx context.Context) ([]Block, error) {
	var blocks []Block
	if err := c.call(ctx, http.MethodGet, "/api/blocks", nil, &blocks); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// GetBlock returns a single block by id.
func (c *Client) GetBlock(ctx context.Context, id int64) (*Block, error) {
	var b Block
	if err := c.call(ctx, http.MethodGet, "/api/blocks/"+strconv.FormatInt(id, 10), nil, &b); err != nil {
		return nil, fmt.Errorf("get block %d: %w", id, err)
	}
	return &b, nil
}

// Verify asks the server to audit the whole chain.
func (c *Client) Verify(ctx context.Context) (*VerificationResult, error) {
	var res VerificationResult
	if err := c.call(ctx, http.MethodGet, "/api/blocks/verify", nil, &res); err != nil {
		return nil, fmt.Errorf("verify chain: %w", err)
	}
	return &res, nil
}

// Overview returns the chain length and tip hash.
func (c *Client) Overview(ctx context.Context) (*ChainOverview, error) {
	var ov ChainOverview
	if err := c.call(ctx, http.MethodGet, "/api/chain", nil, &ov); err != nil {
		return nil, fmt.Errorf("chain overview: %w", err)
	}
	return &ov, nil
}

// TamperBlock overwrites block id's data WITHOUT recomputing its hash.
// Demonstration only: the next Verify will report the block.
func (c *Client) TamperBlock(ctx context.Context, id int64, data string) (*Block, error) {
	var b Block
	path := "/api/blocks/" + strconv.FormatInt(id, 10)
	if err := c.call(ctx, http.MethodPut, path, map[string]string{"data": data}, &b); err != nil {
		return nil, fmt.Errorf("tamper block %d: %w", id, err)
	}
	return &b, nil
}

// call sends a JSON request and decodes a JSON response into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminSecret != "" {
		req.Header.Set(adminSecretHeader, c.adminSecret)
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} from a response body, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
