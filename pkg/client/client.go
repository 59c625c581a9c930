// Package client is a Go client for the strategy-server HTTP and gRPC APIs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/api"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

// Re-exported request and result types.
type (
	StrategyConfig = domain.StrategyConfig
	BacktestResult = domain.BacktestResult
	Run            = api.RunRecord
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Client talks to the strategy-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// RunBacktest posts cfg to /api/v1/backtest.
func (c *Client) RunBacktest(ctx context.Context, cfg StrategyConfig) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtest", cfg, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetBacktest fetches a stored run by ID.
func (c *Client) GetBacktest(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/api/v1/backtests/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Chart downloads the PNG equity chart of a stored run.
func (c *Client) Chart(ctx context.Context, id string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, "/api/v1/backtests/"+url.PathEscape(id)+"/chart.png", nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ListBenchmarks returns the names of the registered benchmarks.
func (c *Client) ListBenchmarks(ctx context.Context) ([]string, error) {
	var resp struct {
		Benchmarks []string `json:"benchmarks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/benchmarks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Benchmarks, nil
}

// do sends a request and decodes the response into out. A *bytes.Buffer out
// receives the raw body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var env struct {
			Error api.ErrorBody `json:"error"`
		}
		apiErr := &APIError{Status: resp.StatusCode}
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		} else {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		_, err := io.Copy(buf, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// gRPC
// ---------------------------------------------------------------------------

// GRPCClient calls isd.v1.BacktestService.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC creates a plaintext connection to addr.
func DialGRPC(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the connection.
func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

// RunBacktest runs cfg on the server.
func (g *GRPCClient) RunBacktest(ctx context.Context, cfg StrategyConfig) (*Run, error) {
	in, err := api.ToStruct(cfg)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, api.RunBacktestMethod, in, out); err != nil {
		return nil, err
	}
	var run Run
	if err := api.FromStruct(out, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListBenchmarks returns the registered benchmark names.
func (g *GRPCClient) ListBenchmarks(ctx context.Context) ([]string, error) {
	out := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, api.ListBenchmarksMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}
	var names []string
	for _, v := range out.GetFields()["benchmarks"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}
