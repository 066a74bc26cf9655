package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bithumb-rebalance-bot/internal/bithumb/auth"

	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	http    *http.Client
	signer  *auth.Signer
	log     *zap.Logger
}

func New(baseURL string, timeout time.Duration, signer *auth.Signer, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
		signer: signer,
		log:    log,
	}
}

// PublicGet issues an unauthenticated GET. rawQuery is appended verbatim.
func (c *Client) PublicGet(ctx context.Context, path, rawQuery string) (json.RawMessage, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// PrivateGet issues a signed GET. params become both the query string and
// the token's query hash, in the given order.
func (c *Client) PrivateGet(ctx context.Context, path string, params []auth.Param) (json.RawMessage, error) {
	url := c.baseURL + path
	if query := auth.QueryString(params); query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	header, err := c.signer.AuthorizationHeader(http.MethodGet, params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	return c.do(req)
}

// PrivatePost issues a signed POST with params as the JSON body.
func (c *Client) PrivatePost(ctx context.Context, path string, params []auth.Param) (json.RawMessage, error) {
	body := make(map[string]string, len(params))
	for _, p := range params {
		body[p.Key] = p.Value
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	header, err := c.signer.AuthorizationHeader(http.MethodPost, params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := data
		if len(snippet) > 2048 {
			snippet = snippet[:2048]
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(snippet))
	}
	return json.RawMessage(data), nil
}
