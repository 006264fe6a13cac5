package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethpandaops/conduit-client/tokens"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/sirupsen/logrus"
)

// Response is the raw outcome of a successful HTTP call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Data       interface{}
}

// Client is the shared HTTP client every REST call goes through. It has no
// timeout, no retries and no cache; callers bound calls via the context.
type Client struct {
	baseURL *url.URL
	tokens  types.TokenSource
	logger  logrus.FieldLogger
	client  *http.Client

	headerMu sync.RWMutex
	headers  http.Header
}

func NewClient(baseURL string, tokenSource types.TokenSource, logger logrus.FieldLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url: %s", baseURL)
	}

	return &Client{
		baseURL: base,
		tokens:  tokenSource,
		logger:  logger,
		client:  &http.Client{Timeout: 0},
		headers: http.Header{},
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetHeader copies the current token into the Authorization header of all
// following requests. It is not called automatically on token changes.
func (c *Client) SetHeader() {
	token := ""
	if c.tokens != nil {
		token = c.tokens.GetToken()
	}

	if token != "" && tokens.Expired(token, time.Now()) {
		c.logger.Warn("auth token has expired, requests will likely be rejected")
	}

	c.headerMu.Lock()
	defer c.headerMu.Unlock()

	if token == "" {
		c.headers.Del("Authorization")
		return
	}

	c.headers.Set("Authorization", fmt.Sprintf("Token %s", token))
}

func (c *Client) Query(ctx context.Context, resource string, params url.Values) (*Response, error) {
	rsp, err := c.do(ctx, http.MethodGet, resource, params, nil)
	if err != nil {
		return nil, wrapError(err)
	}

	return rsp, nil
}

func (c *Client) Get(ctx context.Context, resource, slug string) (*Response, error) {
	rsp, err := c.do(ctx, http.MethodGet, joinResource(resource, slug), nil, nil)
	if err != nil {
		return nil, wrapError(err)
	}

	return rsp, nil
}

func (c *Client) Post(ctx context.Context, resource string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPost, resource, nil, body)
}

func (c *Client) Update(ctx context.Context, resource, slug string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPut, joinResource(resource, slug), nil, body)
}

func (c *Client) Put(ctx context.Context, resource string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPut, resource, nil, body)
}

func (c *Client) Delete(ctx context.Context, resource string) (*Response, error) {
	rsp, err := c.do(ctx, http.MethodDelete, resource, nil, nil)
	if err != nil {
		return nil, wrapError(err)
	}

	return rsp, nil
}

func joinResource(resource, slug string) string {
	if slug == "" {
		return resource
	}

	return resource + "/" + slug
}

func (c *Client) do(ctx context.Context, method, resource string, params url.Values, body interface{}) (*Response, error) {
	target := c.baseURL.JoinPath(resource)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var bodyReader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed marshaling request body: %w", err)
		}

		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	c.headerMu.RLock()
	for hk, hvs := range c.headers {
		for _, hv := range hvs {
			req.Header.Add(hk, hv)
		}
	}
	c.headerMu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}

	rsp := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Data:       parseData(resp.Header.Get("Content-Type"), data),
	}

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"url":      target.String(),
		"status":   resp.StatusCode,
		"length":   len(data),
		"duration": time.Since(start),
	}).Debug("api call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Method:     method,
			URL:        target.String(),
			StatusCode: resp.StatusCode,
			Response:   rsp,
		}
	}

	return rsp, nil
}
