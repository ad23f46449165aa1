package providerclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/strategy"
)

// OpenAIClientConfig configures the OpenAI HTTP client.
type OpenAIClientConfig struct {
	BaseURL string
	APIKey  string

	RequestTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int

	HTTPClient *http.Client
}

func (c OpenAIClientConfig) withDefaults() OpenAIClientConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 100
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// OpenAIClient invokes the OpenAI-compatible chat completions endpoint,
// shaping the request and parsing the response through whichever
// strategy the router resolved (the OpenAI family always resolves to
// strategy.OpenAIStrategy, but the client stays strategy-agnostic so a
// self-hosted OpenAI-compatible endpoint could be routed through the
// same path).
type OpenAIClient struct {
	cfg        OpenAIClientConfig
	httpClient *http.Client
}

// NewOpenAIClient builds a client with connection pooling matching the
// gateway's other upstream client.
func NewOpenAIClient(cfg OpenAIClientConfig) *OpenAIClient {
	cfg = cfg.withDefaults()
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &OpenAIClient{cfg: cfg, httpClient: httpClient}
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Invoke performs a single non-streaming chat completion.
func (c *OpenAIClient) Invoke(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (*canonical.Response, error) {
	body, err := strat.ShapeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("providerclient: shape openai request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := c.drainOrError(resp)
	if err != nil {
		return nil, err
	}

	return strat.ParseResponse(respBody, req.Model)
}

// Stream performs a streaming chat completion, returning a channel of
// canonical chunks. The goroutine closes the channel on completion,
// error, or context cancellation.
func (c *OpenAIClient) Stream(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (<-chan StreamResult, error) {
	body, err := strat.ShapeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("providerclient: shape openai stream request: %w", err)
	}

	results := make(chan StreamResult, 16)
	streamID := "chatcmpl-" + req.Model

	go func() {
		defer close(results)

		resp, err := c.doRequest(ctx, body)
		if err != nil {
			results <- StreamResult{Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, err := c.drainOrError(resp)
			results <- StreamResult{Err: err}
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					return
				}
				results <- StreamResult{Err: fmt.Errorf("providerclient: read openai stream: %w", err)}
				return
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			const prefix = "data: "
			if !bytes.HasPrefix(line, []byte(prefix)) {
				continue
			}
			payload := bytes.TrimSpace(line[len(prefix):])
			if bytes.Equal(payload, []byte("[DONE]")) {
				return
			}

			chunks, err := strat.ParseStreamEvent(payload, streamID, req.Model)
			if err != nil {
				results <- StreamResult{Err: fmt.Errorf("providerclient: parse openai stream event: %w", err)}
				return
			}
			for i := range chunks {
				select {
				case <-ctx.Done():
					return
				case results <- StreamResult{Chunk: &chunks[i]}:
				}
			}
		}
	}()

	return results, nil
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("providerclient: build openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("providerclient: openai request: %w", err)
	}
	return resp, nil
}

func (c *OpenAIClient) drainOrError(resp *http.Response) ([]byte, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return io.ReadAll(resp.Body)
	}
	retryAfter := parseRetryAfter(resp)
	raw, _ := io.ReadAll(resp.Body)
	var perr openAIErrorBody
	if err := json.Unmarshal(raw, &perr); err == nil && perr.Error.Message != "" {
		slog.Error("openai upstream error", "status", resp.StatusCode, "type", perr.Error.Type, "message", perr.Error.Message)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: perr.Error.Message, Kind: perr.Error.Type, RetryAfter: retryAfter}
	}
	slog.Error("openai upstream error", "status", resp.StatusCode, "body", truncate(string(raw), 200))
	return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: truncate(string(raw), 200), RetryAfter: retryAfter}
}

// parseRetryAfter reads the Retry-After header as either seconds or an
// HTTP date, capped at 5 minutes.
func parseRetryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	const maxWait = 5 * time.Minute
	if seconds, err := parseSeconds(h); err == nil && seconds > 0 {
		d := time.Duration(seconds) * time.Second
		if d > maxWait {
			d = maxWait
		}
		return d
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			if d > maxWait {
				d = maxWait
			}
			return d
		}
	}
	return 0
}

func parseSeconds(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	return n, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
