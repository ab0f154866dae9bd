// Package client implements the upstream Gemini API client.
// It sends translated requests to the generative language API, supports
// plain API keys with simple failover as well as OAuth bearer credentials,
// and exposes streaming responses as a channel of decoded event payloads.
package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/samvilian/gemini-proxy-panel3/internal/auth/gemini"
	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	"github.com/samvilian/gemini-proxy-panel3/internal/interfaces"
	"github.com/samvilian/gemini-proxy-panel3/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	glEndPoint   = "https://generativelanguage.googleapis.com"
	glAPIVersion = "v1beta"
)

// clientState is one immutable credential/transport snapshot. Hot reloads
// build a fresh state and swap the pointer, so in-flight requests keep using
// the snapshot they started with.
type clientState struct {
	cfg         *config.Config
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

func newClientState(cfg *config.Config) *clientState {
	httpClient := util.SetProxy(cfg, &http.Client{})
	st := &clientState{
		cfg:        cfg,
		httpClient: httpClient,
	}
	if cfg.GeminiOAuth.Enabled() {
		st.tokenSource = gemini.NewTokenSource(context.Background(), cfg, httpClient)
	}
	return st
}

// credentials returns the list of upstream credentials to try in order.
// With OAuth enabled a single bearer credential is used.
func (st *clientState) credentials() []string {
	if st.tokenSource != nil {
		return []string{""}
	}
	return st.cfg.GlAPIKey
}

// GeminiClient talks to the generative language API.
type GeminiClient struct {
	mu    sync.RWMutex
	state *clientState
}

// NewGeminiClient creates an upstream client from the configuration. The
// HTTP client is proxy-aware, and an OAuth token source is attached when
// OAuth credentials are configured.
func NewGeminiClient(cfg *config.Config) *GeminiClient {
	return &GeminiClient{state: newClientState(cfg)}
}

// snapshot returns the current state for use over one whole request.
func (c *GeminiClient) snapshot() *clientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// UpdateConfig swaps the client's configuration after a hot reload.
func (c *GeminiClient) UpdateConfig(cfg *config.Config) {
	st := newClientState(cfg)
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// apiRequest performs one POST against a model endpoint with one credential.
// The caller owns the returned body.
func (st *clientState) apiRequest(ctx context.Context, modelName, endpoint, apiKey string, body []byte, stream bool) (io.ReadCloser, *interfaces.ErrorMessage) {
	url := fmt.Sprintf("%s/%s/models/%s:%s", glEndPoint, glAPIVersion, modelName, endpoint)
	if stream {
		url = url + "?alt=sse"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &interfaces.ErrorMessage{StatusCode: 500, Error: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	if st.tokenSource != nil {
		token, errToken := st.tokenSource.Token()
		if errToken != nil {
			return nil, &interfaces.ErrorMessage{StatusCode: 500, Error: fmt.Errorf("failed to refresh OAuth token: %w", errToken)}
		}
		token.SetAuthHeader(req)
	} else {
		req.Header.Set("x-goog-api-key", apiKey)
		log.Debugf("use Gemini API key %s for model %s", util.HideAPIKey(apiKey), modelName)
	}

	resp, err := st.httpClient.Do(req)
	if err != nil {
		return nil, &interfaces.ErrorMessage{StatusCode: 500, Error: fmt.Errorf("failed to execute request: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() {
			if errClose := resp.Body.Close(); errClose != nil {
				log.Warnf("failed to close response body: %v", errClose)
			}
		}()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &interfaces.ErrorMessage{StatusCode: resp.StatusCode, Error: fmt.Errorf("%s", string(bodyBytes))}
	}

	return resp.Body, nil
}

// SendRawMessage sends a non-streaming generateContent request and returns
// the raw Gemini response body. Each configured API key is tried at most
// once; the first success wins.
func (c *GeminiClient) SendRawMessage(ctx context.Context, modelName string, rawJSON []byte) ([]byte, *interfaces.ErrorMessage) {
	st := c.snapshot()
	keys := st.credentials()
	if len(keys) == 0 {
		return nil, &interfaces.ErrorMessage{StatusCode: 500, Error: fmt.Errorf("no upstream credentials configured")}
	}

	var lastErr *interfaces.ErrorMessage
	for _, key := range keys {
		respBody, errMsg := st.apiRequest(ctx, modelName, "generateContent", key, rawJSON, false)
		if errMsg != nil {
			lastErr = errMsg
			log.Warnf("upstream request failed (%d), trying next key", errMsg.StatusCode)
			continue
		}
		bodyBytes, errRead := io.ReadAll(respBody)
		_ = respBody.Close()
		if errRead != nil {
			return nil, &interfaces.ErrorMessage{StatusCode: 500, Error: errRead}
		}
		return bodyBytes, nil
	}
	return nil, lastErr
}

// SendRawMessageStream sends a streaming request and returns a channel of
// decoded event payloads (one per SSE data line) plus an error channel.
// Both channels close when the stream ends.
func (c *GeminiClient) SendRawMessageStream(ctx context.Context, modelName string, rawJSON []byte) (<-chan []byte, <-chan *interfaces.ErrorMessage) {
	dataChan := make(chan []byte)
	errChan := make(chan *interfaces.ErrorMessage, 1)
	st := c.snapshot()

	go func() {
		defer close(dataChan)
		defer close(errChan)

		keys := st.credentials()
		if len(keys) == 0 {
			errChan <- &interfaces.ErrorMessage{StatusCode: 500, Error: fmt.Errorf("no upstream credentials configured")}
			return
		}

		var respBody io.ReadCloser
		var lastErr *interfaces.ErrorMessage
		for _, key := range keys {
			body, errMsg := st.apiRequest(ctx, modelName, "streamGenerateContent", key, rawJSON, true)
			if errMsg != nil {
				lastErr = errMsg
				log.Warnf("upstream stream request failed (%d), trying next key", errMsg.StatusCode)
				continue
			}
			respBody = body
			break
		}
		if respBody == nil {
			errChan <- lastErr
			return
		}
		defer func() { _ = respBody.Close() }()

		scanner := bufio.NewScanner(respBody)
		scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			payload := bytes.TrimPrefix(line, []byte("data: "))
			buf := make([]byte, len(payload))
			copy(buf, payload)
			select {
			case dataChan <- buf:
			case <-ctx.Done():
				return
			}
		}
		if errScan := scanner.Err(); errScan != nil {
			errChan <- &interfaces.ErrorMessage{StatusCode: 500, Error: errScan}
		}
	}()

	return dataChan, errChan
}
