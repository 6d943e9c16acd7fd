package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// newLLMHTTPClient creates an HTTP client optimized for LLM API calls
// with proper timeouts for long-running streaming responses
func newLLMHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       10,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   120 * time.Second,
		Transport: transport,
	}
}

// maxErrorBody caps how much of an error reply is kept in APIError.
const maxErrorBody = 4096

// checkStatus turns a non-200 reply into an *APIError. The body is left
// unread on success.
func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}

// schemaInstruction renders the response schema as a prompt suffix for
// providers without a native structured output mode.
func schemaInstruction(req *Request) (string, error) {
	if !req.WantsJSON() {
		return "", nil
	}
	schema, err := json.Marshal(req.ResponseSchema)
	if err != nil {
		return "", fmt.Errorf("marshal response schema: %w", err)
	}
	return "Respond with a single JSON object and nothing else. It must match this JSON schema:\n" + string(schema), nil
}
