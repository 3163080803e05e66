package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ClientError is the single error type returned by the transport client.
// Transport reports whether the failure happened below the application layer
// (connection refused, DNS, timeout); those are the retryable ones. A
// well-formed remote failure (non-2xx, {"error": ...} envelope, malformed
// JSON) is an application error and carries the remote message when present.
type ClientError struct {
	Op        string
	Message   string
	Transport bool
}

func (e *ClientError) Error() string {
	if e.Transport {
		return fmt.Sprintf("%s: network error: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsTransient reports whether err is a transport-level failure that callers
// may retry.
func IsTransient(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Transport
}

// Client is the thin request/response wrapper around the remote backend. It
// holds no state beyond the base URL and the last known readiness, refreshed
// only by Initialize. Construct one per backend and pass it by reference.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.Mutex
	ready bool
}

// NewClient creates a client for the backend at baseURL. A nil httpc gets a
// default with a 30s timeout, matching the call deadlines the handlers use.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

type initReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Initialize checks that the backend is reachable and records the result.
// It is idempotent and the only operation that updates Ready.
func (c *Client) Initialize(ctx context.Context) error {
	var reply initReply
	err := c.get(ctx, "/init", &reply)
	ok := err == nil && reply.Success

	c.mu.Lock()
	c.ready = ok
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if !reply.Success {
		return &ClientError{Op: "/init", Message: "backend reported not ready"}
	}
	return nil
}

// Ready returns the readiness recorded by the last Initialize call.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// StoreRequest is the wire body of POST /store.
type StoreRequest struct {
	Content  string   `json:"content"`
	Type     string   `json:"type"`
	Topic    string   `json:"topic"`
	Metadata Metadata `json:"metadata"`
}

type storeReply struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	Error      string `json:"error,omitempty"`
}

// Store persists one document and returns the backend-assigned id.
func (c *Client) Store(ctx context.Context, req StoreRequest) (string, error) {
	var reply storeReply
	if err := c.post(ctx, "/store", req, &reply); err != nil {
		return "", err
	}
	if reply.Error != "" || !reply.Success {
		return "", &ClientError{Op: "/store", Message: remoteMessage(reply.Error)}
	}
	return reply.DocumentID, nil
}

type searchReply struct {
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// Search runs a similarity search. An empty result slice is not an error.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var reply searchReply
	if err := c.post(ctx, "/search", req, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &ClientError{Op: "/search", Message: reply.Error}
	}
	return reply.Results, nil
}

// Generate invokes the remote inference endpoint with an already-assembled
// prompt. Retrieval and persistence are the orchestrator's job, not this
// method's.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	var reply GenerationResponse
	if err := c.post(ctx, "/generate", req, &reply); err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, &ClientError{Op: "/generate", Message: remoteMessage(reply.Err)}
	}
	return &reply, nil
}

type analyticsReply struct {
	Analytics *AnalyticsSnapshot `json:"analytics"`
	Error     string             `json:"error,omitempty"`
}

// Analytics fetches the backend-computed snapshot without transformation.
func (c *Client) Analytics(ctx context.Context) (*AnalyticsSnapshot, error) {
	var reply analyticsReply
	if err := c.get(ctx, "/analytics", &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" || reply.Analytics == nil {
		return nil, &ClientError{Op: "/analytics", Message: remoteMessage(reply.Error)}
	}
	return reply.Analytics, nil
}

type cleanupRequest struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

type cleanupReply struct {
	DeletedCount int    `json:"deletedCount"`
	Error        string `json:"error,omitempty"`
}

// Cleanup deletes documents older than maxAgeDays and returns the count
// removed. Irreversible; confirmation is the caller's responsibility.
func (c *Client) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	var reply cleanupReply
	if err := c.post(ctx, "/cleanup", cleanupRequest{MaxAgeDays: maxAgeDays}, &reply); err != nil {
		return 0, err
	}
	if reply.Error != "" {
		return 0, &ClientError{Op: "/cleanup", Message: reply.Error}
	}
	return reply.DeletedCount, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ClientError{Op: path, Message: fmt.Sprintf("encode request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Op: path, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &ClientError{Op: path, Message: fmt.Sprintf("build request: %v", err)}
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &ClientError{Op: path, Message: err.Error(), Transport: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return &ClientError{Op: path, Message: err.Error(), Transport: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Prefer the remote-provided message over the bare status.
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return &ClientError{Op: path, Message: envelope.Error}
		}
		return &ClientError{Op: path, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ClientError{Op: path, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}

func remoteMessage(msg string) string {
	if msg == "" {
		return "remote call failed"
	}
	return msg
}
