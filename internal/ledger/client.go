// Package ledger is the HTTP client of the remote sales ledger: sale
// submission, branch catalog and health.
package ledger

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

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
)

// IdempotencyHeader carries the terminal's local folio on submissions so a
// ledger that honours it can discard replays.
const IdempotencyHeader = "Idempotency-Key"

const maxResponseBytes = 4 << 20

// Ack is the ledger's answer to a sale submission.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Folio   string `json:"folio,omitempty"`
}

// NetworkError means the ledger could not be reached or failed server side.
// The sale may be retried.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("ledger: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RejectedError means the ledger answered and refused the sale. Resending the
// same payload will not help.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger: sale rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("ledger: sale rejected: %s", e.Message)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// Config wires a Client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the remote ledger API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a ledger client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// SubmitSale posts sale to the ledger.
func (c *Client) SubmitSale(ctx context.Context, sale sales.Sale, idempotencyKey string) (Ack, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return Ack{}, fmt.Errorf("ledger: encode sale: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/sales", bytes.NewReader(body))
	if err != nil {
		return Ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Ack{}, &NetworkError{Op: "submit sale", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return Ack{}, &NetworkError{Op: "submit sale", Status: resp.StatusCode}
	}

	var ack Ack
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&ack)
	if resp.StatusCode >= http.StatusBadRequest {
		return Ack{}, &RejectedError{Status: resp.StatusCode, Message: ack.Message}
	}
	if decodeErr != nil {
		return Ack{}, &NetworkError{Op: "decode sale ack", Err: decodeErr}
	}
	if !ack.Success {
		return ack, &RejectedError{Status: resp.StatusCode, Message: ack.Message}
	}
	return ack, nil
}

type catalogEnvelope struct {
	Products []catalog.Product `json:"products"`
}

// FetchCatalog downloads the product list of a branch. Both a bare array and
// a {"products": [...]} envelope are accepted.
func (c *Client) FetchCatalog(ctx context.Context, branchID int64) ([]catalog.Product, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/branches/"+strconv.FormatInt(branchID, 10)+"/products", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch catalog", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Op: "fetch catalog", Status: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read catalog", Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var products []catalog.Product
		if err := json.Unmarshal(raw, &products); err != nil {
			return nil, fmt.Errorf("ledger: decode catalog: %w", err)
		}
		return products, nil
	}
	var envelope catalogEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("ledger: decode catalog: %w", err)
	}
	return envelope.Products, nil
}

// Ping checks the ledger health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return &NetworkError{Op: "ping", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
