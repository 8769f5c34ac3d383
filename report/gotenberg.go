package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// PageOptions controls the paper Gotenberg renders onto. Sizes are inches.
type PageOptions struct {
	PaperWidth  float64
	PaperHeight float64
	Margin      float64
}

// ThermalRoll is an 80mm receipt roll. The height only bounds one page; the
// printer driver trims the blank tail.
var ThermalRoll = PageOptions{PaperWidth: 3.15, PaperHeight: 11.7, Margin: 0.08}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	page       PageOptions
	httpClient *http.Client
}

// NewClient constructs a client rendering onto the thermal roll.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		page:       ThermalRoll,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithPage returns a copy rendering onto a different page size.
func (c *Client) WithPage(page PageOptions) *Client {
	clone := *c
	clone.page = page
	return &clone
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a self-contained HTML ticket into a PDF document.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"paperWidth":      formatInches(c.page.PaperWidth),
		"paperHeight":     formatInches(c.page.PaperHeight),
		"marginTop":       formatInches(c.page.Margin),
		"marginBottom":    formatInches(c.page.Margin),
		"marginLeft":      formatInches(c.page.Margin),
		"marginRight":     formatInches(c.page.Margin),
		"printBackground": "true",
	}
	for _, key := range []string{"paperWidth", "paperHeight", "marginTop", "marginBottom", "marginLeft", "marginRight", "printBackground"} {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func formatInches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
