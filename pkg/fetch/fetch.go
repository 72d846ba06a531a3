// Package fetch retrieves attachment bytes over HTTP with the validation
// rules applied before any processing work: size ceiling, content-type
// allow-list, bounded redirects, fixed timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrFetch covers network failures, timeouts and non-2xx responses.
var ErrFetch = errors.New("image fetch failed")

// ErrValidation covers oversized or disallowed attachments; checked fail-fast.
var ErrValidation = errors.New("attachment rejected")

const maxRedirects = 5

type Client struct {
	http     *http.Client
	maxBytes int64
	allowed  map[string]struct{}
}

// New builds a fetcher. allowedTypes are MIME types ("image/png"); an empty
// list allows any image/* type.
func New(timeout time.Duration, maxBytes int64, allowedTypes []string) *Client {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		allowed:  allowed,
	}
}

// Fetch downloads url and returns the bytes plus the reported content type.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	ctype := strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	if err := c.CheckType(ctype); err != nil {
		return nil, ctype, err
	}
	if resp.ContentLength > 0 && resp.ContentLength > c.maxBytes {
		return nil, ctype, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrValidation, resp.ContentLength, c.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, ctype, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, ctype, fmt.Errorf("%w: body exceeds limit %d", ErrValidation, c.maxBytes)
	}
	return body, ctype, nil
}

// CheckType validates a MIME type against the allow-list. Exposed so upload
// handlers can fail fast before reading a request body.
func (c *Client) CheckType(ctype string) error {
	if len(c.allowed) == 0 {
		if !strings.HasPrefix(ctype, "image/") {
			return fmt.Errorf("%w: content type %q", ErrValidation, ctype)
		}
		return nil
	}
	if _, ok := c.allowed[ctype]; !ok {
		return fmt.Errorf("%w: content type %q", ErrValidation, ctype)
	}
	return nil
}

// MaxBytes exposes the configured ceiling for upload handlers.
func (c *Client) MaxBytes() int64 { return c.maxBytes }
