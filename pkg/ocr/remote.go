package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// RemoteBackend is an optional high-accuracy recognition service. It is best
// effort: any failure falls back to the local backend.
type RemoteBackend interface {
	Recognize(ctx context.Context, raw []byte) (string, error)
}

// RemoteClient talks to an OCR web API (ocr.space-style form upload).
type RemoteClient struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

func NewRemoteClient(endpoint, apiKey string, timeout time.Duration) *RemoteClient {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &RemoteClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type remoteResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          []string `json:"ErrorMessage"`
}

func (c *RemoteClient) Recognize(ctx context.Context, raw []byte) (string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", "capture.png")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(raw); err != nil {
		return "", err
	}
	_ = mw.WriteField("language", "eng")
	_ = mw.WriteField("scale", "true")
	_ = mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("apikey", c.APIKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("remote ocr status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var parsed remoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("remote ocr decode: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("remote ocr: %s", strings.Join(parsed.ErrorMessage, "; "))
	}
	var parts []string
	for _, r := range parsed.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	return normalizeText(strings.Join(parts, "\n")), nil
}
