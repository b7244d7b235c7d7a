// Package veo implements provider.VideoGenerator over the Gemini API
// long-running video operations.
package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/util/log"
)

const apiKeyHeader = "x-goog-api-key"

// DefaultAspectRatio is the aspect ratio requested for product videos.
const DefaultAspectRatio = "16:9"

// Client calls the video model.
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	aspectRatio string
	httpClient  *http.Client
}

var _ provider.VideoGenerator = (*Client)(nil)

// NewClient creates a video client. baseURL is the API root, for example
// https://generativelanguage.googleapis.com/v1beta.
func NewClient(baseURL, model, apiKey string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("veo: %w", provider.ErrMissingAPIKey)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		apiKey:      apiKey,
		aspectRatio: DefaultAspectRatio,
		httpClient:  httpClient,
	}, nil
}

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string     `json:"prompt"`
	Image  *videoData `json:"image,omitempty"`
}

type videoData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StartVideo implements provider.VideoGenerator.
func (c *Client) StartVideo(ctx context.Context, source record.Image, prompt string) (provider.VideoOperation, error) {
	req := videoRequest{
		Instances: []videoInstance{{
			Prompt: prompt,
			Image: &videoData{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(source.Data),
				MimeType:           imageutil.DetectMIME(source.Data, source.MIMEType),
			},
		}},
		Parameters: videoParameters{AspectRatio: c.aspectRatio},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return provider.VideoOperation{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, c.model)
	op, err := c.doOperation(ctx, http.MethodPost, url, body)
	if err != nil {
		return provider.VideoOperation{}, err
	}
	log.Printf("Veo: started operation %s", op.Name)
	return op, nil
}

// PollVideo implements provider.VideoGenerator.
func (c *Client) PollVideo(ctx context.Context, name string) (provider.VideoOperation, error) {
	return c.doOperation(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(name, "/"), nil)
}

// DownloadVideo implements provider.VideoGenerator.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("download returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read video: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (c *Client) doOperation(ctx context.Context, method, url string, body []byte) (provider.VideoOperation, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return provider.VideoOperation{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.VideoOperation{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.VideoOperation{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return provider.VideoOperation{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var op operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return provider.VideoOperation{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if op.Error != nil {
		return provider.VideoOperation{}, fmt.Errorf("%w: %s (code: %d)", provider.ErrVideoFailed, op.Error.Message, op.Error.Code)
	}

	out := provider.VideoOperation{Name: op.Name, Done: op.Done}
	if op.Done {
		if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
			return out, fmt.Errorf("%w: operation finished without a video", provider.ErrVideoFailed)
		}
		out.VideoURI = op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
