// Package visionai is the Visual Analysis Service client. It speaks a
// Gemini-style HTTP API: media files are uploaded once and referenced by
// handle, then analyzed with schema-constrained JSON generation, optionally
// scoped to a time sub-window of the file.
package visionai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/storycut-backend/internal/pkg/httpx"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// Handle references an uploaded media file on the service side.
type Handle struct {
	Name     string
	URI      string
	MimeType string
}

// Window scopes an analysis call to a sub-range of the uploaded file.
type Window struct {
	StartSeconds float64
	EndSeconds   float64
}

// Client is the Visual Analysis Service API surface the matching engine uses.
type Client interface {
	// Upload pushes media bytes and waits until the file is ready for
	// analysis.
	Upload(ctx context.Context, displayName, mimeType string, data io.Reader, size int64) (Handle, error)

	// ProposeJSON runs one analysis call constrained to the given response
	// schema and returns the decoded JSON object.
	ProposeJSON(ctx context.Context, handle Handle, brief string, window *Window, schema map[string]any) (map[string]any, error)

	// GenerateJSON runs a text-only schema-constrained call, with no media
	// attached.
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	MaxRetries     int
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing visionai api key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("service", "VisionAIClient"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

type visionHTTPError struct {
	StatusCode int
	Body       string
}

func (e *visionHTTPError) Error() string {
	return fmt.Sprintf("visionai http %d: %s", e.StatusCode, e.Body)
}

func (e *visionHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// -------------------- Upload --------------------

type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

type uploadResponse struct {
	File fileResource `json:"file"`
}

func (c *client) Upload(ctx context.Context, displayName, mimeType string, data io.Reader, size int64) (Handle, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return Handle{}, fmt.Errorf("read media bytes: %w", err)
	}
	if size > 0 && int64(len(raw)) != size {
		c.log.Warn("upload size mismatch", "declared", size, "actual", len(raw), "display_name", displayName)
	}

	url := c.baseURL + "/upload/v1beta/files?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return Handle{}, err
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-File-Name", displayName)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Handle{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Handle{}, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Handle{}, &visionHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Handle{}, fmt.Errorf("decode upload response: %w", err)
	}
	if out.File.Name == "" {
		return Handle{}, fmt.Errorf("upload response missing file name")
	}

	file, err := c.waitActive(ctx, out.File)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Name: file.Name, URI: file.URI, MimeType: file.MimeType}, nil
}

// waitActive polls the file resource until processing finishes. Video files
// are not analyzable until the service marks them ACTIVE.
func (c *client) waitActive(ctx context.Context, file fileResource) (fileResource, error) {
	for {
		switch file.State {
		case "ACTIVE":
			return file, nil
		case "FAILED":
			return fileResource{}, fmt.Errorf("media processing failed for %s", file.Name)
		}
		select {
		case <-ctx.Done():
			return fileResource{}, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		var next fileResource
		if err := c.do(ctx, http.MethodGet, "/v1beta/"+file.Name, nil, &next); err != nil {
			return fileResource{}, fmt.Errorf("poll media state: %w", err)
		}
		file = next
	}
}

// -------------------- Structured analysis --------------------

type generatePart struct {
	Text          string         `json:"text,omitempty"`
	FileData      *fileData      `json:"file_data,omitempty"`
	VideoMetadata *videoMetadata `json:"video_metadata,omitempty"`
}

type fileData struct {
	FileURI  string `json:"file_uri"`
	MimeType string `json:"mime_type,omitempty"`
}

type videoMetadata struct {
	StartOffset string `json:"start_offset"`
	EndOffset   string `json:"end_offset"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"response_mime_type"`
	ResponseSchema   map[string]any `json:"response_schema,omitempty"`
	Temperature      float64        `json:"temperature"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (c *client) ProposeJSON(ctx context.Context, handle Handle, brief string, window *Window, schema map[string]any) (map[string]any, error) {
	media := generatePart{FileData: &fileData{FileURI: handle.URI, MimeType: handle.MimeType}}
	if window != nil {
		media.VideoMetadata = &videoMetadata{
			StartOffset: offsetString(window.StartSeconds),
			EndOffset:   offsetString(window.EndSeconds),
		}
	}
	return c.generate(ctx, []generatePart{media, {Text: brief}}, schema)
}

func (c *client) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	return c.generate(ctx, []generatePart{{Text: prompt}}, schema)
}

func (c *client) generate(ctx context.Context, parts []generatePart, schema map[string]any) (map[string]any, error) {
	req := generateRequest{
		Contents: []generateContent{{Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
			Temperature:      0.2,
		},
	}

	var resp generateResponse
	path := "/v1beta/models/" + c.model + ":generateContent"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty analysis response")
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("empty analysis response text (finish=%s)", resp.Candidates[0].FinishReason)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode analysis json: %w; raw=%s", err, truncate(text, 400))
	}
	return out, nil
}

func offsetString(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%.3fs", seconds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// -------------------- Transport --------------------

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+sep+"key="+c.apiKey, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &visionHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("visionai decode error: %w; raw=%s", uErr, truncate(string(raw), 400))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("visionai request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}
